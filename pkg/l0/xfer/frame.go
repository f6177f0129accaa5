package xfer

import (
	"io"
)

// Frame layout constants.
const (
	StartByte1 byte = 0x06
	StartByte2 byte = 0x85

	// HeaderLen is the number of bytes before payload.
	HeaderLen = 3
	// Overhead is the number of non-payload bytes in a frame.
	Overhead = HeaderLen + 1

	// MaxRecordSize is the largest size the length byte can announce.
	MaxRecordSize = 0xff
)

// FrameLen returns the encoded length of a record of given size.
func FrameLen(size int) int {
	return size + Overhead
}

// ValidSize checks if size can be carried in a frame.
func ValidSize(size int) bool {
	return size > 0 && size <= MaxRecordSize
}

// Checksum calculates the frame checksum of a payload, seeded with its length.
func Checksum(payload []byte) byte {
	cs := byte(len(payload))
	for _, b := range payload {
		cs ^= b
	}
	return cs
}

// Encoder encodes records of a fixed size.
type Encoder struct {
	size int
}

// NewEncoder creates an Encoder for records of size bytes.
func NewEncoder(size int) (*Encoder, error) {
	if !ValidSize(size) {
		return nil, ErrInvalidSize
	}
	return &Encoder{size: size}, nil
}

// Size returns the configured record size.
func (e *Encoder) Size() int {
	return e.size
}

// Encode writes the frame of record into dst and returns the frame length.
func (e *Encoder) Encode(dst, record []byte) (int, error) {
	if len(record) != e.size {
		return 0, &SizeError{Want: e.size, Got: len(record)}
	}
	n := FrameLen(e.size)
	if len(dst) < n {
		return 0, ErrBufferTooSmall
	}
	dst[0], dst[1], dst[2] = StartByte1, StartByte2, byte(e.size)
	copy(dst[HeaderLen:], record)
	dst[n-1] = Checksum(record)
	return n, nil
}

// Frame returns the encoded frame in a new buffer.
func (e *Encoder) Frame(record []byte) ([]byte, error) {
	b := make([]byte, FrameLen(e.size))
	if _, err := e.Encode(b, record); err != nil {
		return nil, err
	}
	return b, nil
}

// WriteTo writes one encoded frame to w with a single Write.
func (e *Encoder) WriteTo(w io.Writer, record []byte) (int, error) {
	b, err := e.Frame(record)
	if err != nil {
		return 0, err
	}
	return w.Write(b)
}

// AppendFrame appends the frame of record to dst, taking the size from record.
func AppendFrame(dst, record []byte) ([]byte, error) {
	if !ValidSize(len(record)) {
		return dst, ErrInvalidSize
	}
	dst = append(dst, StartByte1, StartByte2, byte(len(record)))
	dst = append(dst, record...)
	return append(dst, Checksum(record)), nil
}
