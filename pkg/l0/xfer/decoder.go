package xfer

import "io"

// State is the position of the decoder within a frame.
type State int

const (
	// StateStart1 waits for StartByte1, discarding anything else.
	StateStart1 State = iota
	// StateStart2 waits for StartByte2.
	StateStart2
	// StateLength waits for the length byte.
	StateLength
	// StatePayload collects payload and the trailing checksum.
	StatePayload
)

var stateNames = [...]string{"start1", "start2", "length", "payload"}

// String implements fmt.Stringer.
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Status is the outcome of a decoding step.
type Status int

const (
	// NeedMoreData means no frame was completed with the input so far.
	NeedMoreData Status = iota
	// FrameReady means a valid frame was received.
	FrameReady
	// SizeMismatch means a frame announced a length other than the configured size.
	SizeMismatch
	// ChecksumMismatch means a frame was dropped on a bad checksum.
	ChecksumMismatch
)

var statusNames = [...]string{"need-more-data", "frame-ready", "size-mismatch", "checksum-mismatch"}

// String implements fmt.Stringer.
func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// Result indicates the result of decoding.
type Result struct {
	Status Status
	// Record is set with FrameReady. It refers to the decoder's
	// buffer and is only valid until the next call on the decoder.
	Record []byte
	// Err is set with SizeMismatch and ChecksumMismatch.
	Err error
}

// Decoder reassembles records of a fixed size from a byte stream.
// It is not safe for concurrent use; each connection owns one.
type Decoder struct {
	// FastResync re-tests a byte rejected as StartByte2 against
	// StartByte1. By default it is discarded, as the boards do.
	FastResync bool

	size      int
	state     State
	expectLen int
	recvBuf   []byte // payload + checksum
	recvLen   int
	record    []byte
}

// NewDecoder creates a Decoder for records of size bytes.
func NewDecoder(size int) (*Decoder, error) {
	if !ValidSize(size) {
		return nil, ErrInvalidSize
	}
	return &Decoder{
		size:    size,
		recvBuf: make([]byte, size+1),
		record:  make([]byte, size),
	}, nil
}

// Size returns the configured record size.
func (d *Decoder) Size() int {
	return d.size
}

// State returns the current decoding state.
func (d *Decoder) State() State {
	return d.state
}

// Reset drops any partial frame and waits for a new header.
func (d *Decoder) Reset() {
	d.state, d.expectLen, d.recvLen = StateStart1, 0, 0
}

// Parse consumes one byte.
func (d *Decoder) Parse(b byte) Result {
	switch d.state {
	case StateStart1:
		if b == StartByte1 {
			d.state = StateStart2
		}
	case StateStart2:
		if b == StartByte2 {
			d.state = StateLength
			break
		}
		d.state = StateStart1
		if d.FastResync && b == StartByte1 {
			d.state = StateStart2
		}
	case StateLength:
		d.expectLen = int(b)
		if d.expectLen != d.size {
			return d.frameError(SizeMismatch, &SizeError{Want: d.size, Got: d.expectLen})
		}
		d.recvLen, d.state = 0, StatePayload
	case StatePayload:
		d.recvBuf[d.recvLen] = b
		d.recvLen++
		if d.recvLen > d.expectLen {
			return d.frameComplete()
		}
	}
	return Result{}
}

// Feed consumes bytes from src until a frame completes or fails, or
// src runs dry. It never blocks. Call it again until it returns
// NeedMoreData to drain back-to-back frames.
//
// While hunting for a header, Feed gives up as soon as fewer than
// HeaderLen bytes remain buffered, leaving them for the next call.
func (d *Decoder) Feed(src ByteSource) Result {
	for src.Available() > 0 {
		b, err := src.ReadByte()
		if err != nil {
			break
		}
		hunting := d.state == StateStart1
		if r := d.Parse(b); r.Status != NeedMoreData {
			return r
		}
		if hunting && d.state == StateStart1 && src.Available() < HeaderLen {
			break
		}
	}
	return Result{}
}

// Decode feeds from p and returns the number of bytes consumed.
// Bytes after n are untouched and must be passed to the next call.
func (d *Decoder) Decode(p []byte) (int, Result) {
	src := sliceSource{data: p}
	r := d.Feed(&src)
	return src.off, r
}

// Receive feeds from src and copies a completed record into out.
// It returns false with nil error when more data is needed.
func (d *Decoder) Receive(src ByteSource, out []byte) (bool, error) {
	if len(out) < d.size {
		return false, ErrBufferTooSmall
	}
	r := d.Feed(src)
	if r.Status == FrameReady {
		copy(out, r.Record)
		return true, nil
	}
	return false, r.Err
}

func (d *Decoder) frameComplete() Result {
	payload := d.recvBuf[:d.expectLen]
	want, got := Checksum(payload), d.recvBuf[d.expectLen]
	if want != got {
		return d.frameError(ChecksumMismatch, &ChecksumError{Want: want, Got: got})
	}
	copy(d.record, payload)
	d.Reset()
	return Result{Status: FrameReady, Record: d.record}
}

func (d *Decoder) frameError(status Status, err error) Result {
	d.Reset()
	return Result{Status: status, Err: err}
}

type sliceSource struct {
	data []byte
	off  int
}

func (s *sliceSource) Available() int {
	return len(s.data) - s.off
}

func (s *sliceSource) ReadByte() (byte, error) {
	if s.off >= len(s.data) {
		return 0, io.EOF
	}
	b := s.data[s.off]
	s.off++
	return b, nil
}
