package xfer

import "io"

// ByteSource is a non-blocking stream of received bytes.
type ByteSource interface {
	// Available returns the number of bytes that can be read without blocking.
	Available() int
	// ReadByte consumes the next byte. It returns io.EOF when nothing
	// is available.
	ReadByte() (byte, error)
}

// Buffer is a FIFO byte buffer implementing ByteSource and io.Writer.
// It is not safe for concurrent use.
type Buffer struct {
	data []byte
	off  int
}

// Available implements ByteSource.
func (b *Buffer) Available() int {
	return len(b.data) - b.off
}

// ReadByte implements ByteSource.
func (b *Buffer) ReadByte() (byte, error) {
	if b.off >= len(b.data) {
		return 0, io.EOF
	}
	c := b.data[b.off]
	b.off++
	return c, nil
}

// Write appends received bytes.
func (b *Buffer) Write(p []byte) (int, error) {
	if b.off > 0 && b.off >= len(b.data)/2 {
		n := copy(b.data, b.data[b.off:])
		b.data, b.off = b.data[:n], 0
	}
	b.data = append(b.data, p...)
	return len(p), nil
}

// Bytes returns the unread bytes without consuming them.
func (b *Buffer) Bytes() []byte {
	return b.data[b.off:]
}

// Reset drops all unread bytes.
func (b *Buffer) Reset() {
	b.data, b.off = b.data[:0], 0
}
