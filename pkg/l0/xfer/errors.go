package xfer

import (
	"errors"
	"fmt"
)

var (
	// ErrSizeMismatch indicates the announced or supplied record size
	// differs from the configured one.
	ErrSizeMismatch = errors.New("size mismatch")
	// ErrChecksumMismatch indicates a frame failed the integrity check.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrBufferTooSmall indicates the destination can't hold the output.
	ErrBufferTooSmall = errors.New("buffer too small")
	// ErrInvalidSize indicates a record size outside 1-255.
	ErrInvalidSize = errors.New("invalid record size")
)

// SizeError reports a record size mismatch.
type SizeError struct {
	Want int
	Got  int
}

// Error implements error.
func (e *SizeError) Error() string {
	return fmt.Sprintf("size mismatch: want %d, got %d", e.Want, e.Got)
}

// Unwrap returns ErrSizeMismatch.
func (e *SizeError) Unwrap() error {
	return ErrSizeMismatch
}

// ChecksumError reports a checksum mismatch.
type ChecksumError struct {
	Want byte
	Got  byte
}

// Error implements error.
func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch: want %#02x, got %#02x", e.Want, e.Got)
}

// Unwrap returns ErrChecksumMismatch.
func (e *ChecksumError) Unwrap() error {
	return ErrChecksumMismatch
}
