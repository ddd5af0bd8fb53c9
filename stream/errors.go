package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by Write and Close once the Writer has been closed or aborted.
	ErrClosed = errors.New("stream: writer is closed")

	// ErrNilWriter is returned when a method is called on a nil *Writer.
	ErrNilWriter = errors.New("stream: nil writer")

	// ErrTooManyParts is returned when the stream would need more than MaxParts parts.
	ErrTooManyParts = errors.New("stream: too many parts")
)

// PartError is the failure of a single part upload.
type PartError struct {
	PartNumber int32
	Err        error
}

func (e *PartError) Error() string {
	return fmt.Sprintf("upload part %d: %v", e.PartNumber, e.Err)
}

func (e *PartError) Unwrap() error {
	return e.Err
}
