package notification

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyKey indicates a record without an object key.
	ErrEmptyKey = errors.New("record has no object key")

	// ErrInvalidKey indicates a key that is not valid form encoding.
	ErrInvalidKey = errors.New("invalid object key encoding")
)

// DecodeError reports a document or record that could not be decoded.
type DecodeError struct {
	// Index is the record position, or -1 when the document itself is invalid.
	Index int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("decode event: %v", e.Err)
	}
	return fmt.Sprintf("decode event record %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *DecodeError) Unwrap() error {
	return e.Err
}
