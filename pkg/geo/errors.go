package geo

import (
	"errors"
	"fmt"
)

// Error kinds reported by geometry construction and box operations.
var (
	ErrInvalidGeometry = errors.New("invalid geometry")
	ErrNonIntersecting = errors.New("bounding boxes do not intersect")
)

// Error carries a kind (one of the Err* values above) and a message
// describing the offending input.
type Error struct {
	code error
	msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.code, e.msg)
}

// Unwrap exposes the kind so callers can use errors.Is.
func (e *Error) Unwrap() error {
	return e.code
}

// Code returns the error kind.
func (e *Error) Code() error {
	return e.code
}

func errorf(code error, format string, a ...interface{}) error {
	return &Error{
		code: code,
		msg:  fmt.Sprintf(format, a...),
	}
}
