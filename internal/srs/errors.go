package srs

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuality      = errors.New("invalid quality")
	ErrInvalidResponseTime = errors.New("invalid response time")
	ErrInvalidProgress     = errors.New("invalid progress")
)

// ValidationError describes which field of a review or progress value was
// rejected. It unwraps to one of the sentinel errors above.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
