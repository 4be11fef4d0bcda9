package oerror

import (
	"errors"
	"fmt"
)

var (
	// ErrResourceCreation is the kind of errors returned when a world, body, material, shape or
	// worker pool could not be created. Setup must be aborted when one is returned.
	ErrResourceCreation = errors.New("resource creation failure")
	// ErrStepProtocol is the kind of errors returned when Step and Fetch are called out of order.
	ErrStepProtocol = errors.New("step protocol violation")
	// ErrSyncTimeout is the kind of errors returned when Fetch does not complete before the
	// deadline of its context.
	ErrSyncTimeout = errors.New("synchronization timeout")
)

// OomphError is an error of a specific kind carrying a formatted message.
type OomphError struct {
	Kind error
	Err  string
}

// New returns a new error of the kind passed with a message formatted from format and args. A nil
// kind produces an error that only matches itself.
func New(kind error, format string, args ...any) *OomphError {
	return &OomphError{Kind: kind, Err: fmt.Sprintf(format, args...)}
}

func (e *OomphError) Error() string {
	if e.Kind == nil {
		return e.Err
	}
	return e.Kind.Error() + ": " + e.Err
}

// Unwrap allows errors.Is(err, ErrStepProtocol) and friends to match the kind of the error.
func (e *OomphError) Unwrap() error {
	return e.Kind
}
