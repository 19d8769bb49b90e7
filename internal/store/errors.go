package store

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by every store implementation.
var (
	ErrNotFound         = errors.New("record not found")
	ErrAlreadyExists    = errors.New("record already exists")
	ErrNotAuthenticated = errors.New("not authenticated")
)

// TransientError marks a retryable I/O failure: the store was unreachable
// or the call timed out. A batch never aborts on one of these; the failure
// is recorded per record and the loop continues.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient store failure: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError. It returns nil for a nil err.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

// ValidationError rejects a record before any mutation is attempted. It is
// not retryable; resubmitting identical input fails identically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsTransient reports whether err is a retryable I/O failure.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// IsValidation reports whether err is a pre-write reject.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
