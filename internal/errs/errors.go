// Package errs defines the error taxonomy shared across the pipeline.
//
// Sentinel errors classify failures for the job state machine: validation
// errors are rejected at submission, transient errors re-enter the retry
// policy, everything else is fatal for the job.
package errs

import (
	"errors"
	"fmt"
)

var (
	// Seed/request validation, rejected synchronously at submission.
	ErrValidation = errors.New("validation failed")

	// Strict resolution found nothing for a named seed.
	ErrNotFound = errors.New("not found")

	// Index artifact missing or unreadable; callers may fall back.
	ErrModelUnavailable = errors.New("model unavailable")

	// Status-write failure; fatal, never silently dropped.
	ErrPersistence = errors.New("persistence failed")
)

// transientError marks a network/catalog/blob-store I/O failure that the
// retry policy may re-attempt.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient wraps err as retryable. A nil err returns nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// Transientf formats a retryable error.
func Transientf(format string, args ...interface{}) error {
	return &transientError{err: fmt.Errorf(format, args...)}
}

// IsTransient reports whether err is in the retryable class.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// Validation formats a validation error.
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound formats a not-found error.
func NotFound(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
