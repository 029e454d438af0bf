package types

import (
	"errors"
	"fmt"
)

// ErrKind is the error taxonomy of spec §7. Activities translate every
// client error into one of these before it crosses a workflow boundary; the
// workflow engine only ever sees "retryable" vs "non-retryable" (IsRetryable).
type ErrKind string

const (
	ErrKindValidation ErrKind = "validation"
	ErrKindNotFound   ErrKind = "not_found"
	ErrKindAuthN      ErrKind = "authn"
	ErrKindTransient  ErrKind = "transient"
	ErrKindConflict   ErrKind = "conflict"
	ErrKindFatal      ErrKind = "fatal"
)

// TrackerError wraps an underlying error with a classified kind so activities
// and the circuit breaker can decide retry behavior without string-matching.
type TrackerError struct {
	Kind ErrKind
	Op   string
	Err  error
}

func (e *TrackerError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *TrackerError) Unwrap() error { return e.Err }

// NewTrackerError constructs a classified error.
func NewTrackerError(kind ErrKind, op string, err error) *TrackerError {
	return &TrackerError{Kind: kind, Op: op, Err: err}
}

// IsRetryable reports whether err should be retried per the activity's retry
// policy (spec §4.6, §7). Conflict errors are conditionally retryable; callers
// that already performed the one allowed refetch-and-retry should reclassify
// a persisting Conflict as non-retryable before returning it here.
func IsRetryable(err error) bool {
	var te *TrackerError
	if errors.As(err, &te) {
		switch te.Kind {
		case ErrKindTransient, ErrKindConflict:
			return true
		default:
			return false
		}
	}
	// Unclassified errors are treated conservatively as non-retryable so a
	// programming mistake doesn't spin an activity forever.
	return false
}

// IsFatal reports whether err should fail the whole sync cycle (spec §7: the
// cycle is successful iff zero Fatal errors occurred).
func IsFatal(err error) bool {
	var te *TrackerError
	if errors.As(err, &te) {
		return te.Kind == ErrKindFatal
	}
	return false
}

var (
	ErrNotConfigured  = errors.New("not configured")
	ErrNotInitialized = errors.New("not initialized")
)
