package clients

import (
	"context"

	"github.com/cenkalti/backoff/v4"

	"github.com/oculairmedia/hvbsync/internal/types"
)

// RetryPolicy mirrors the activity retry contract of spec §4.6: default max
// 5 attempts, exponential backoff. Built on github.com/cenkalti/backoff/v4,
// which the teacher already depends on directly (used in
// internal/storage/dolt for its own remote-sync retries).
type RetryPolicy struct {
	MaxAttempts uint64
}

// DefaultRetryPolicy matches spec §4.6's default.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 5}

// Do runs fn, retrying only types.ErrKindTransient (and conditionally
// ErrKindConflict) failures per types.IsRetryable, with exponential backoff.
// Non-retryable errors return immediately without consuming an attempt.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), p.maxAttempts()), ctx)

	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if !types.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, bo)
}

func (p RetryPolicy) maxAttempts() uint64 {
	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = DefaultRetryPolicy.MaxAttempts
	}
	return attempts - 1 // backoff.WithMaxRetries counts retries, not attempts
}
