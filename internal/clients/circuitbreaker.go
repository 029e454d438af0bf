package clients

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/oculairmedia/hvbsync/internal/types"
)

// NewBreaker constructs a per-dependency circuit breaker matching spec §7:
// opens after 5 consecutive failures to a single external dependency within
// 60s; half-open permits one probe after a 60s cooldown. This adopts
// github.com/sony/gobreaker, which the teacher's go.mod already lists as an
// indirect dependency (pulled in transitively but never exercised by beads
// itself) — wired here rather than dropped.
func NewBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1, // half-open: one probe
		Interval:    60 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

// Guarded wraps a dependency call through the breaker, translating an open
// breaker into a Transient error (spec §7: "opens block new calls,
// responding Transient immediately").
func Guarded(ctx context.Context, breaker *gobreaker.CircuitBreaker, op string, fn func() (interface{}, error)) (interface{}, error) {
	result, err := breaker.Execute(fn)
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, types.NewTrackerError(types.ErrKindTransient, op, fmt.Errorf("circuit breaker open: %w", err))
		}
		return nil, err
	}
	return result, nil
}
