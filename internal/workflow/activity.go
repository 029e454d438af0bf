package workflow

import (
	"context"

	"github.com/oculairmedia/hvbsync/internal/clients"
	"github.com/oculairmedia/hvbsync/internal/types"
)

// ActivityFunc is one orchestration step (C8). It must be idempotent w.r.t.
// its inputs (spec §4.6) so a retried or re-dispatched call never
// double-applies an effect.
type ActivityFunc func(ctx context.Context) error

// RunActivity executes fn under policy, translating the spec §4.6 taxonomy:
// non-retryable kinds (validation, not-found, unauthenticated, forbidden)
// fail immediately; retryable kinds (timeout, 5xx, transport — i.e.
// types.ErrKindTransient/Conflict) retry per policy. Built on
// clients.RetryPolicy so the activity layer and the client layer share one
// backoff implementation.
func RunActivity(ctx context.Context, policy clients.RetryPolicy, fn ActivityFunc) error {
	return policy.Do(ctx, func() error {
		return fn(ctx)
	})
}

// NonFatal reports whether err should be logged-and-counted rather than
// failing the surrounding orchestration — spec §7: "B-side (filesystem/CLI)
// errors are non-fatal by policy".
func NonFatal(source types.Source, err error) bool {
	if err == nil {
		return true
	}
	return source == types.SourceB && !types.IsFatal(err)
}
