// Package events implements four of C5's five intake paths (webhook, SSE,
// file watcher, manual trigger), each producing types.SyncEvent values onto a
// shared Bus that the sync controller (C6) drains. The fifth, the scheduled
// tick, is published by the root orchestration's cycle function in
// cmd/hvbsync/serve.go.
package events

import (
	"context"

	"github.com/google/uuid"

	"github.com/oculairmedia/hvbsync/internal/types"
)

// Bus is the shared event channel every intake path writes into and the
// controller reads from, matching spec §9's "task-based worker model": each
// source runs as a long-lived goroutine writing into an event channel.
type Bus struct {
	events chan types.SyncEvent
}

// NewBus creates a Bus with the given channel buffer depth.
func NewBus(buffer int) *Bus {
	return &Bus{events: make(chan types.SyncEvent, buffer)}
}

// Events returns the receive side of the bus for the controller to drain.
func (b *Bus) Events() <-chan types.SyncEvent {
	return b.events
}

// Publish enqueues ev, stamping a correlation ID if one is not already set
// (spec §4.4: "every event carries a correlation ID for tracing"). It blocks
// until ctx is done or the event is accepted.
func (b *Bus) Publish(ctx context.Context, ev types.SyncEvent) {
	if ev.CorrelationID == "" {
		ev.CorrelationID = uuid.NewString()
	}
	select {
	case b.events <- ev:
	case <-ctx.Done():
	}
}

// Close closes the underlying channel. Call only after every producer
// goroutine has stopped.
func (b *Bus) Close() {
	close(b.events)
}
