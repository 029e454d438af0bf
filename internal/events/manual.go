package events

import (
	"context"
	"time"

	"github.com/oculairmedia/hvbsync/internal/types"
)

// ManualSource is C5's admin-trigger intake path (spec §4.4.5), invoked
// directly by the admin HTTP surface (C10)'s /api/sync/trigger handler.
type ManualSource struct {
	Bus *Bus
}

// Trigger publishes an Orchestration-triggering event for project. An empty
// project is published as is; it is not expanded to every project.
func (s *ManualSource) Trigger(ctx context.Context, project string) {
	s.Bus.Publish(ctx, types.SyncEvent{
		Source:            types.EventSourceManual,
		ProjectIdentifier: project,
		Kind:              types.EventUpdate,
		ReceivedAt:        time.Now().UTC(),
	})
}
