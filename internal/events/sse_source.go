package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/oculairmedia/hvbsync/internal/clients/vibe"
	"github.com/oculairmedia/hvbsync/internal/types"
)

// SSESource is C5's System V intake path (spec §4.4.3): consumes Vibe
// Kanban's SSE stream, filters to TASK add/replace records, and converts
// each into a PerIssue SyncEvent. Reconnect-with-backoff lives in
// vibe.Client.Stream; this source only translates already-reconnected
// events.
type SSESource struct {
	Client            *vibe.Client
	ProjectIdentifier string
	VProjectID        string
	Bus               *Bus
}

// Run blocks, translating Stream events onto the bus until ctx is canceled
// or the stream's retry budget is exhausted.
func (s *SSESource) Run(ctx context.Context) {
	stream, errs := s.Client.Stream(ctx, s.VProjectID)
	for {
		select {
		case ev, ok := <-stream:
			if !ok {
				return
			}
			s.handle(ctx, ev)
		case err, ok := <-errs:
			if !ok {
				return
			}
			if err != nil {
				slog.Error("vibe sse stream ended", "project", s.ProjectIdentifier, "err", err)
			}
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *SSESource) handle(ctx context.Context, ev vibe.StreamEvent) {
	if ev.Patch.RecordType != types.RecordTypeTask {
		return
	}
	if ev.Patch.Op != types.PatchOpAdd && ev.Patch.Op != types.PatchOpReplace {
		return
	}
	taskID, _ := ev.Patch.Value["id"].(string)
	kind := types.EventUpdate
	if ev.Patch.Op == types.PatchOpAdd {
		kind = types.EventCreate
	}
	s.Bus.Publish(ctx, types.SyncEvent{
		Source:            types.EventSourceSSE,
		ProjectIdentifier: s.ProjectIdentifier,
		IssueKey:          taskID,
		Kind:              kind,
		ReceivedAt:        time.Now().UTC(),
	})
}
