package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/oculairmedia/hvbsync/internal/types"
)

// WebhookPayload is the System H webhook body shape (spec §4.4.2): a change
// set of project identifiers with an optional prefetched issue key list.
type WebhookPayload struct {
	Projects []string `json:"projects"`
	Issues   []string `json:"issues,omitempty"`
}

// WebhookSource decodes a System H webhook POST body and publishes one event
// per named project (routed by the controller to
// WebhookChange->Orchestration-per-project per spec §4.5).
type WebhookSource struct {
	Bus *Bus
}

// Handle parses body and publishes the resulting events, returning the
// number published or a decode error.
func (s *WebhookSource) Handle(ctx context.Context, body io.Reader) (int, error) {
	var payload WebhookPayload
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode webhook payload: %w", err)
	}
	if len(payload.Projects) == 0 {
		return 0, fmt.Errorf("webhook payload names no projects")
	}

	now := time.Now().UTC()
	issueKey := ""
	if len(payload.Issues) == 1 {
		issueKey = payload.Issues[0]
	}
	for _, project := range payload.Projects {
		s.Bus.Publish(ctx, types.SyncEvent{
			Source:            types.EventSourceWebhook,
			ProjectIdentifier: project,
			IssueKey:          issueKey,
			Kind:              types.EventUpdate,
			ReceivedAt:        now,
		})
	}
	return len(payload.Projects), nil
}
