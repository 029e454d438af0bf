package activities

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/oculairmedia/hvbsync/internal/types"
)

// boardSnapshot is the payload POSTed to the out-of-scope agent-memory
// sidecar (spec §4.7 step 5, types.Project.AgentMemoryEndpoint).
type boardSnapshot struct {
	Project string         `json:"project"`
	Issues  []*types.Issue `json:"issues"`
}

// writeBoardSnapshot POSTs the project's current mapping-store rows to its
// configured sidecar endpoint. A missing or failing sidecar never fails the
// cycle: the sidecar is explicitly out of scope as a collaborator, so this
// is best-effort telemetry, not a sync dependency.
func (s *Service) writeBoardSnapshot(ctx context.Context, endpoint string, project string) error {
	if endpoint == "" {
		return nil
	}
	issues, err := s.Store.GetProjectIssues(ctx, project)
	if err != nil {
		return nil
	}

	body, err := json.Marshal(boardSnapshot{Project: project, Issues: issues})
	if err != nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		s.Logger.Warn("board snapshot: build request failed", "project", project, "err", err)
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		s.Logger.Warn("board snapshot: post failed", "project", project, "err", err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		s.Logger.Warn("board snapshot: non-2xx response", "project", project, "status", fmt.Sprintf("%d", resp.StatusCode))
	}
	return nil
}
