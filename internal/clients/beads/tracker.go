package beads

import (
	"context"
	"fmt"

	"github.com/oculairmedia/hvbsync/internal/clients"
	"github.com/oculairmedia/hvbsync/internal/statusmap"
)

// Tracker adapts Client to the shared clients.Client/LabelClient/CommitClient
// interfaces (C1), mirroring huly.Tracker and vibe.Tracker.
type Tracker struct {
	client *Client
}

// New wraps a Beads Client as a clients.Client.
func New(client *Client) *Tracker {
	return &Tracker{client: client}
}

var (
	_ clients.Client       = (*Tracker)(nil)
	_ clients.LabelClient  = (*Tracker)(nil)
	_ clients.CommitClient = (*Tracker)(nil)
)

// ListProjects is a single-repo no-op: a Beads Client is already scoped to
// one project's worktree, so there is exactly one "project" to report.
func (t *Tracker) ListProjects(ctx context.Context) ([]clients.TrackerIssue, error) {
	return []clients.TrackerIssue{{ID: t.client.RepoPath}}, nil
}

func (t *Tracker) ListIssues(ctx context.Context, project string, opts clients.FetchOptions) ([]clients.TrackerIssue, error) {
	records, err := t.client.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := toTrackerIssues(records)
	if opts.Since == nil {
		return out, nil
	}
	filtered := out[:0]
	for _, ti := range out {
		if ti.UpdatedAt.After(*opts.Since) {
			filtered = append(filtered, ti)
		}
	}
	return filtered, nil
}

func (t *Tracker) BulkListIssues(ctx context.Context, opts clients.BulkFetchOptions) (map[string][]clients.TrackerIssue, error) {
	issues, err := t.ListIssues(ctx, "", clients.FetchOptions{Since: opts.Since})
	if err != nil {
		return nil, err
	}
	out := make(map[string][]clients.TrackerIssue, len(opts.Projects))
	for _, p := range opts.Projects {
		out[p] = issues
	}
	return out, nil
}

func (t *Tracker) GetIssue(ctx context.Context, key string) (*clients.TrackerIssue, error) {
	rec, err := t.client.Get(ctx, key)
	if err != nil || rec == nil {
		return nil, err
	}
	ti := beadsToTrackerIssue(rec)
	return &ti, nil
}

func (t *Tracker) CreateIssue(ctx context.Context, project string, payload clients.IssuePayload) (*clients.TrackerIssue, error) {
	title, _ := payload["title"].(string)
	description, _ := payload["description"].(string)
	priority, _ := payload["priority"].(string)
	id, err := t.client.Create(ctx, title, description, priority)
	if err != nil {
		return nil, err
	}
	return t.GetIssue(ctx, id)
}

func (t *Tracker) PatchIssue(ctx context.Context, key string, fields clients.IssuePayload) error {
	if status, ok := fields["status"].(string); ok && status == "closed" {
		reason, _ := fields["close_reason"].(string)
		return t.client.Close(ctx, key, reason)
	}
	strFields := make(map[string]string, len(fields))
	for k, v := range fields {
		if s, ok := v.(string); ok {
			strFields[k] = s
		}
	}
	if len(strFields) == 0 {
		return nil
	}
	return t.client.Update(ctx, key, strFields)
}

func (t *Tracker) DeleteIssue(ctx context.Context, key string) error {
	return t.client.Close(ctx, key, "deleted by sync")
}

func (t *Tracker) FindByTitle(ctx context.Context, project, title string) (*clients.TrackerIssue, error) {
	rec, err := t.client.FindByTitle(ctx, title)
	if err != nil || rec == nil {
		return nil, err
	}
	ti := beadsToTrackerIssue(rec)
	return &ti, nil
}

func (t *Tracker) SetParent(ctx context.Context, key string, parentKey *string) error {
	return t.client.SetParent(ctx, key, parentKey)
}

func (t *Tracker) AddLabel(ctx context.Context, key, label string) error {
	return t.client.AddLabel(ctx, key, label)
}

func (t *Tracker) RemoveLabel(ctx context.Context, key, label string) error {
	return t.client.RemoveLabel(ctx, key, label)
}

func (t *Tracker) CommitChanges(ctx context.Context, message string) error {
	return t.client.CommitChanges(ctx, message)
}

func toTrackerIssues(records []Record) []clients.TrackerIssue {
	out := make([]clients.TrackerIssue, 0, len(records))
	for i := range records {
		out = append(out, beadsToTrackerIssue(&records[i]))
	}
	return out
}

func beadsToTrackerIssue(rec *Record) clients.TrackerIssue {
	return clients.TrackerIssue{
		ID:          rec.ID,
		Title:       rec.Title,
		Description: rec.Description,
		Labels:      rec.Labels,
		Priority:    rec.Priority,
		State:       rec.Status,
		ParentID:    rec.Parent,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
		Metadata: map[string]interface{}{
			"normalized_status": statusmap.BStatusToNormalized(rec.Status),
			"source_system":     fmt.Sprintf("beads:%s", rec.ID),
		},
	}
}
