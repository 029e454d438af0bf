package huly

import (
	"context"
	"fmt"

	"github.com/oculairmedia/hvbsync/internal/clients"
	"github.com/oculairmedia/hvbsync/internal/statusmap"
	"github.com/oculairmedia/hvbsync/internal/types"
)

// Tracker adapts Client to the shared clients.Client interface (C1),
// grounded on the teacher's internal/jira/tracker.go Tracker wrapper.
type Tracker struct {
	client *Client
}

// New wraps a Huly Client as a clients.Client.
func New(client *Client) *Tracker {
	return &Tracker{client: client}
}

var _ clients.Client = (*Tracker)(nil)

func (t *Tracker) ListProjects(ctx context.Context) ([]clients.TrackerIssue, error) {
	projects, err := t.client.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]clients.TrackerIssue, 0, len(projects))
	for _, p := range projects {
		out = append(out, clients.TrackerIssue{Identifier: p.Identifier, Title: p.Name, Description: p.Description})
	}
	return out, nil
}

func (t *Tracker) ListIssues(ctx context.Context, project string, opts clients.FetchOptions) ([]clients.TrackerIssue, error) {
	result, err := t.client.BulkListIssues(ctx, []string{project}, opts.Since)
	if err != nil {
		return nil, err
	}
	return toTrackerIssues(result[project]), nil
}

func (t *Tracker) BulkListIssues(ctx context.Context, opts clients.BulkFetchOptions) (map[string][]clients.TrackerIssue, error) {
	result, err := t.client.BulkListIssues(ctx, opts.Projects, opts.Since)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]clients.TrackerIssue, len(result))
	for project, issues := range result {
		out[project] = toTrackerIssues(issues)
	}
	return out, nil
}

func (t *Tracker) GetIssue(ctx context.Context, key string) (*clients.TrackerIssue, error) {
	issue, err := t.client.GetIssue(ctx, key)
	if err != nil || issue == nil {
		return nil, err
	}
	ti := hulyToTrackerIssue(issue)
	return &ti, nil
}

func (t *Tracker) CreateIssue(ctx context.Context, project string, payload clients.IssuePayload) (*clients.TrackerIssue, error) {
	fields := map[string]interface{}(payload)
	created, err := t.client.CreateIssue(ctx, project, fields)
	if err != nil {
		return nil, err
	}
	ti := hulyToTrackerIssue(created)
	return &ti, nil
}

func (t *Tracker) PatchIssue(ctx context.Context, key string, fields clients.IssuePayload) error {
	return t.client.PatchIssue(ctx, key, map[string]interface{}(fields))
}

func (t *Tracker) DeleteIssue(ctx context.Context, key string) error {
	return t.client.DeleteIssue(ctx, key)
}

func (t *Tracker) FindByTitle(ctx context.Context, project, title string) (*clients.TrackerIssue, error) {
	issue, err := t.client.FindByTitle(ctx, project, title)
	if err != nil || issue == nil {
		return nil, err
	}
	ti := hulyToTrackerIssue(issue)
	return &ti, nil
}

func (t *Tracker) SetParent(ctx context.Context, key string, parentKey *string) error {
	return t.client.SetParent(ctx, key, parentKey)
}

func toTrackerIssues(issues []Issue) []clients.TrackerIssue {
	out := make([]clients.TrackerIssue, 0, len(issues))
	for i := range issues {
		out = append(out, hulyToTrackerIssue(&issues[i]))
	}
	return out
}

func hulyToTrackerIssue(issue *Issue) clients.TrackerIssue {
	return clients.TrackerIssue{
		ID:          issue.ID,
		Identifier:  issue.Identifier,
		Title:       issue.Title,
		Description: issue.Description,
		Labels:      issue.Labels,
		Priority:    issue.Priority,
		State:       issue.Status,
		ParentID:    issue.ParentIssue,
		CreatedAt:   issue.CreatedOn,
		UpdatedAt:   issue.ModifiedOn,
		Metadata: map[string]interface{}{
			"normalized_status":   statusmap.HStatusToNormalized(issue.Status),
			"normalized_priority": statusmap.PriorityToNumeric(issue.Priority),
			"source_system":       fmt.Sprintf("huly:%s", issue.Identifier),
		},
	}
}
