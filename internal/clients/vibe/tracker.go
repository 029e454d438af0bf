package vibe

import (
	"context"
	"fmt"

	"github.com/oculairmedia/hvbsync/internal/clients"
	"github.com/oculairmedia/hvbsync/internal/statusmap"
	"github.com/oculairmedia/hvbsync/internal/types"
)

// Tracker adapts Client to the shared clients.Client interface (C1), mirroring
// huly.Tracker. Vibe is UUID-keyed, so Identifier is left empty on every
// TrackerIssue; ID carries the UUID.
type Tracker struct {
	client *Client
}

// New wraps a Vibe Kanban Client as a clients.Client.
func New(client *Client) *Tracker {
	return &Tracker{client: client}
}

var _ clients.Client = (*Tracker)(nil)

func (t *Tracker) ListProjects(ctx context.Context) ([]clients.TrackerIssue, error) {
	ids, err := t.client.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]clients.TrackerIssue, 0, len(ids))
	for _, id := range ids {
		out = append(out, clients.TrackerIssue{ID: id})
	}
	return out, nil
}

func (t *Tracker) ListIssues(ctx context.Context, project string, opts clients.FetchOptions) ([]clients.TrackerIssue, error) {
	tasks, err := t.client.ListTasks(ctx, project, opts.Since)
	if err != nil {
		return nil, err
	}
	return toTrackerIssues(tasks), nil
}

func (t *Tracker) BulkListIssues(ctx context.Context, opts clients.BulkFetchOptions) (map[string][]clients.TrackerIssue, error) {
	out := make(map[string][]clients.TrackerIssue, len(opts.Projects))
	for _, project := range opts.Projects {
		tasks, err := t.client.ListTasks(ctx, project, opts.Since)
		if err != nil {
			return nil, err
		}
		out[project] = toTrackerIssues(tasks)
	}
	return out, nil
}

func (t *Tracker) GetIssue(ctx context.Context, key string) (*clients.TrackerIssue, error) {
	task, err := t.client.GetTask(ctx, key)
	if err != nil || task == nil {
		return nil, err
	}
	ti := vibeToTrackerIssue(task)
	return &ti, nil
}

func (t *Tracker) CreateIssue(ctx context.Context, project string, payload clients.IssuePayload) (*clients.TrackerIssue, error) {
	task, err := t.client.CreateTask(ctx, project, map[string]interface{}(payload))
	if err != nil {
		return nil, err
	}
	ti := vibeToTrackerIssue(task)
	return &ti, nil
}

func (t *Tracker) PatchIssue(ctx context.Context, key string, fields clients.IssuePayload) error {
	return t.client.PatchTask(ctx, key, map[string]interface{}(fields))
}

func (t *Tracker) DeleteIssue(ctx context.Context, key string) error {
	return t.client.DeleteTask(ctx, key)
}

func (t *Tracker) FindByTitle(ctx context.Context, project, title string) (*clients.TrackerIssue, error) {
	task, err := t.client.FindByTitle(ctx, project, title)
	if err != nil || task == nil {
		return nil, err
	}
	ti := vibeToTrackerIssue(task)
	return &ti, nil
}

func (t *Tracker) SetParent(ctx context.Context, key string, parentKey *string) error {
	return t.client.SetParent(ctx, key, parentKey)
}

func toTrackerIssues(tasks []Task) []clients.TrackerIssue {
	out := make([]clients.TrackerIssue, 0, len(tasks))
	for i := range tasks {
		out = append(out, vibeToTrackerIssue(&tasks[i]))
	}
	return out
}

func vibeToTrackerIssue(task *Task) clients.TrackerIssue {
	return clients.TrackerIssue{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		State:       task.Status,
		ParentID:    task.Parent,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
		Metadata: map[string]interface{}{
			"normalized_status": statusmap.VStatusToNormalized(task.Status),
			"source_system":     fmt.Sprintf("vibe:%s", task.ID),
		},
	}
}
