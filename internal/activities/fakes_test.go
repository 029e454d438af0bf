package activities

import (
	"context"
	"fmt"
	"sync"

	"github.com/oculairmedia/hvbsync/internal/clients"
)

// fakeTracker is a minimal in-memory clients.Client double used across
// activities tests, grounded on the mockTracker pattern the teacher uses in
// internal/tracker/engine_test.go.
type fakeTracker struct {
	mu       sync.Mutex
	byID     map[string]*clients.TrackerIssue
	byTitle  map[string]*clients.TrackerIssue
	labels   map[string][]string
	nextID   int
	idPrefix string

	createErr error
	patchErr  error
}

func newFakeTracker(idPrefix string) *fakeTracker {
	return &fakeTracker{
		byID:     make(map[string]*clients.TrackerIssue),
		byTitle:  make(map[string]*clients.TrackerIssue),
		labels:   make(map[string][]string),
		idPrefix: idPrefix,
	}
}

func (f *fakeTracker) ListProjects(ctx context.Context) ([]clients.TrackerIssue, error) {
	return nil, nil
}

func (f *fakeTracker) ListIssues(ctx context.Context, project string, opts clients.FetchOptions) ([]clients.TrackerIssue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]clients.TrackerIssue, 0, len(f.byID))
	for _, issue := range f.byID {
		out = append(out, *issue)
	}
	return out, nil
}

func (f *fakeTracker) BulkListIssues(ctx context.Context, opts clients.BulkFetchOptions) (map[string][]clients.TrackerIssue, error) {
	return nil, nil
}

func (f *fakeTracker) GetIssue(ctx context.Context, key string) (*clients.TrackerIssue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	issue, ok := f.byID[key]
	if !ok {
		return nil, nil
	}
	cp := *issue
	return &cp, nil
}

func (f *fakeTracker) CreateIssue(ctx context.Context, project string, payload clients.IssuePayload) (*clients.TrackerIssue, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("%s-%d", f.idPrefix, f.nextID)
	title, _ := payload["title"].(string)
	status, _ := payload["status"].(string)
	desc, _ := payload["description"].(string)
	issue := &clients.TrackerIssue{ID: id, Identifier: id, Title: title, State: status, Description: desc}
	f.byID[id] = issue
	f.byTitle[title] = issue
	return issue, nil
}

func (f *fakeTracker) PatchIssue(ctx context.Context, key string, fields clients.IssuePayload) error {
	if f.patchErr != nil {
		return f.patchErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	issue, ok := f.byID[key]
	if !ok {
		return nil
	}
	if title, ok := fields["title"].(string); ok {
		issue.Title = title
	}
	if status, ok := fields["status"].(string); ok {
		issue.State = status
	}
	return nil
}

func (f *fakeTracker) DeleteIssue(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, key)
	return nil
}

func (f *fakeTracker) FindByTitle(ctx context.Context, project, title string) (*clients.TrackerIssue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	issue, ok := f.byTitle[title]
	if !ok {
		return nil, nil
	}
	cp := *issue
	return &cp, nil
}

func (f *fakeTracker) SetParent(ctx context.Context, key string, parentKey *string) error {
	return nil
}

func (f *fakeTracker) AddLabel(ctx context.Context, key, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.labels[key] = append(f.labels[key], label)
	return nil
}

func (f *fakeTracker) RemoveLabel(ctx context.Context, key, label string) error {
	return nil
}

func (f *fakeTracker) CommitChanges(ctx context.Context, message string) error {
	return nil
}

var (
	_ clients.Client       = (*fakeTracker)(nil)
	_ clients.LabelClient  = (*fakeTracker)(nil)
	_ clients.CommitClient = (*fakeTracker)(nil)
)
