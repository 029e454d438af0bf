package clients

import (
	"context"

	"github.com/sony/gobreaker"
)

// GuardedClient wraps a Client so every call passes through a single
// per-dependency circuit breaker (spec §7), translating a tripped breaker
// into a Transient error rather than letting the underlying transport error
// propagate directly. One GuardedClient should be constructed per upstream
// dependency (H, V, B), matching NewBreaker's "per-dependency" contract.
type GuardedClient struct {
	inner   Client
	breaker *gobreaker.CircuitBreaker
}

// NewGuardedClient wraps inner behind a breaker named name.
func NewGuardedClient(name string, inner Client) *GuardedClient {
	return &GuardedClient{inner: inner, breaker: NewBreaker(name)}
}

func (g *GuardedClient) ListProjects(ctx context.Context) ([]TrackerIssue, error) {
	res, err := Guarded(ctx, g.breaker, "list_projects", func() (interface{}, error) {
		return g.inner.ListProjects(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.([]TrackerIssue), nil
}

func (g *GuardedClient) ListIssues(ctx context.Context, project string, opts FetchOptions) ([]TrackerIssue, error) {
	res, err := Guarded(ctx, g.breaker, "list_issues", func() (interface{}, error) {
		return g.inner.ListIssues(ctx, project, opts)
	})
	if err != nil {
		return nil, err
	}
	return res.([]TrackerIssue), nil
}

func (g *GuardedClient) BulkListIssues(ctx context.Context, opts BulkFetchOptions) (map[string][]TrackerIssue, error) {
	res, err := Guarded(ctx, g.breaker, "bulk_list_issues", func() (interface{}, error) {
		return g.inner.BulkListIssues(ctx, opts)
	})
	if err != nil {
		return nil, err
	}
	return res.(map[string][]TrackerIssue), nil
}

func (g *GuardedClient) GetIssue(ctx context.Context, key string) (*TrackerIssue, error) {
	res, err := Guarded(ctx, g.breaker, "get_issue", func() (interface{}, error) {
		return g.inner.GetIssue(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return res.(*TrackerIssue), nil
}

func (g *GuardedClient) CreateIssue(ctx context.Context, project string, payload IssuePayload) (*TrackerIssue, error) {
	res, err := Guarded(ctx, g.breaker, "create_issue", func() (interface{}, error) {
		return g.inner.CreateIssue(ctx, project, payload)
	})
	if err != nil {
		return nil, err
	}
	return res.(*TrackerIssue), nil
}

func (g *GuardedClient) PatchIssue(ctx context.Context, key string, fields IssuePayload) error {
	_, err := Guarded(ctx, g.breaker, "patch_issue", func() (interface{}, error) {
		return nil, g.inner.PatchIssue(ctx, key, fields)
	})
	return err
}

func (g *GuardedClient) DeleteIssue(ctx context.Context, key string) error {
	_, err := Guarded(ctx, g.breaker, "delete_issue", func() (interface{}, error) {
		return nil, g.inner.DeleteIssue(ctx, key)
	})
	return err
}

func (g *GuardedClient) FindByTitle(ctx context.Context, project, title string) (*TrackerIssue, error) {
	res, err := Guarded(ctx, g.breaker, "find_by_title", func() (interface{}, error) {
		return g.inner.FindByTitle(ctx, project, title)
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return res.(*TrackerIssue), nil
}

func (g *GuardedClient) SetParent(ctx context.Context, key string, parentKey *string) error {
	_, err := Guarded(ctx, g.breaker, "set_parent", func() (interface{}, error) {
		return nil, g.inner.SetParent(ctx, key, parentKey)
	})
	return err
}

// AddLabel forwards to inner's LabelClient implementation, if any.
func (g *GuardedClient) AddLabel(ctx context.Context, key, label string) error {
	lc, ok := g.inner.(LabelClient)
	if !ok {
		return nil
	}
	_, err := Guarded(ctx, g.breaker, "add_label", func() (interface{}, error) {
		return nil, lc.AddLabel(ctx, key, label)
	})
	return err
}

// RemoveLabel forwards to inner's LabelClient implementation, if any.
func (g *GuardedClient) RemoveLabel(ctx context.Context, key, label string) error {
	lc, ok := g.inner.(LabelClient)
	if !ok {
		return nil
	}
	_, err := Guarded(ctx, g.breaker, "remove_label", func() (interface{}, error) {
		return nil, lc.RemoveLabel(ctx, key, label)
	})
	return err
}

// CommitChanges forwards to inner's CommitClient implementation, if any.
func (g *GuardedClient) CommitChanges(ctx context.Context, message string) error {
	cc, ok := g.inner.(CommitClient)
	if !ok {
		return nil
	}
	_, err := Guarded(ctx, g.breaker, "commit_changes", func() (interface{}, error) {
		return nil, cc.CommitChanges(ctx, message)
	})
	return err
}

var (
	_ Client       = (*GuardedClient)(nil)
	_ LabelClient  = (*GuardedClient)(nil)
	_ CommitClient = (*GuardedClient)(nil)
)
