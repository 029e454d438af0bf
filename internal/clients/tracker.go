// Package clients defines the shared C1 client contract implemented by the
// huly, vibe, and beads sub-packages, grounded on the teacher's
// tracker.IssueTracker interface (reconstructed from internal/tracker/
// engine_test.go's mockTracker and the concrete internal/jira/tracker.go and
// internal/linear/tracker.go implementations).
package clients

import (
	"context"
	"time"
)

// TrackerIssue is the generic wire-neutral issue shape every client
// translates its native records into, matching the teacher's
// tracker.TrackerIssue fields (ID, Identifier, Title, Labels, Raw, ...).
type TrackerIssue struct {
	ID          string
	Identifier  string // human-readable key, e.g. "PROJ-123"; empty for UUID-keyed systems
	URL         string
	Title       string
	Description string
	Labels      []string
	Priority    string // native priority name; callers normalize via statusmap
	State       string // native status name; callers normalize via statusmap
	ParentID    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Metadata    map[string]interface{}
}

// FetchOptions parameterizes a listing call.
type FetchOptions struct {
	State string // "open", "closed", or "" for all
	Since *time.Time
	Fields []string
	Limit  int
}

// BulkFetchOptions parameterizes a multi-project bulk listing call (C8 step 2).
type BulkFetchOptions struct {
	Projects []string
	Since    *time.Time
	Fields   []string
	Limit    int
}

// IssuePayload is the generic field map used to create or patch a native
// issue; each client interprets the keys it understands and ignores the rest.
type IssuePayload map[string]interface{}

// Tracker names a C1 client; the contract itself is the Client interface
// below.
type Tracker struct {
	Name string
}

// Client is the C1 contract: every RPC returns a typed record, nil for a
// definitive "not found", or a *types.TrackerError classified per spec §4.1.
// It is implemented by huly.Tracker, vibe.Tracker and beads.Tracker, and
// wrapped by GuardedClient.
type Client interface {
	ListProjects(ctx context.Context) ([]TrackerIssue, error)
	ListIssues(ctx context.Context, project string, opts FetchOptions) ([]TrackerIssue, error)
	BulkListIssues(ctx context.Context, opts BulkFetchOptions) (map[string][]TrackerIssue, error)
	GetIssue(ctx context.Context, key string) (*TrackerIssue, error)
	CreateIssue(ctx context.Context, project string, payload IssuePayload) (*TrackerIssue, error)
	PatchIssue(ctx context.Context, key string, fields IssuePayload) error
	DeleteIssue(ctx context.Context, key string) error
	FindByTitle(ctx context.Context, project, title string) (*TrackerIssue, error)
	SetParent(ctx context.Context, key string, parentKey *string) error
}

// LabelClient is additionally implemented by beads.Tracker (spec §4.1:
// "add_label/remove_label (B only)").
type LabelClient interface {
	AddLabel(ctx context.Context, key, label string) error
	RemoveLabel(ctx context.Context, key, label string) error
}

// CommitClient is additionally implemented by beads.Tracker (spec §4.1:
// "commit_changes (B only)").
type CommitClient interface {
	CommitChanges(ctx context.Context, message string) error
}
