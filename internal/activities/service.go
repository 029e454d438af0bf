// Package activities implements the orchestration activities (C8): the
// fetch/topological-partition/sync/persist/snapshot/commit sequence that one
// project cycle runs through, and the per-issue variant driven by SSE or the
// file watcher. Grounded on the teacher's internal/jira and internal/linear
// sync-activity code for the field-diff/create/patch shape, and on
// internal/storage/sqlite for the persist step.
package activities

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/oculairmedia/hvbsync/internal/clients"
	"github.com/oculairmedia/hvbsync/internal/config"
	"github.com/oculairmedia/hvbsync/internal/dedupe"
	"github.com/oculairmedia/hvbsync/internal/mapping"
	"github.com/oculairmedia/hvbsync/internal/types"
	"github.com/oculairmedia/hvbsync/internal/workflow"
)

// Service wires together everything one orchestration cycle needs: the
// mapping store (C4), the three C1 clients, the dedupe cache (C3), and the
// active config (C6). It is constructed once at startup and passed to every
// sync function, replacing the "global mutable state" the teacher's daemon
// command carries in package-level variables (spec §9).
type Service struct {
	Store  mapping.Store
	H      clients.Client
	V      clients.Client
	B      clients.Client
	Dedupe *dedupe.Cache
	Active *config.Active

	// SnapshotURL is the sidecar endpoint board snapshots are POSTed to
	// (C8 step 5) for projects with no AgentMemoryEndpoint of their own; ""
	// skips the step for those projects.
	SnapshotURL string
	HTTPClient  *http.Client

	// Reviews receives a types.ReviewRequest whenever an H issue's normalized
	// status resolves to types.StatusReview. Nil skips the handoff entirely.
	Reviews types.ReviewSink

	Logger *slog.Logger

	projectsMu      sync.Mutex
	projectsCache   []clients.TrackerIssue
	projectsCacheAt time.Time
}

var _ workflow.Runner = (*Service)(nil)

// traceIssueState logs one transition of the per-cycle, per-issue state
// machine (spec §4.9: observed → matched → planned → applied → persisted →
// done | failed). It is pure diagnostics — nothing reads these back within a
// cycle — so a disabled debug level costs one log-level check per call.
func (s *Service) traceIssueState(project, hIdentifier string, state types.IssueSyncState) {
	s.Logger.Debug("issue sync state", "project", project, "h_key", hIdentifier, "state", state)
}

// New constructs a Service. HTTPClient defaults to http.DefaultClient if nil.
func New(store mapping.Store, h, v, b clients.Client, active *config.Active) *Service {
	logger := slog.Default()
	httpClient := http.DefaultClient
	return &Service{
		Store:      store,
		H:          h,
		V:          v,
		B:          b,
		Dedupe:     dedupe.NewCache(dedupe.DefaultTTL),
		Active:     active,
		HTTPClient: httpClient,
		Logger:     logger,
	}
}

// persist writes the mask-selected fields of issue to the mapping store,
// first inserting a minimal projects row when the project has none yet,
// since issues.project references projects.identifier.
func (s *Service) persist(ctx context.Context, issue *types.Issue, mask mapping.IssueFieldMask) error {
	stored, err := s.Store.GetProject(ctx, issue.Project)
	if err != nil {
		return err
	}
	if stored == nil {
		if err := s.Store.UpsertProject(ctx, &types.Project{Identifier: issue.Project, Name: issue.Project}); err != nil {
			return err
		}
	}
	return s.Store.UpsertIssue(ctx, issue, mask)
}

// fatalf wraps a low-level error as a Fatal error for errors the cycle must
// not survive (spec §7: "the sync cycle is successful iff zero Fatal errors
// occurred"), so types.IsFatal(err) reports true for every caller of this
// function.
func fatalf(op string, err error) error {
	return types.NewTrackerError(types.ErrKindFatal, fmt.Sprintf("activities: %s", op), err)
}
