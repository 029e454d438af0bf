package activities

import (
	"context"
	"fmt"
	"time"

	"github.com/oculairmedia/hvbsync/internal/clients"
	"github.com/oculairmedia/hvbsync/internal/statusmap"
	"github.com/oculairmedia/hvbsync/internal/types"
	"github.com/oculairmedia/hvbsync/internal/workflow"
)

// RunProjectCycle implements workflow.Runner and is the entry point for both
// WorkflowOrchestration and WorkflowWebhookChangeOrch (spec §4.5): the full
// fetch/partition/sync/persist/snapshot/commit sequence of §4.7 for one
// project.
func (s *Service) RunProjectCycle(ctx context.Context, project string) error {
	projects, err := s.FetchProjects(ctx)
	if err != nil {
		return err
	}
	var hProject *clients.TrackerIssue
	for i := range projects {
		if projects[i].Identifier == project {
			hProject = &projects[i]
			break
		}
	}
	if hProject == nil {
		return fmt.Errorf("activities: run project cycle: project %q not found in H", project)
	}

	stored, err := s.Store.GetProject(ctx, project)
	if err != nil {
		return fatalf("run project cycle: load project row", err)
	}
	if stored == nil {
		stored = &types.Project{Identifier: project, Name: hProject.Title}
	}
	if stored.RepoPath == "" {
		if repoPath, ok := ResolveRepoPath(hProject.Description); ok {
			stored.RepoPath = repoPath
		}
	}
	if stored.RepoPath != "" && (stored.VProjectID == "" || stored.AgentMemoryEndpoint == nil) {
		if rc, err := loadRepoConfig(stored.RepoPath); err != nil {
			s.Logger.Warn("run project cycle: read repo config.toml failed", "project", project, "err", err)
		} else {
			if stored.VProjectID == "" && rc.Hvbsync.VProjectID != "" {
				stored.VProjectID = rc.Hvbsync.VProjectID
			}
			if stored.AgentMemoryEndpoint == nil && rc.Hvbsync.AgentMemoryEndpoint != "" {
				endpoint := rc.Hvbsync.AgentMemoryEndpoint
				stored.AgentMemoryEndpoint = &endpoint
			}
		}
	}

	since := stored.LastSyncAt
	var sincePtr *time.Time
	if !since.IsZero() {
		sincePtr = &since
	}

	idx, err := s.Dedupe.Get(ctx, s.Store, project)
	if err != nil {
		return fatalf("run project cycle: build dedupe index", err)
	}

	bulk, err := s.FetchBulkIssues(ctx, []string{project}, sincePtr)
	if err != nil {
		return fatalf("run project cycle: fetch bulk issues", err)
	}
	hIssues := PartitionTopological(bulk[project])

	parentBID := make(map[string]string, len(hIssues))
	parentVID := make(map[string]string, len(hIssues))
	for _, issue := range hIssues {
		if mapped, ok := idx.ByHIdentifier(issue.Identifier); ok {
			if mapped.BIssueID != "" {
				parentBID[issue.Identifier] = mapped.BIssueID
			}
			if mapped.VTaskID != "" {
				parentVID[issue.Identifier] = mapped.VTaskID
			}
		}
	}

	var anyFatal error
	for _, hIssue := range hIssues {
		s.traceIssueState(project, hIssue.Identifier, types.IssueStateObserved)

		pBID := ""
		if hIssue.ParentID != "" {
			pBID = parentBID[hIssue.ParentID]
		}
		pVID := ""
		if hIssue.ParentID != "" {
			pVID = parentVID[hIssue.ParentID]
		}
		s.traceIssueState(project, hIssue.Identifier, types.IssueStateMatched)

		if s.Reviews != nil && statusmap.HStatusToNormalized(hIssue.State) == types.StatusReview {
			s.Reviews.Record(types.ReviewRequest{
				Project:     project,
				HIdentifier: hIssue.Identifier,
				Status:      types.StatusReview,
				Reason:      "h issue entered review status",
				CreatedAt:   time.Now().UTC(),
			})
		}

		s.traceIssueState(project, hIssue.Identifier, types.IssueStatePlanned)
		failed := false

		if stored.RepoPath != "" {
			var createdBID string
			err := workflow.RunActivity(ctx, clients.DefaultRetryPolicy, func(ctx context.Context) error {
				var err error
				createdBID, err = s.syncHToB(ctx, project, idx, hIssue, pBID)
				return err
			})
			if err != nil {
				if types.IsFatal(err) {
					anyFatal = err
					s.traceIssueState(project, hIssue.Identifier, types.IssueStateFailed)
					continue
				}
				failed = true
				s.Logger.Warn("syncHToB failed", "project", project, "h_key", hIssue.Identifier, "err", err)
			} else if createdBID != "" {
				parentBID[hIssue.Identifier] = createdBID
			}
		}
		if stored.VProjectID != "" {
			var createdVID string
			err := workflow.RunActivity(ctx, clients.DefaultRetryPolicy, func(ctx context.Context) error {
				var err error
				createdVID, err = s.syncHToV(ctx, project, stored.VProjectID, idx, hIssue, pVID)
				return err
			})
			if err != nil {
				if types.IsFatal(err) {
					anyFatal = err
					s.traceIssueState(project, hIssue.Identifier, types.IssueStateFailed)
					continue
				}
				failed = true
				s.Logger.Warn("syncHToV failed", "project", project, "h_key", hIssue.Identifier, "err", err)
			} else if createdVID != "" {
				parentVID[hIssue.Identifier] = createdVID
			}
		}

		s.traceIssueState(project, hIssue.Identifier, types.IssueStateApplied)
		s.traceIssueState(project, hIssue.Identifier, types.IssueStatePersisted)
		if failed {
			s.traceIssueState(project, hIssue.Identifier, types.IssueStateFailed)
		} else {
			s.traceIssueState(project, hIssue.Identifier, types.IssueStateDone)
		}
	}

	seenVIDs := map[string]bool{}
	seenBIDs := map[string]bool{}
	listed := true

	if stored.RepoPath != "" {
		bIssues, err := s.B.ListIssues(ctx, project, clients.FetchOptions{})
		if err != nil && !types.IsFatal(err) {
			s.Logger.Warn("list b issues failed", "project", project, "err", err)
			listed = false
		} else if err != nil {
			anyFatal = err
			listed = false
		} else {
			for _, bIssue := range bIssues {
				seenBIDs[bIssue.ID] = true
				// B-side errors are non-fatal by policy.
				err := workflow.RunActivity(ctx, clients.DefaultRetryPolicy, func(ctx context.Context) error {
					return s.syncBToHOrCreate(ctx, project, idx, bIssue)
				})
				if !workflow.NonFatal(types.SourceB, err) {
					anyFatal = err
				} else if err != nil {
					s.Logger.Warn("syncBToHOrCreate failed", "project", project, "b_id", bIssue.ID, "err", err)
				}
			}
		}
	}

	if stored.VProjectID != "" {
		vIssues, err := s.V.ListIssues(ctx, stored.VProjectID, clients.FetchOptions{})
		if err == nil {
			for _, v := range vIssues {
				seenVIDs[v.ID] = true
			}
		} else {
			listed = false
		}
	}

	// A failed listing observed nothing, so reconciling against its empty
	// set would tombstone every mapped row; skip the sweep this cycle.
	if listed {
		if err := s.reconcileStaleCrossIDs(ctx, project, seenVIDs, seenBIDs); err != nil && types.IsFatal(err) {
			anyFatal = err
		}
	}

	snapshotEndpoint := s.SnapshotURL
	if stored.AgentMemoryEndpoint != nil {
		snapshotEndpoint = *stored.AgentMemoryEndpoint
	}
	if snapshotEndpoint != "" {
		_ = s.writeBoardSnapshot(ctx, snapshotEndpoint, project)
	}

	if stored.RepoPath != "" {
		if cc, ok := s.B.(clients.CommitClient); ok {
			if err := cc.CommitChanges(ctx, fmt.Sprintf("sync: %s", project)); err != nil {
				s.Logger.Warn("commit b changes failed", "project", project, "err", err)
			}
		}
	}

	if anyFatal == nil {
		stored.LastSyncAt = time.Now()
	}
	if !s.Active.Get().DryRun {
		if err := s.Store.UpsertProject(ctx, stored); err != nil {
			return fatalf("run project cycle: persist project row", err)
		}
	}

	return anyFatal
}

// RunPerIssue implements workflow.Runner's fast path for a single SSE- or
// file-watcher-delivered change (spec §4.5's Vibe/Beads per-issue
// workflows), bypassing the full fetch/partition sequence.
func (s *Service) RunPerIssue(ctx context.Context, project, issueKey string, fromSource workflow.WorkflowOrigin) error {
	idx, err := s.Dedupe.Get(ctx, s.Store, project)
	if err != nil {
		return fatalf("run per issue: build dedupe index", err)
	}

	switch fromSource {
	case workflow.OriginVibeChange:
		task, err := s.V.GetIssue(ctx, issueKey)
		if err != nil {
			if types.IsFatal(err) {
				return fatalf("run per issue: get v task", err)
			}
			s.Logger.Warn("run per issue: get v task failed", "project", project, "v_id", issueKey, "err", err)
			return nil
		}
		if task == nil {
			return nil
		}
		return workflow.RunActivity(ctx, clients.DefaultRetryPolicy, func(ctx context.Context) error {
			return s.syncVToH(ctx, project, idx, *task)
		})

	case workflow.OriginBeadsChange:
		bIssue, err := s.B.GetIssue(ctx, issueKey)
		if err != nil {
			if types.IsFatal(err) {
				return fatalf("run per issue: get b issue", err)
			}
			s.Logger.Warn("run per issue: get b issue failed", "project", project, "b_id", issueKey, "err", err)
			return nil
		}
		if bIssue == nil {
			return nil
		}
		err = workflow.RunActivity(ctx, clients.DefaultRetryPolicy, func(ctx context.Context) error {
			return s.syncBToHOrCreate(ctx, project, idx, *bIssue)
		})
		if !workflow.NonFatal(types.SourceB, err) {
			return err
		}
		if err != nil {
			s.Logger.Warn("run per issue: syncBToHOrCreate failed", "project", project, "b_id", issueKey, "err", err)
		}
		return nil

	default:
		return fmt.Errorf("activities: run per issue: unknown origin %q", fromSource)
	}
}
