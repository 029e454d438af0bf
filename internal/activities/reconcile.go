package activities

import (
	"context"

	"github.com/oculairmedia/hvbsync/internal/clients"
	"github.com/oculairmedia/hvbsync/internal/config"
	"github.com/oculairmedia/hvbsync/internal/types"
)

// Reconcile runs spec §8 scenario 5's stale-cross-ID sweep for project on
// its own, without running a full sync pass first — the `hvbsync reconcile`
// CLI subcommand's entry point. It re-lists V and B the same way
// RunProjectCycle does so a standalone invocation observes exactly what a
// cycle would have.
func (s *Service) Reconcile(ctx context.Context, project string) error {
	stored, err := s.Store.GetProject(ctx, project)
	if err != nil {
		return fatalf("reconcile: load project row", err)
	}
	if stored == nil {
		stored = &types.Project{Identifier: project}
	}

	seenVIDs := map[string]bool{}
	seenBIDs := map[string]bool{}

	if stored.VProjectID != "" {
		vIssues, err := s.V.ListIssues(ctx, stored.VProjectID, clients.FetchOptions{})
		if err != nil {
			return fatalf("reconcile: list v issues", err)
		}
		for _, v := range vIssues {
			seenVIDs[v.ID] = true
		}
	}

	if stored.RepoPath != "" {
		bIssues, err := s.B.ListIssues(ctx, project, clients.FetchOptions{})
		if err != nil {
			return fatalf("reconcile: list b issues", err)
		}
		for _, b := range bIssues {
			seenBIDs[b.ID] = true
		}
	}

	return s.reconcileStaleCrossIDs(ctx, project, seenVIDs, seenBIDs)
}

// reconcileStaleCrossIDs implements spec §8 scenario 5: when an upstream
// listing no longer returns a cross-ID the mapping store has recorded, apply
// the configured ReconciliationAction rather than silently forgetting it.
// Called once per project per cycle after the sync passes, with the fresh
// sets of V task IDs and B issue IDs the cycle actually observed upstream.
func (s *Service) reconcileStaleCrossIDs(ctx context.Context, project string, seenVIDs, seenBIDs map[string]bool) error {
	cfg := s.Active.Get()

	vRows, err := s.Store.GetIssuesWithVID(ctx, project)
	if err != nil {
		return fatalf("reconcile: load v rows", err)
	}
	for _, row := range vRows {
		if row.VTaskID == "" || seenVIDs[row.VTaskID] {
			continue
		}
		if err := s.applyReconciliation(ctx, cfg, row, types.SourceV); err != nil {
			return err
		}
	}

	bRows, err := s.Store.GetIssuesWithBID(ctx, project)
	if err != nil {
		return fatalf("reconcile: load b rows", err)
	}
	for _, row := range bRows {
		if row.BIssueID == "" || seenBIDs[row.BIssueID] {
			continue
		}
		if err := s.applyReconciliation(ctx, cfg, row, types.SourceB); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) applyReconciliation(ctx context.Context, cfg *config.Config, row *types.Issue, missingFrom types.Source) error {
	if cfg.ReconciliationDryRun {
		s.Logger.Info("reconciliation (dry-run): would act on stale cross-id", "project", row.Project, "h_key", row.HIdentifier, "missing_from", missingFrom, "action", cfg.ReconciliationAction)
		return nil
	}

	switch cfg.ReconciliationAction {
	case config.ReconciliationHardDelete:
		if err := s.Store.HardDeleteIssue(ctx, row.Project, row.HIdentifier); err != nil {
			return fatalf("reconcile: hard delete", err)
		}
	default: // mark_deleted
		var err error
		switch missingFrom {
		case types.SourceV:
			err = s.Store.MarkDeletedFromV(ctx, row.Project, row.HIdentifier)
		case types.SourceB:
			err = s.Store.MarkDeletedFromB(ctx, row.Project, row.HIdentifier)
		}
		if err != nil {
			return fatalf("reconcile: mark deleted", err)
		}
	}
	return nil
}
