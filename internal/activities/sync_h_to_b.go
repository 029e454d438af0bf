package activities

import (
	"context"
	"time"

	"github.com/oculairmedia/hvbsync/internal/clients"
	"github.com/oculairmedia/hvbsync/internal/conflict"
	"github.com/oculairmedia/hvbsync/internal/dedupe"
	"github.com/oculairmedia/hvbsync/internal/mapping"
	"github.com/oculairmedia/hvbsync/internal/statusmap"
	"github.com/oculairmedia/hvbsync/internal/types"
)

// syncHToB pushes one H issue to System B (spec §4.7 step 3d), only called
// when the project has a resolved repo path. parentBID is the already-
// synced parent's B cross-ID for this cycle, "" if hIssue has no parent or
// its parent hasn't been created on B yet.
func (s *Service) syncHToB(ctx context.Context, project string, idx *dedupe.Index, hIssue clients.TrackerIssue, parentBID string) (string, error) {
	existing, err := s.Store.GetIssue(ctx, project, hIssue.Identifier)
	if err != nil {
		return "", fatalf("syncHToB: load mapping row", err)
	}

	observedStatus := statusmap.HStatusToNormalized(hIssue.State)
	observedAt := hIssue.UpdatedAt
	if observedAt.IsZero() {
		observedAt = time.Now()
	}

	var bID string
	if existing != nil {
		bID = existing.BIssueID
	}
	if bID == "" {
		if mapped, ok := idx.ByHIdentifier(hIssue.Identifier); ok {
			bID = mapped.BIssueID
		}
	}

	var counterpart *clients.TrackerIssue
	if bID != "" {
		counterpart, err = s.B.GetIssue(ctx, bID)
		if err != nil && !types.IsFatal(err) {
			s.Logger.Warn("syncHToB: get b issue failed", "b_id", bID, "err", err)
			counterpart = nil
		} else if err != nil {
			return "", fatalf("syncHToB: get b issue", err)
		}
	}
	if counterpart == nil && bID == "" {
		counterpart, err = s.B.FindByTitle(ctx, project, hIssue.Title)
		if err != nil && !types.IsFatal(err) {
			counterpart = nil
		} else if err != nil {
			return "", fatalf("syncHToB: find by title", err)
		}
	}

	mask := mapping.IssueFieldMask{HStatus: true, HModifiedAt: true}
	issue := types.Issue{Project: project, HIdentifier: hIssue.Identifier, Title: hIssue.Title}
	if existing != nil {
		issue = *existing
	}
	issue.HStatus = observedStatus
	issue.HModifiedAt = clampForward(issue.HModifiedAt, observedAt)

	if counterpart == nil {
		cycleStart := time.Now()
		if existing != nil && existing.DeletedFromB && !conflict.ResolveTombstone(existing.TombstonedAt, cycleStart).Propagate {
			return "", s.persist(ctx, &issue, mask)
		}
		if hIssue.ParentID != "" && !conflict.ResolveParent(parentBID).Propagate {
			return "", s.persist(ctx, &issue, mask)
		}

		created, cerr := s.B.CreateIssue(ctx, project, clients.IssuePayload{
			"title":       hIssue.Title,
			"description": appendBacklink(hIssue.Description, types.SourceH, hIssue.Identifier),
			"priority":    hIssue.Priority,
			"parent":      parentBID,
		})
		if cerr != nil {
			if types.IsFatal(cerr) {
				return "", fatalf("syncHToB: create", cerr)
			}
			s.Logger.Warn("syncHToB: create on b failed", "h_key", hIssue.Identifier, "err", cerr)
			return "", s.persist(ctx, &issue, mask)
		}
		if lc, ok := s.B.(clients.LabelClient); ok {
			if lerr := lc.AddLabel(ctx, created.ID, targetLabel(types.SourceH, hIssue.Identifier)); lerr != nil {
				s.Logger.Warn("syncHToB: add backlink label failed", "b_id", created.ID, "err", lerr)
			}
		}
		mask.BIssueID = true
		mask.BStatus = true
		mask.BModifiedAt = true
		issue.BIssueID = created.ID
		issue.BStatus = statusmap.BStatusToNormalized(created.State)
		issue.BModifiedAt = time.Now()
		return created.ID, s.persist(ctx, &issue, mask)
	}

	patch := clients.IssuePayload{}
	if conflict.ResolveTitle(existing, hIssue.Title).Propagate && counterpart.Title != hIssue.Title {
		patch["title"] = hIssue.Title
	}
	if conflict.ResolveStatus(existing, types.SourceH, types.SourceB, observedStatus, observedAt).Propagate {
		want := statusmap.NormalizedToBStatus(observedStatus)
		if counterpart.State != want {
			patch["status"] = want
		}
	}
	if len(patch) > 0 {
		if perr := s.B.PatchIssue(ctx, counterpart.ID, patch); perr != nil && types.IsFatal(perr) {
			return "", fatalf("syncHToB: patch", perr)
		} else if perr != nil {
			s.Logger.Warn("syncHToB: patch failed", "b_id", counterpart.ID, "err", perr)
		}
	}

	mask.BIssueID = true
	issue.BIssueID = counterpart.ID
	return counterpart.ID, s.persist(ctx, &issue, mask)
}

// clampForward returns next if it's after current, else current, matching
// the monotonic non-decreasing per-source timestamp invariant (invariant 3)
// that mapping.UpsertIssue also enforces at the storage layer; computing it
// here too lets callers branch on the effective value before persisting.
func clampForward(current, next time.Time) time.Time {
	if next.After(current) {
		return next
	}
	return current
}
