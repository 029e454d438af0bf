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

// syncHToV pushes one H issue to System V (spec §4.7 step 3d), only called
// when the project has a linked V project. parentVID is the already-synced
// parent's V cross-ID for this cycle (invariant 7), "" if none yet.
func (s *Service) syncHToV(ctx context.Context, project, vProjectID string, idx *dedupe.Index, hIssue clients.TrackerIssue, parentVID string) (string, error) {
	existing, err := s.Store.GetIssue(ctx, project, hIssue.Identifier)
	if err != nil {
		return "", fatalf("syncHToV: load mapping row", err)
	}

	observedStatus := statusmap.HStatusToNormalized(hIssue.State)
	observedAt := hIssue.UpdatedAt
	if observedAt.IsZero() {
		observedAt = time.Now()
	}

	var vID string
	if existing != nil {
		vID = existing.VTaskID
	}
	if vID == "" {
		if mapped, ok := idx.ByHIdentifier(hIssue.Identifier); ok {
			vID = mapped.VTaskID
		}
	}

	var counterpart *clients.TrackerIssue
	if vID != "" {
		counterpart, err = s.V.GetIssue(ctx, vID)
		if err != nil && !types.IsFatal(err) {
			s.Logger.Warn("syncHToV: get v task failed", "v_id", vID, "err", err)
			counterpart = nil
		} else if err != nil {
			return "", fatalf("syncHToV: get v task", err)
		}
	}
	if counterpart == nil && vID == "" {
		counterpart, err = s.V.FindByTitle(ctx, vProjectID, hIssue.Title)
		if err != nil && !types.IsFatal(err) {
			counterpart = nil
		} else if err != nil {
			return "", fatalf("syncHToV: find by title", err)
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
		if existing != nil && existing.DeletedFromV && !conflict.ResolveTombstone(existing.TombstonedAt, cycleStart).Propagate {
			return "", s.persist(ctx, &issue, mask)
		}
		if hIssue.ParentID != "" && !conflict.ResolveParent(parentVID).Propagate {
			return "", s.persist(ctx, &issue, mask)
		}

		payload := clients.IssuePayload{
			"title":       hIssue.Title,
			"description": appendBacklink(hIssue.Description, types.SourceH, hIssue.Identifier),
			"status":      statusmap.NormalizedToVStatus(observedStatus),
		}
		if parentVID != "" {
			payload["parent"] = parentVID
		}
		created, cerr := s.V.CreateIssue(ctx, vProjectID, payload)
		if cerr != nil {
			if types.IsFatal(cerr) {
				return "", fatalf("syncHToV: create", cerr)
			}
			s.Logger.Warn("syncHToV: create on v failed", "h_key", hIssue.Identifier, "err", cerr)
			return "", s.persist(ctx, &issue, mask)
		}

		mask.VTaskID = true
		mask.VStatus = true
		mask.VModifiedAt = true
		issue.VTaskID = created.ID
		issue.VStatus = statusmap.VStatusToNormalized(created.State)
		issue.VModifiedAt = time.Now()
		return created.ID, s.persist(ctx, &issue, mask)
	}

	patch := clients.IssuePayload{}
	if conflict.ResolveTitle(existing, hIssue.Title).Propagate && counterpart.Title != hIssue.Title {
		patch["title"] = hIssue.Title
	}
	if conflict.ResolveStatus(existing, types.SourceH, types.SourceV, observedStatus, observedAt).Propagate {
		want := statusmap.NormalizedToVStatus(observedStatus)
		if counterpart.State != want {
			patch["status"] = want
		}
	}
	if len(patch) > 0 {
		if perr := s.V.PatchIssue(ctx, counterpart.ID, patch); perr != nil && types.IsFatal(perr) {
			return "", fatalf("syncHToV: patch", perr)
		} else if perr != nil {
			s.Logger.Warn("syncHToV: patch failed", "v_id", counterpart.ID, "err", perr)
		}
	}

	mask.VTaskID = true
	issue.VTaskID = counterpart.ID
	return counterpart.ID, s.persist(ctx, &issue, mask)
}
