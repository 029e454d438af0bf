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

// syncVToH routes one V SSE-delivered task update to its H counterpart
// (spec §4.7 step 3f). vTask.ID is the Vibe task UUID; the mapping row is
// located by scanning the project's rows that carry a V cross-ID, since the
// dedupe index doesn't carry a by-VID map (idx is not consulted here; V
// tasks are comparatively few per project and this path only runs per SSE
// event, not per cycle).
func (s *Service) syncVToH(ctx context.Context, project string, idx *dedupe.Index, vTask clients.TrackerIssue) error {
	issues, err := s.Store.GetIssuesWithVID(ctx, project)
	if err != nil {
		return fatalf("syncVToH: load issues with v id", err)
	}
	var existing *types.Issue
	for _, candidate := range issues {
		if candidate.VTaskID == vTask.ID {
			existing = candidate
			break
		}
	}
	if existing == nil {
		// No known H counterpart for this V task yet; nothing to route this
		// is a V-originated task not yet cross-linked. The next full
		// orchestration cycle's syncHToV pass is responsible for linking new
		// H-side issues; a V-originated task with no H counterpart is out of
		// scope for this per-issue fast path (spec §4.4.3 routes these to the
		// per-project orchestration on the next tick instead).
		return nil
	}

	observedStatus := statusmap.VStatusToNormalized(vTask.State)
	observedAt := vTask.UpdatedAt
	if observedAt.IsZero() {
		observedAt = time.Now()
	}

	hCounterpart, err := s.H.GetIssue(ctx, existing.HIdentifier)
	if err != nil && !types.IsFatal(err) {
		s.Logger.Warn("syncVToH: get h issue failed", "h_key", existing.HIdentifier, "err", err)
		hCounterpart = nil
	} else if err != nil {
		return fatalf("syncVToH: get h issue", err)
	}

	mask := mapping.IssueFieldMask{VTaskID: true, VStatus: true, VModifiedAt: true}
	issue := *existing
	issue.VTaskID = vTask.ID
	issue.VStatus = observedStatus
	issue.VModifiedAt = clampForward(issue.VModifiedAt, observedAt)

	if hCounterpart == nil {
		return s.persist(ctx, &issue, mask)
	}

	patch := clients.IssuePayload{}
	if conflict.ResolveTitle(existing, vTask.Title).Propagate && hCounterpart.Title != vTask.Title {
		patch["title"] = vTask.Title
	}
	if conflict.ResolveStatus(existing, types.SourceV, types.SourceH, observedStatus, observedAt).Propagate {
		want := statusmap.NormalizedToHStatus(observedStatus)
		if hCounterpart.State != want {
			patch["status"] = want
		}
	}
	if len(patch) > 0 {
		if perr := s.H.PatchIssue(ctx, existing.HIdentifier, patch); perr != nil && types.IsFatal(perr) {
			return fatalf("syncVToH: patch", perr)
		} else if perr != nil {
			s.Logger.Warn("syncVToH: patch failed", "h_key", existing.HIdentifier, "err", perr)
		}
	}

	return s.persist(ctx, &issue, mask)
}
