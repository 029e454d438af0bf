package activities

import (
	"context"
	"strings"
	"time"

	"github.com/oculairmedia/hvbsync/internal/clients"
	"github.com/oculairmedia/hvbsync/internal/conflict"
	"github.com/oculairmedia/hvbsync/internal/dedupe"
	"github.com/oculairmedia/hvbsync/internal/mapping"
	"github.com/oculairmedia/hvbsync/internal/statusmap"
	"github.com/oculairmedia/hvbsync/internal/types"
)

// hLabelPrefix is the label B issues carry once cross-linked to H, e.g.
// "h:PROJ-7" (spec §4.7 step 3e, §8 scenario 2).
const hLabelPrefix = "h:"

// syncBToHOrCreate handles one B issue per spec §4.7 step 3e: if it already
// carries an "h:<identifier>" label, sync fields onto that H issue
// (syncBToH); otherwise create a new H issue and label B back (createBInH).
func (s *Service) syncBToHOrCreate(ctx context.Context, project string, idx *dedupe.Index, bIssue clients.TrackerIssue) error {
	hKey := labeledHKey(bIssue.Labels)
	if hKey != "" {
		return s.syncBToH(ctx, project, idx, bIssue, hKey)
	}
	if mapped, ok := idx.ByBID(bIssue.ID); ok && mapped.HIdentifier != "" {
		return s.syncBToH(ctx, project, idx, bIssue, mapped.HIdentifier)
	}
	return s.createBInH(ctx, project, bIssue)
}

func labeledHKey(labels []string) string {
	for _, label := range labels {
		if strings.HasPrefix(label, hLabelPrefix) {
			return strings.TrimPrefix(label, hLabelPrefix)
		}
	}
	return ""
}

// syncBToH pushes B field changes onto an already-linked H issue. B-side
// errors never fail the activity (spec §7: "B-side errors are non-fatal by
// policy") but this function's own errors are H-side, so it follows the
// ordinary Fatal/non-Fatal split.
func (s *Service) syncBToH(ctx context.Context, project string, idx *dedupe.Index, bIssue clients.TrackerIssue, hKey string) error {
	existing, err := s.Store.GetIssue(ctx, project, hKey)
	if err != nil {
		return fatalf("syncBToH: load mapping row", err)
	}

	observedStatus := statusmap.BStatusToNormalized(bIssue.State)
	observedAt := bIssue.UpdatedAt
	if observedAt.IsZero() {
		observedAt = time.Now()
	}

	hCounterpart, err := s.H.GetIssue(ctx, hKey)
	if err != nil && !types.IsFatal(err) {
		s.Logger.Warn("syncBToH: get h issue failed", "h_key", hKey, "err", err)
		hCounterpart = nil
	} else if err != nil {
		return fatalf("syncBToH: get h issue", err)
	}

	mask := mapping.IssueFieldMask{BIssueID: true, BStatus: true, BModifiedAt: true}
	issue := types.Issue{Project: project, HIdentifier: hKey, BIssueID: bIssue.ID}
	if existing != nil {
		issue = *existing
	}
	issue.BIssueID = bIssue.ID
	issue.BStatus = observedStatus
	issue.BModifiedAt = clampForward(issue.BModifiedAt, observedAt)

	if hCounterpart == nil {
		// H counterpart vanished; this row becomes a tombstone candidate for
		// the next reconciliation pass rather than creating a duplicate here.
		return s.persist(ctx, &issue, mask)
	}

	patch := clients.IssuePayload{}
	if conflict.ResolveTitle(existing, bIssue.Title).Propagate && hCounterpart.Title != bIssue.Title {
		patch["title"] = bIssue.Title
	}
	if statusmap.ForwardableBStatuses[observedStatus] {
		if conflict.ResolveStatus(existing, types.SourceB, types.SourceH, observedStatus, observedAt).Propagate {
			want := statusmap.NormalizedToHStatus(observedStatus)
			if hCounterpart.State != want {
				patch["status"] = want
			}
		}
	}
	if len(patch) > 0 {
		if perr := s.H.PatchIssue(ctx, hKey, patch); perr != nil && types.IsFatal(perr) {
			return fatalf("syncBToH: patch", perr)
		} else if perr != nil {
			s.Logger.Warn("syncBToH: patch failed", "h_key", hKey, "err", perr)
		}
	}

	return s.persist(ctx, &issue, mask)
}

// createBInH creates a new H issue for an unlabeled B issue and labels B
// back with "h:<new identifier>" (spec §8 scenario 2).
func (s *Service) createBInH(ctx context.Context, project string, bIssue clients.TrackerIssue) error {
	created, err := s.H.CreateIssue(ctx, project, clients.IssuePayload{
		"title":       bIssue.Title,
		"description": appendBacklink(bIssue.Description, types.SourceB, bIssue.ID),
		"priority":    bIssue.Priority,
	})
	if err != nil {
		if types.IsFatal(err) {
			return fatalf("createBInH: create", err)
		}
		s.Logger.Warn("createBInH: create on h failed", "b_id", bIssue.ID, "err", err)
		return nil
	}

	if lc, ok := s.B.(clients.LabelClient); ok {
		if lerr := lc.AddLabel(ctx, bIssue.ID, targetLabel(types.SourceH, created.Identifier)); lerr != nil {
			s.Logger.Warn("createBInH: add backlink label failed", "b_id", bIssue.ID, "err", lerr)
		}
	}

	issue := types.Issue{
		Project:     project,
		HIdentifier: created.Identifier,
		Title:       bIssue.Title,
		HID:         created.ID,
		BIssueID:    bIssue.ID,
		BStatus:     statusmap.BStatusToNormalized(bIssue.State),
		BModifiedAt: time.Now(),
	}
	mask := mapping.IssueFieldMask{HID: true, BIssueID: true, BStatus: true, BModifiedAt: true, Title: true}
	return s.persist(ctx, &issue, mask)
}
