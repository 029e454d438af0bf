// Package conflict implements the six conflict-resolution rules (spec §4.8)
// consulted inside every syncHToB/syncHToV/syncBToH/syncVToH activity.
// Grounded on the field-merge switches in internal/jira's and
// internal/linear's tracker code and on the monotonic-clamp/field-mask
// pattern already established by internal/mapping/issues.go.
package conflict

import (
	"time"

	"github.com/oculairmedia/hvbsync/internal/statusmap"
	"github.com/oculairmedia/hvbsync/internal/types"
)

// Decision is the outcome of evaluating the conflict rules for one issue
// field ahead of a propagation attempt.
type Decision struct {
	// Propagate is true when the caller should proceed with writing the
	// field to the target side.
	Propagate bool
	// Reason is a short, human-readable explanation for logging; empty
	// when Propagate is true for the ordinary, uncontested case.
	Reason string
}

var propagate = Decision{Propagate: true}

func block(reason string) Decision {
	return Decision{Propagate: false, Reason: reason}
}

// ResolveStatus decides whether a status change observed on source should be
// propagated to target, applying rules 1-3 of §4.8 in order: closed-wins,
// the B->H status domain restriction, and last-writer-wins by modified_at
// (otherwise H wins). target is the side the propagation would write to;
// rule 1 only ever guards writes into H (spec §4.8 rule 1, invariant 4 scope
// it to "its effective status in H"), so forwarding H's own already-resolved
// status outward to B or V — syncHToB/syncHToV's source=H, target=B/V calls
// — never sees it, letting a closed-equivalent status reach B or V in the
// same or a later cycle (spec §8 scenario 3's "V may be updated back to
// done on next cycle").
func ResolveStatus(existing *types.Issue, source, target types.Source, observedStatus types.Status, observedAt time.Time) Decision {
	// Rule 1: closed-wins. Once B has reported closed, nothing but B itself
	// changing status again may move the issue off closed in H.
	if existing != nil && existing.BStatus == types.StatusClosed && target == types.SourceH && source != types.SourceB {
		return block("closed-wins: b_status is closed, ignoring non-B status change")
	}

	// Rule 2: status domain restriction, B->H only. Bare "open" reported by
	// B must never be forwarded; it would just be churn against whatever H
	// already has.
	if source == types.SourceB && !statusmap.ForwardableBStatuses[observedStatus] {
		return block("status domain restriction: b status not in forwardable set")
	}

	if existing == nil {
		return propagate
	}

	// Rule 3: last-writer-wins by modified_at per side, otherwise H wins.
	switch source {
	case types.SourceB:
		if !existing.BModifiedAt.IsZero() && !observedAt.After(existing.BModifiedAt) && !observedAt.Equal(existing.BModifiedAt) {
			return block("last-writer-wins: stale b observation")
		}
		if !existing.HModifiedAt.IsZero() && !observedAt.After(existing.HModifiedAt) {
			return block("last-writer-wins: h is newer, h wins on tie/ambiguity")
		}
	case types.SourceV:
		if !existing.VModifiedAt.IsZero() && !observedAt.After(existing.VModifiedAt) && !observedAt.Equal(existing.VModifiedAt) {
			return block("last-writer-wins: stale v observation")
		}
		if !existing.HModifiedAt.IsZero() && !observedAt.After(existing.HModifiedAt) {
			return block("last-writer-wins: h is newer, h wins on tie/ambiguity")
		}
	case types.SourceH:
		// H is the default winner; nothing further to check.
	}

	return propagate
}

// ResolveTitle implements rule 4: title changes propagate without contest,
// from any source, as long as the title actually differs.
func ResolveTitle(existing *types.Issue, newTitle string) Decision {
	if existing != nil && existing.Title == newTitle {
		return block("title unchanged")
	}
	return propagate
}

// ResolveParent implements rule 5: a parent/child link may only propagate to
// a target side once the parent itself already has a cross-ID on that same
// side in the current cycle (topological correctness, invariant 7).
// parentCrossID is the parent issue's cross-ID on the target side, "" if it
// doesn't have one yet.
func ResolveParent(parentCrossID string) Decision {
	if parentCrossID == "" {
		return block("topological correctness: parent has no cross-ID on target side yet")
	}
	return propagate
}

// ResolveTombstone implements rule 6: once an issue has been tombstoned from
// a side, re-creation on that side is blocked until at least one full
// orchestration cycle has observed it again (invariant 8). cycleStartedAt is
// the timestamp the current orchestration cycle began.
func ResolveTombstone(tombstonedAt time.Time, cycleStartedAt time.Time) Decision {
	if tombstonedAt.IsZero() {
		return propagate
	}
	if !tombstonedAt.Before(cycleStartedAt) {
		return block("tombstone: same-cycle re-creation suppressed")
	}
	return propagate
}
