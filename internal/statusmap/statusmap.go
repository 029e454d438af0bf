// Package statusmap implements the bijective-ish status/priority mapping
// tables among Huly, Vibe Kanban, and Beads vocabularies (C2), grounded on
// the numeric priority scale and name-to-value switch style the teacher uses
// in internal/jira/tracker.go's jiraPriorityToNumeric.
package statusmap

import (
	"strings"

	"github.com/oculairmedia/hvbsync/internal/types"
)

// HStatusToNormalized maps Huly's native status strings to the normalized
// vocabulary (types.Status).
func HStatusToNormalized(native string) types.Status {
	switch strings.ToLower(strings.TrimSpace(native)) {
	case "backlog", "todo", "open":
		return types.StatusOpen
	case "in progress", "in_progress", "started":
		return types.StatusInProgress
	case "blocked", "on hold":
		return types.StatusBlocked
	case "deferred", "snoozed":
		return types.StatusDeferred
	case "in review", "review":
		return types.StatusReview
	case "done", "closed", "cancelled", "canceled":
		return types.StatusClosed
	default:
		return types.StatusOpen
	}
}

// NormalizedToHStatus is the inverse of HStatusToNormalized, used when
// propagating a normalized status out to Huly.
func NormalizedToHStatus(s types.Status) string {
	switch s {
	case types.StatusInProgress:
		return "In Progress"
	case types.StatusBlocked:
		return "Blocked"
	case types.StatusDeferred:
		return "Deferred"
	case types.StatusReview:
		return "In Review"
	case types.StatusClosed:
		return "Done"
	default:
		return "Todo"
	}
}

// VStatusToNormalized maps Vibe Kanban's task status strings.
func VStatusToNormalized(native string) types.Status {
	switch strings.ToLower(strings.TrimSpace(native)) {
	case "todo", "open":
		return types.StatusOpen
	case "inprogress", "in_progress", "in-progress":
		return types.StatusInProgress
	case "inreview", "review":
		return types.StatusReview
	case "done", "completed":
		return types.StatusClosed
	default:
		return types.StatusOpen
	}
}

// NormalizedToVStatus is the inverse of VStatusToNormalized.
func NormalizedToVStatus(s types.Status) string {
	switch s {
	case types.StatusInProgress:
		return "inprogress"
	case types.StatusReview:
		return "inreview"
	case types.StatusClosed:
		return "done"
	default:
		return "todo"
	}
}

// BStatusToNormalized maps Beads' native status strings.
func BStatusToNormalized(native string) types.Status {
	switch strings.ToLower(strings.TrimSpace(native)) {
	case "open":
		return types.StatusOpen
	case "in_progress", "in progress":
		return types.StatusInProgress
	case "blocked":
		return types.StatusBlocked
	case "deferred":
		return types.StatusDeferred
	case "closed":
		return types.StatusClosed
	default:
		return types.StatusOpen
	}
}

// NormalizedToBStatus is the inverse of BStatusToNormalized.
func NormalizedToBStatus(s types.Status) string {
	switch s {
	case types.StatusInProgress:
		return "in_progress"
	case types.StatusBlocked:
		return "blocked"
	case types.StatusDeferred:
		return "deferred"
	case types.StatusClosed:
		return "closed"
	default:
		return "open"
	}
}

// ForwardableBStatuses is the status domain restriction of spec §4.8.2: only
// these B statuses are forwarded B->H. Bare "open" is the default and would
// force unnecessary churn, so it is deliberately excluded.
var ForwardableBStatuses = map[types.Status]bool{
	types.StatusInProgress: true,
	types.StatusClosed:     true,
	types.StatusBlocked:    true,
	types.StatusDeferred:   true,
}

// PriorityToNumeric converts a native priority name (as surfaced by any of
// the three systems) to the normalized 0(highest)-4(lowest) scale, matching
// the teacher's jiraPriorityToNumeric switch exactly in shape.
func PriorityToNumeric(name string) types.Priority {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "highest", "urgent", "p0":
		return types.PriorityHighest
	case "high", "p1":
		return types.PriorityHigh
	case "medium", "normal", "p2":
		return types.PriorityMedium
	case "low", "p3":
		return types.PriorityLow
	case "lowest", "p4", "none":
		return types.PriorityLowest
	default:
		return types.PriorityMedium
	}
}

// NumericToHPriority renders the normalized priority back to Huly's naming.
func NumericToHPriority(p types.Priority) string {
	switch p {
	case types.PriorityHighest:
		return "Urgent"
	case types.PriorityHigh:
		return "High"
	case types.PriorityLow:
		return "Low"
	case types.PriorityLowest:
		return "No priority"
	default:
		return "Medium"
	}
}
