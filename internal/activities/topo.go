package activities

import "github.com/oculairmedia/hvbsync/internal/clients"

// PartitionTopological orders issues into levels: parentless issues first,
// then issues whose parent appears in an earlier level, preserving each
// issue's relative input order within its level (spec §4.7 step 3c,
// invariant 7). Issues whose parent is outside the input set (e.g. not
// itself changed this cycle) are treated as parentless for ordering
// purposes; their parent cross-ID, if any, already exists from a prior
// cycle.
func PartitionTopological(issues []clients.TrackerIssue) []clients.TrackerIssue {
	byIdentifier := make(map[string]bool, len(issues))
	for _, issue := range issues {
		byIdentifier[issue.Identifier] = true
	}

	placed := make(map[string]bool, len(issues))
	ordered := make([]clients.TrackerIssue, 0, len(issues))
	remaining := append([]clients.TrackerIssue(nil), issues...)

	for len(remaining) > 0 {
		next := remaining[:0:0]
		var placedThisPass []string
		for _, issue := range remaining {
			parentKnownThisCycle := issue.ParentID != "" && byIdentifier[issue.ParentID]
			if !parentKnownThisCycle || placed[issue.ParentID] {
				ordered = append(ordered, issue)
				placedThisPass = append(placedThisPass, issue.Identifier)
				continue
			}
			next = append(next, issue)
		}
		if len(placedThisPass) == 0 {
			// A cycle among parent references (spec §9: "no cross-cycle
			// back-edges are tolerated"); append what's left in input order
			// rather than looping forever, so the caller can null the
			// offending parents on the target side.
			ordered = append(ordered, next...)
			break
		}
		// Mark this level placed only after the pass, so a child listed
		// after its parent waits for the next level instead of joining
		// the parent's.
		for _, id := range placedThisPass {
			placed[id] = true
		}
		remaining = next
	}
	return ordered
}
