package activities

import (
	"fmt"
	"strings"

	"github.com/oculairmedia/hvbsync/internal/types"
)

// sourceSystemName is used both in the backlink footer text and the
// target-side label prefix (spec §4.7's "Field-level sync rules").
func sourceSystemName(source types.Source) string {
	switch source {
	case types.SourceH:
		return "H"
	case types.SourceV:
		return "V"
	case types.SourceB:
		return "B"
	default:
		return string(source)
	}
}

// backlinkFooter builds the stable description suffix appended when
// creating a counterpart on a target system, per spec §4.7: "append a
// stable backlink line to description: ---\n<SourceSystem> <Key>: <id>".
func backlinkFooter(source types.Source, key string) string {
	return fmt.Sprintf("---\n%s Issue: %s", sourceSystemName(source), key)
}

// appendBacklink appends backlinkFooter to description unless it's already
// present (idempotence, invariant 1: replaying the same create must not
// accumulate duplicate footers).
func appendBacklink(description string, source types.Source, key string) string {
	footer := backlinkFooter(source, key)
	if strings.Contains(description, footer) {
		return description
	}
	if description == "" {
		return footer
	}
	return description + "\n\n" + footer
}

// targetLabel builds the "<targetsystem>:<key>" label added on B's side
// when a B counterpart is created for an H or V issue.
func targetLabel(target types.Source, key string) string {
	return fmt.Sprintf("%s:%s", strings.ToLower(sourceSystemName(target)), key)
}
