// Package dedupe implements the per-project short-TTL dedupe index (C3):
// mapping-first lookups by B id, H identifier, and normalized title, so the
// activities never have to fall back to an upstream title scan unless the
// index genuinely has no match.
package dedupe

import (
	"regexp"
	"strings"
)

// NormalizationVersion is bumped whenever the bracket-prefix set below
// changes. Per spec §9's Open Question, the prefix list is treated as fixed
// and complete; extending it is an explicitly breaking normalization change
// that must bump this constant so any persisted "normalized title" caches
// downstream know to invalidate.
const NormalizationVersion = 1

// bracketPrefixPattern strips one leading bracketed tag, matching spec
// §4.3's fixed set: [P0]-[P4], [PERF...], [TIER N], [ACTION], [BUG], [FIXED],
// [EPIC], [WIP].
var bracketPrefixPattern = regexp.MustCompile(`(?i)^\[(p[0-4]|perf[a-z0-9]*|tier\s*\d+|action|bug|fixed|epic|wip)\]\s*`)

// Normalize lowercases, trims, and strips at most one leading bracketed tag
// prefix, then trims again. A second tag right after the first is left in
// place, so Normalize is not idempotent on such titles:
// Normalize("[P0] [BUG] x") is "[bug] x", and normalizing that gives "x".
func Normalize(title string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	t = bracketPrefixPattern.ReplaceAllString(t, "")
	return strings.TrimSpace(t)
}
