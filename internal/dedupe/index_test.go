package dedupe

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oculairmedia/hvbsync/internal/mapping"
	"github.com/oculairmedia/hvbsync/internal/types"
)

func TestNormalizeStripsKnownBracketPrefixes(t *testing.T) {
	cases := map[string]string{
		"[P0] Fix the outage":        "fix the outage",
		"[BUG] login broken":         "login broken",
		"  [Epic]   Big rewrite  ":   "big rewrite",
		"[TIER 2] Improve caching":   "improve caching",
		"No prefix here":             "no prefix here",
		"[UNKNOWN] keep bracket":     "[unknown] keep bracket",
	}
	for in, want := range cases {
		require.Equal(t, want, Normalize(in), "input: %s", in)
	}
}

func TestIndexMappingFirstLookups(t *testing.T) {
	ctx := context.Background()
	store, err := mapping.Open(ctx, filepath.Join(t.TempDir(), "d.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.UpsertProject(ctx, &types.Project{Identifier: "PROJ"}))
	require.NoError(t, store.UpsertIssue(ctx, &types.Issue{
		Project: "PROJ", HIdentifier: "PROJ-1", Title: "[P0] Implement X", BIssueID: "bd-1",
	}, mapping.AllFields))

	idx, err := Build(ctx, store, "PROJ")
	require.NoError(t, err)

	issue, ok := idx.ByBID("bd-1")
	require.True(t, ok)
	require.Equal(t, "PROJ-1", issue.HIdentifier)

	issue, ok = idx.ByNormalizedTitle("implement x")
	require.True(t, ok)
	require.Equal(t, "PROJ-1", issue.HIdentifier)

	_, ok = idx.ByHIdentifier("PROJ-404")
	require.False(t, ok)
}
