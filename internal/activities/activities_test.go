package activities

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oculairmedia/hvbsync/internal/clients"
	"github.com/oculairmedia/hvbsync/internal/config"
	"github.com/oculairmedia/hvbsync/internal/dedupe"
	"github.com/oculairmedia/hvbsync/internal/mapping"
	"github.com/oculairmedia/hvbsync/internal/types"
)

func newTestService(t *testing.T) (*Service, *fakeTracker, *fakeTracker, *fakeTracker) {
	t.Helper()
	store, err := mapping.Open(context.Background(), filepath.Join(t.TempDir(), "d.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := newFakeTracker("H")
	v := newFakeTracker("V")
	b := newFakeTracker("B")

	active := config.NewActive(&config.Config{BatchSize: 25})
	svc := New(store, h, v, b, active)
	return svc, h, v, b
}

func TestResolveRepoPathParsesKnownPrefixes(t *testing.T) {
	path, ok := ResolveRepoPath("Some text\nFilesystem: /srv/repo\nmore text")
	require.True(t, ok)
	require.Equal(t, "/srv/repo", path)

	_, ok = ResolveRepoPath("Path: relative/not/absolute")
	require.False(t, ok)

	_, ok = ResolveRepoPath("no prefix here")
	require.False(t, ok)
}

func TestPartitionTopologicalOrdersParentlessFirst(t *testing.T) {
	issues := []clients.TrackerIssue{
		{Identifier: "PROJ-21", ParentID: "PROJ-20"},
		{Identifier: "PROJ-20"},
		{Identifier: "PROJ-22", ParentID: "PROJ-20"},
	}
	ordered := PartitionTopological(issues)
	require.Len(t, ordered, 3)
	require.Equal(t, "PROJ-20", ordered[0].Identifier)
}

func TestAppendBacklinkIsIdempotent(t *testing.T) {
	once := appendBacklink("desc", "h", "PROJ-1")
	twice := appendBacklink(once, "h", "PROJ-1")
	require.Equal(t, once, twice)
}

func TestBatchSplitsPreservingOrder(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}
	batches := batch(items, 3)
	require.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6}, {7}}, batches)
}

func TestSyncHToBCreatesWithBacklinkAndLabel(t *testing.T) {
	svc, _, _, b := newTestService(t)
	ctx := context.Background()
	idx, err := dedupe.Build(ctx, svc.Store, "PROJ")
	require.NoError(t, err)

	hIssue := clients.TrackerIssue{Identifier: "PROJ-1", Title: "Implement X", State: "Todo"}
	bID, err := svc.syncHToB(ctx, "PROJ", idx, hIssue, "")
	require.NoError(t, err)
	require.NotEmpty(t, bID)

	created, err := b.GetIssue(ctx, bID)
	require.NoError(t, err)
	require.Contains(t, created.Description, "H Issue: PROJ-1")
	require.Contains(t, b.labels[bID], "h:PROJ-1")

	row, err := svc.Store.GetIssue(ctx, "PROJ", "PROJ-1")
	require.NoError(t, err)
	require.Equal(t, bID, row.BIssueID)
}

func TestSyncHToBIsIdempotentAcrossReplays(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	hIssue := clients.TrackerIssue{Identifier: "PROJ-1", Title: "Implement X", State: "Todo"}

	idx, err := dedupe.Build(ctx, svc.Store, "PROJ")
	require.NoError(t, err)
	bID1, err := svc.syncHToB(ctx, "PROJ", idx, hIssue, "")
	require.NoError(t, err)

	idx, err = dedupe.Build(ctx, svc.Store, "PROJ")
	require.NoError(t, err)
	bID2, err := svc.syncHToB(ctx, "PROJ", idx, hIssue, "")
	require.NoError(t, err)

	require.Equal(t, bID1, bID2)
}

func TestCreateBInHLabelsBackAndPersistsMapping(t *testing.T) {
	svc, _, _, b := newTestService(t)
	ctx := context.Background()

	bIssue := clients.TrackerIssue{ID: "bd-42", Title: "Add tests", State: "open"}
	err := svc.createBInH(ctx, "PROJ", bIssue)
	require.NoError(t, err)

	require.NotEmpty(t, b.labels["bd-42"])
	require.Contains(t, b.labels["bd-42"][0], "h:")

	// The fake H tracker gives its first created issue the identifier "H-1".
	row, err := svc.Store.GetIssue(ctx, "PROJ", "H-1")
	require.NoError(t, err)
	require.NotNil(t, row)
	require.Equal(t, "bd-42", row.BIssueID)
}

func TestReconcileMarksDeletedForMissingCrossID(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Store.UpsertProject(ctx, &types.Project{Identifier: "PROJ"}))
	require.NoError(t, svc.Store.UpsertIssue(ctx, &types.Issue{
		Project: "PROJ", HIdentifier: "PROJ-3", VTaskID: "v-old",
	}, mapping.AllFields))

	err := svc.reconcileStaleCrossIDs(ctx, "PROJ", map[string]bool{}, map[string]bool{})
	require.NoError(t, err)

	row, err := svc.Store.GetIssue(ctx, "PROJ", "PROJ-3")
	require.NoError(t, err)
	require.True(t, row.DeletedFromV)
}
