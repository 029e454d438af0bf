package mapping

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oculairmedia/hvbsync/internal/types"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	store, err := Open(context.Background(), filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestUpsertAndGetIssueRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.UpsertProject(ctx, &types.Project{Identifier: "PROJ", Name: "Project"}))

	issue := &types.Issue{
		Project: "PROJ", HIdentifier: "PROJ-1",
		Title: "Implement X", Status: types.StatusOpen, Priority: types.PriorityMedium,
		HID: "h-1", HModifiedAt: time.Now().UTC(),
	}
	require.NoError(t, store.UpsertIssue(ctx, issue, AllFields))

	got, err := store.GetIssue(ctx, "PROJ", "PROJ-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Implement X", got.Title)
	require.Equal(t, "h-1", got.HID)
}

func TestUpsertIssueClampsMonotonicTimestamp(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, store.UpsertProject(ctx, &types.Project{Identifier: "PROJ", Name: "Project"}))

	later := time.Now().UTC()
	earlier := later.Add(-time.Hour)

	require.NoError(t, store.UpsertIssue(ctx, &types.Issue{
		Project: "PROJ", HIdentifier: "PROJ-2", HModifiedAt: later,
	}, IssueFieldMask{HModifiedAt: true}))

	require.NoError(t, store.UpsertIssue(ctx, &types.Issue{
		Project: "PROJ", HIdentifier: "PROJ-2", HModifiedAt: earlier,
	}, IssueFieldMask{HModifiedAt: true}))

	got, err := store.GetIssue(ctx, "PROJ", "PROJ-2")
	require.NoError(t, err)
	require.WithinDuration(t, later, got.HModifiedAt, time.Second)
}

func TestUpsertIssuePartialMaskPreservesOtherFields(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, store.UpsertProject(ctx, &types.Project{Identifier: "PROJ", Name: "Project"}))

	require.NoError(t, store.UpsertIssue(ctx, &types.Issue{
		Project: "PROJ", HIdentifier: "PROJ-3", Title: "Original title", BIssueID: "bd-1",
	}, IssueFieldMask{Title: true, BIssueID: true}))

	require.NoError(t, store.UpsertIssue(ctx, &types.Issue{
		Project: "PROJ", HIdentifier: "PROJ-3", Status: types.StatusClosed,
	}, IssueFieldMask{Status: true}))

	got, err := store.GetIssue(ctx, "PROJ", "PROJ-3")
	require.NoError(t, err)
	require.Equal(t, "Original title", got.Title)
	require.Equal(t, "bd-1", got.BIssueID)
	require.Equal(t, types.StatusClosed, got.Status)
}

func TestMarkDeletedFromBIsSticky(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, store.UpsertProject(ctx, &types.Project{Identifier: "PROJ", Name: "Project"}))
	require.NoError(t, store.UpsertIssue(ctx, &types.Issue{Project: "PROJ", HIdentifier: "PROJ-4"}, AllFields))

	require.NoError(t, store.MarkDeletedFromB(ctx, "PROJ", "PROJ-4"))

	got, err := store.GetIssue(ctx, "PROJ", "PROJ-4")
	require.NoError(t, err)
	require.True(t, got.DeletedFromB)
	require.False(t, got.TombstonedAt.IsZero())
}

func TestGetIssuesWithVIDFiltersByCrossID(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, store.UpsertProject(ctx, &types.Project{Identifier: "PROJ", Name: "Project"}))
	require.NoError(t, store.UpsertIssue(ctx, &types.Issue{Project: "PROJ", HIdentifier: "PROJ-5", VTaskID: "v-5"}, AllFields))
	require.NoError(t, store.UpsertIssue(ctx, &types.Issue{Project: "PROJ", HIdentifier: "PROJ-6"}, AllFields))

	issues, err := store.GetIssuesWithVID(ctx, "PROJ")
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, "PROJ-5", issues[0].HIdentifier)
}
