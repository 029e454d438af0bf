package conflict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oculairmedia/hvbsync/internal/types"
)

func TestResolveStatusClosedWinsBlocksNonBChangeIntoH(t *testing.T) {
	existing := &types.Issue{BStatus: types.StatusClosed}
	d := ResolveStatus(existing, types.SourceV, types.SourceH, types.StatusInProgress, time.Now())
	require.False(t, d.Propagate)
}

func TestResolveStatusClosedWinsAllowsFurtherBChange(t *testing.T) {
	existing := &types.Issue{BStatus: types.StatusClosed, BModifiedAt: time.Now().Add(-time.Hour)}
	d := ResolveStatus(existing, types.SourceB, types.SourceH, types.StatusInProgress, time.Now())
	require.True(t, d.Propagate)
}

func TestResolveStatusClosedWinsDoesNotBlockHForwardingOutward(t *testing.T) {
	// H forwarding its own already-resolved status to V must not be blocked
	// by B having reported closed; rule 1 only guards writes into H (spec
	// §8 scenario 3).
	existing := &types.Issue{BStatus: types.StatusClosed}
	d := ResolveStatus(existing, types.SourceH, types.SourceV, types.StatusClosed, time.Now())
	require.True(t, d.Propagate)

	d = ResolveStatus(existing, types.SourceH, types.SourceB, types.StatusClosed, time.Now())
	require.True(t, d.Propagate)
}

func TestResolveStatusBareOpenFromBIsNotForwarded(t *testing.T) {
	d := ResolveStatus(nil, types.SourceB, types.SourceH, types.StatusOpen, time.Now())
	require.False(t, d.Propagate)
}

func TestResolveStatusForwardableBStatusPropagatesOnNewRow(t *testing.T) {
	d := ResolveStatus(nil, types.SourceB, types.SourceH, types.StatusInProgress, time.Now())
	require.True(t, d.Propagate)
}

func TestResolveStatusLastWriterWinsRejectsStaleObservation(t *testing.T) {
	now := time.Now()
	existing := &types.Issue{VModifiedAt: now}
	d := ResolveStatus(existing, types.SourceV, types.SourceH, types.StatusInProgress, now.Add(-time.Minute))
	require.False(t, d.Propagate)
}

func TestResolveStatusHWinsOnNewerHModification(t *testing.T) {
	now := time.Now()
	existing := &types.Issue{HModifiedAt: now, VModifiedAt: now.Add(-time.Hour)}
	d := ResolveStatus(existing, types.SourceV, types.SourceH, types.StatusInProgress, now.Add(-time.Minute))
	require.False(t, d.Propagate)
}

func TestResolveTitlePropagatesOnlyWhenChanged(t *testing.T) {
	existing := &types.Issue{Title: "same"}
	require.False(t, ResolveTitle(existing, "same").Propagate)
	require.True(t, ResolveTitle(existing, "different").Propagate)
	require.True(t, ResolveTitle(nil, "anything").Propagate)
}

func TestResolveParentRequiresCrossIDOnTargetSide(t *testing.T) {
	require.False(t, ResolveParent("").Propagate)
	require.True(t, ResolveParent("v-uuid-123").Propagate)
}

func TestResolveTombstoneBlocksSameCycleRecreation(t *testing.T) {
	cycleStart := time.Now()
	require.True(t, ResolveTombstone(time.Time{}, cycleStart).Propagate)
	require.False(t, ResolveTombstone(cycleStart.Add(time.Second), cycleStart).Propagate)
	require.True(t, ResolveTombstone(cycleStart.Add(-time.Hour), cycleStart).Propagate)
}
