package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSnapshotDefaults(t *testing.T) {
	require.NoError(t, Load(""))
	cfg := Snapshot()
	require.Equal(t, 30000, cfg.SyncIntervalMS)
	require.Equal(t, 25, cfg.BatchSize)
	require.Equal(t, ReconciliationMarkDeleted, cfg.ReconciliationAction)
	require.False(t, cfg.DryRun)
}

func TestReconciliationActionFallsBackOnInvalid(t *testing.T) {
	require.NoError(t, Load(""))
	store.Set("RECONCILIATION_ACTION", "bogus")
	require.Equal(t, ReconciliationMarkDeleted, getReconciliationAction())

	store.Set("RECONCILIATION_ACTION", "hard_delete")
	require.Equal(t, ReconciliationHardDelete, getReconciliationAction())
}

func TestActiveSwapIsAtomic(t *testing.T) {
	a := NewActive(&Config{BatchSize: 25})
	require.Equal(t, 25, a.Get().BatchSize)
	a.Swap(&Config{BatchSize: 50})
	require.Equal(t, 50, a.Get().BatchSize)
}
