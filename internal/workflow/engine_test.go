package workflow

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oculairmedia/hvbsync/internal/types"
)

func TestRootOrchestrationRunsCyclesAndHonorsCancel(t *testing.T) {
	var cycles int32
	ro := NewRootOrchestration(func(ctx context.Context, cursor Cursor) (Cursor, error) {
		atomic.AddInt32(&cycles, 1)
		return cursor, nil
	}, 5*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- ro.Run(context.Background(), Cursor{}) }()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&cycles) >= 2 }, time.Second, 5*time.Millisecond)

	ro.Signal(SignalCancel)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("orchestration did not stop on cancel signal")
	}
	require.Equal(t, types.WorkflowStateCanceled, ro.State())
}

func TestRootOrchestrationPauseResumeSignals(t *testing.T) {
	var cycles int32
	ro := NewRootOrchestration(func(ctx context.Context, cursor Cursor) (Cursor, error) {
		atomic.AddInt32(&cycles, 1)
		return cursor, nil
	}, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ro.Run(ctx, Cursor{}) }()

	ro.Signal(SignalPause)
	require.Eventually(t, func() bool { return ro.State() == types.WorkflowStatePaused }, time.Second, 5*time.Millisecond)

	atomic.StoreInt32(&cycles, 0)
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, int32(0), atomic.LoadInt32(&cycles))

	ro.Signal(SignalResume)
	require.Eventually(t, func() bool { return atomic.LoadInt32(&cycles) > 0 }, time.Second, 5*time.Millisecond)
}

func TestRootOrchestrationReloadConfigBumpsVersion(t *testing.T) {
	versions := make(chan int, 10)
	ro := NewRootOrchestration(func(ctx context.Context, cursor Cursor) (Cursor, error) {
		select {
		case versions <- cursor.ConfigVersion:
		default:
		}
		return cursor, nil
	}, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ro.Run(ctx, Cursor{}) }()

	ro.Signal(SignalReloadConfig)

	require.Eventually(t, func() bool {
		select {
		case v := <-versions:
			return v >= 1
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}
