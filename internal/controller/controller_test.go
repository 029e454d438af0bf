package controller

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oculairmedia/hvbsync/internal/config"
	"github.com/oculairmedia/hvbsync/internal/events"
	"github.com/oculairmedia/hvbsync/internal/types"
)

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []string
}

func (d *recordingDispatcher) Launch(ctx context.Context, kind WorkflowKind, project, issueKey, correlationID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, project+":"+string(kind))
	return nil
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func testConfig(debounceMS int) *config.Active {
	return config.NewActive(&config.Config{
		DebounceMS:           debounceMS,
		MaxWorkers:           5,
		OrchestrationTimeout: time.Second,
	})
}

func TestControllerRoutesBySource(t *testing.T) {
	cases := []struct {
		source types.EventSource
		want   WorkflowKind
	}{
		{types.EventSourceTick, WorkflowOrchestration},
		{types.EventSourceManual, WorkflowOrchestration},
		{types.EventSourceWebhook, WorkflowWebhookChangeOrch},
		{types.EventSourceSSE, WorkflowVibeChangePerIssue},
		{types.EventSourceFile, WorkflowBeadsChangePerIssue},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, route(tc.source))
	}
}

func TestControllerDebouncesSameProjectKind(t *testing.T) {
	bus := events.NewBus(16)
	dispatcher := &recordingDispatcher{}
	c := New(bus, dispatcher, testConfig(20))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	for i := 0; i < 10; i++ {
		bus.Publish(ctx, types.SyncEvent{Source: types.EventSourceTick, ProjectIdentifier: "PROJ"})
	}

	require.Eventually(t, func() bool {
		return dispatcher.count() == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, dispatcher.count())
}

func TestControllerDryRunSkipsDispatch(t *testing.T) {
	bus := events.NewBus(4)
	dispatcher := &recordingDispatcher{}
	active := testConfig(5)
	cfg := active.Get()
	cfg.DryRun = true
	active.Swap(cfg)

	c := New(bus, dispatcher, active)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	bus.Publish(ctx, types.SyncEvent{Source: types.EventSourceTick, ProjectIdentifier: "PROJ"})

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 0, dispatcher.count())
}

func TestControllerDifferentProjectsProceedConcurrently(t *testing.T) {
	bus := events.NewBus(16)
	var inFlight int32
	var maxInFlight int32
	dispatcher := dispatcherFunc(func(ctx context.Context, kind WorkflowKind, project, issueKey, correlationID string) error {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			cur := atomic.LoadInt32(&maxInFlight)
			if n <= cur || atomic.CompareAndSwapInt32(&maxInFlight, cur, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil
	})

	c := New(bus, dispatcher, testConfig(5))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	bus.Publish(ctx, types.SyncEvent{Source: types.EventSourceTick, ProjectIdentifier: "A"})
	bus.Publish(ctx, types.SyncEvent{Source: types.EventSourceTick, ProjectIdentifier: "B"})

	time.Sleep(100 * time.Millisecond)
	require.GreaterOrEqual(t, atomic.LoadInt32(&maxInFlight), int32(2))
}

type dispatcherFunc func(ctx context.Context, kind WorkflowKind, project, issueKey, correlationID string) error

func (f dispatcherFunc) Launch(ctx context.Context, kind WorkflowKind, project, issueKey, correlationID string) error {
	return f(ctx, kind, project, issueKey, correlationID)
}
