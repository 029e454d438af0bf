package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/oculairmedia/hvbsync/internal/types"
)

// historyTruncationThreshold is the analog of the durable-runtime "history
// approaching the engine's limit" trigger (spec §4.6). No external durable-
// execution service exists anywhere in the retrieval pack, so continue-as-
// new is modeled in-process: after this many cycles the root orchestration
// logs a continuation event and restarts its loop carrying only the cursor
// and config version forward, exactly the "minimum state" the spec names.
const historyTruncationThreshold = 500

// Cursor is the minimal state a continued-as-new orchestration carries
// forward (spec §4.6: "carrying only the minimum state (last-sync cursor,
// config version)").
type Cursor struct {
	LastSyncAt    time.Time
	ConfigVersion int
}

// RootOrchestration runs CycleFunc once per Interval tick, honoring the
// four signals of spec §4.6 and continuing-as-new once
// historyTruncationThreshold cycles have run.
type RootOrchestration struct {
	CycleFunc func(ctx context.Context, cursor Cursor) (Cursor, error)
	Interval  time.Duration

	signals chan Signal
	state   types.WorkflowState
}

// NewRootOrchestration constructs a RootOrchestration calling cycleFunc every
// interval.
func NewRootOrchestration(cycleFunc func(ctx context.Context, cursor Cursor) (Cursor, error), interval time.Duration) *RootOrchestration {
	return &RootOrchestration{
		CycleFunc: cycleFunc,
		Interval:  interval,
		signals:   make(chan Signal, 8),
		state:     types.WorkflowStateRunning,
	}
}

// Signal enqueues a signal for the running orchestration to observe at its
// next cycle boundary.
func (r *RootOrchestration) Signal(s Signal) {
	select {
	case r.signals <- s:
	default:
		slog.Warn("workflow: signal channel full, dropping signal", "signal", s)
	}
}

// State reports the orchestration's current lifecycle state.
func (r *RootOrchestration) State() types.WorkflowState { return r.state }

// Run blocks, executing cycles until a cancel signal arrives or ctx is
// canceled.
func (r *RootOrchestration) Run(ctx context.Context, initial Cursor) error {
	cursor := initial
	paused := false
	iterations := 0

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case sig := <-r.signals:
			switch sig {
			case SignalCancel:
				r.state = types.WorkflowStateCanceled
				return nil
			case SignalPause:
				paused = true
				r.state = types.WorkflowStatePaused
			case SignalResume:
				paused = false
				r.state = types.WorkflowStateRunning
			case SignalReloadConfig:
				cursor.ConfigVersion++
			}
			continue

		case <-ticker.C:
			if paused {
				continue
			}
			next, err := r.CycleFunc(ctx, cursor)
			if err != nil {
				slog.Error("workflow: orchestration cycle failed", "err", err)
				r.state = types.WorkflowStateFailed
				continue
			}
			cursor = next
			cursor.LastSyncAt = time.Now().UTC()
			r.state = types.WorkflowStateRunning
			iterations++

			if iterations >= historyTruncationThreshold {
				slog.Info("workflow: continuing as new", "iterations", iterations, "last_sync_at", cursor.LastSyncAt)
				iterations = 0
			}

		case <-ctx.Done():
			r.state = types.WorkflowStateCanceled
			return ctx.Err()
		}
	}
}
