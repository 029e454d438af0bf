package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/oculairmedia/hvbsync/internal/controller"
)

// Runner is implemented by internal/activities: it knows how to execute one
// full per-project cycle (C8 steps 1-6) or a single per-issue sync for a
// specific (project, issueKey) pair delivered by SSE or the file watcher.
type Runner interface {
	RunProjectCycle(ctx context.Context, project string) error
	RunPerIssue(ctx context.Context, project, issueKey string, fromSource WorkflowOrigin) error
}

// WorkflowOrigin names which per-issue workflow kind a PerIssue task came
// from, so the activity layer knows whether to start from the V or B side.
type WorkflowOrigin string

const (
	OriginVibeChange  WorkflowOrigin = "vibe_change"
	OriginBeadsChange WorkflowOrigin = "beads_change"
)

// Dispatcher implements controller.Dispatcher (C6's contract) by enqueueing
// a Task onto the single named task queue (spec §4.6) that calls into
// Runner. Child-workflow/activity ordering within one launched task is
// preserved because Task.Run executes its steps sequentially; only ordering
// across distinct Launch calls is left unspecified, matching the spec's task
// queue contract.
type Dispatcher struct {
	queue  *TaskQueue
	runner Runner
}

// NewDispatcher builds a Dispatcher that enqueues onto queue and executes
// through runner.
func NewDispatcher(queue *TaskQueue, runner Runner) *Dispatcher {
	return &Dispatcher{queue: queue, runner: runner}
}

var _ controller.Dispatcher = (*Dispatcher)(nil)

// Launch implements controller.Dispatcher.
func (d *Dispatcher) Launch(ctx context.Context, kind controller.WorkflowKind, project, issueKey, correlationID string) error {
	taskID := correlationID
	if taskID == "" {
		taskID = uuid.NewString()
	}

	var run func(ctx context.Context) error
	switch kind {
	case controller.WorkflowOrchestration, controller.WorkflowWebhookChangeOrch:
		run = func(ctx context.Context) error {
			return d.runner.RunProjectCycle(ctx, project)
		}
	case controller.WorkflowVibeChangePerIssue:
		run = func(ctx context.Context) error {
			return d.runner.RunPerIssue(ctx, project, issueKey, OriginVibeChange)
		}
	case controller.WorkflowBeadsChangePerIssue:
		run = func(ctx context.Context) error {
			return d.runner.RunPerIssue(ctx, project, issueKey, OriginBeadsChange)
		}
	default:
		return fmt.Errorf("workflow: unknown kind %q", kind)
	}

	return d.queue.Enqueue(ctx, Task{ID: taskID, Run: run})
}
