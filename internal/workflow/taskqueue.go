package workflow

import (
	"context"
	"log/slog"
)

// Task is one unit of work enqueued onto the task queue.
type Task struct {
	ID  string
	Run func(ctx context.Context) error
}

// TaskQueue is the single named queue of spec §4.6 ("a single named queue is
// served by workers; no ordering across workflow IDs is promised, but within
// one workflow, child workflow and activity ordering is preserved" — the
// latter holds here because each Task's Run body executes its own steps
// sequentially; only cross-Task ordering is unspecified).
type TaskQueue struct {
	Name    string
	tasks   chan Task
	workers int
}

// NewTaskQueue creates a queue named name served by workers goroutines.
func NewTaskQueue(name string, workers, buffer int) *TaskQueue {
	if workers < 1 {
		workers = 1
	}
	return &TaskQueue{Name: name, tasks: make(chan Task, buffer), workers: workers}
}

// Start spins up the worker pool and returns immediately; each worker exits
// once ctx is canceled or the queue is closed.
func (q *TaskQueue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		go q.worker(ctx, i)
	}
}

func (q *TaskQueue) worker(ctx context.Context, index int) {
	for {
		select {
		case task, ok := <-q.tasks:
			if !ok {
				return
			}
			if err := task.Run(ctx); err != nil {
				slog.Error("workflow: task failed", "queue", q.Name, "task_id", task.ID, "worker", index, "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Enqueue submits task, blocking until ctx is done or a slot is free.
func (q *TaskQueue) Enqueue(ctx context.Context, task Task) error {
	select {
	case q.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting new tasks. Call only after all producers have
// stopped.
func (q *TaskQueue) Close() {
	close(q.tasks)
}
