package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oculairmedia/hvbsync/internal/controller"
)

type recordingRunner struct {
	cycles   chan string
	perIssue chan string
}

func (r *recordingRunner) RunProjectCycle(ctx context.Context, project string) error {
	r.cycles <- project
	return nil
}

func (r *recordingRunner) RunPerIssue(ctx context.Context, project, issueKey string, origin WorkflowOrigin) error {
	r.perIssue <- project + ":" + issueKey + ":" + string(origin)
	return nil
}

func TestDispatcherRoutesOrchestrationToProjectCycle(t *testing.T) {
	queue := NewTaskQueue("q", 1, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)

	runner := &recordingRunner{cycles: make(chan string, 1), perIssue: make(chan string, 1)}
	d := NewDispatcher(queue, runner)

	require.NoError(t, d.Launch(ctx, controller.WorkflowOrchestration, "PROJ", "", "corr-1"))

	select {
	case p := <-runner.cycles:
		require.Equal(t, "PROJ", p)
	case <-time.After(time.Second):
		t.Fatal("expected RunProjectCycle call")
	}
}

func TestDispatcherRoutesPerIssueKinds(t *testing.T) {
	queue := NewTaskQueue("q", 1, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)

	runner := &recordingRunner{cycles: make(chan string, 1), perIssue: make(chan string, 1)}
	d := NewDispatcher(queue, runner)

	require.NoError(t, d.Launch(ctx, controller.WorkflowVibeChangePerIssue, "PROJ", "task-1", "corr-2"))

	select {
	case v := <-runner.perIssue:
		require.Equal(t, "PROJ:task-1:vibe_change", v)
	case <-time.After(time.Second):
		t.Fatal("expected RunPerIssue call")
	}
}
