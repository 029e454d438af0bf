package workflow

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTaskQueueRunsEnqueuedTasks(t *testing.T) {
	queue := NewTaskQueue("test-queue", 2, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)

	var ran int32
	for i := 0; i < 4; i++ {
		err := queue.Enqueue(ctx, Task{ID: "t", Run: func(ctx context.Context) error {
			atomic.AddInt32(&ran, 1)
			return nil
		}})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&ran) == 4 }, time.Second, 5*time.Millisecond)
}
