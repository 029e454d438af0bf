package controller

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMutexTableSerializesSameProject(t *testing.T) {
	table := NewMutexTable()
	ctx := context.Background()

	unlock, err := table.Lock(ctx, "PROJ")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = table.Lock(waitCtx, "PROJ")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock2, err := table.Lock(ctx, "PROJ")
	require.NoError(t, err)
	unlock2()
}

func TestMutexTableDifferentProjectsDoNotContend(t *testing.T) {
	table := NewMutexTable()
	ctx := context.Background()

	unlockA, err := table.Lock(ctx, "A")
	require.NoError(t, err)
	defer unlockA()

	unlockB, err := table.Lock(ctx, "B")
	require.NoError(t, err)
	defer unlockB()
}
