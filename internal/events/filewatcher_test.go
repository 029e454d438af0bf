package events

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFileWatcherCoalescesBurstIntoOneEvent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".beads"), 0o755))
	jsonlPath := filepath.Join(dir, ".beads", "issues.jsonl")
	require.NoError(t, os.WriteFile(jsonlPath, []byte(""), 0o644))

	bus := NewBus(8)
	fw := NewFileWatcher("PROJ", dir, 30*time.Millisecond, bus)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fw.Start(ctx)
	defer func() { _ = fw.Close() }()

	for i := 0; i < 20; i++ {
		require.NoError(t, os.WriteFile(jsonlPath, []byte("{}"), 0o644))
		time.Sleep(time.Millisecond)
	}

	select {
	case ev := <-bus.Events():
		require.Equal(t, "PROJ", ev.ProjectIdentifier)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a debounced file event")
	}

	select {
	case ev := <-bus.Events():
		t.Fatalf("expected burst to collapse to one event, got a second: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}
