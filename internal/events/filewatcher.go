package events

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/oculairmedia/hvbsync/internal/types"
)

// FileWatcher is C5's System B intake path (spec §4.4.4): watches a repo's
// `.beads/` directory and coalesces rapid change bursts into a single
// debounced flush, falling back to polling when fsnotify is unavailable.
// Grounded on untoldecay-BeadsLog's cmd/bd/daemon_watcher.go FileWatcher,
// trimmed to the JSONL-only concern (the git-HEAD/ref watching there is a
// beads-daemon-specific feature this engine has no use for).
type FileWatcher struct {
	watcher     *fsnotify.Watcher
	debouncer   *Debouncer
	jsonlPath   string
	parentDir   string
	pollingMode bool
	pollInterval time.Duration
	lastModTime time.Time
	lastExists  bool
	lastSize    int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewFileWatcher builds a watcher for repoPath's `.beads/issues.jsonl`,
// publishing a PerIssue file event on bus once debounceWindow has elapsed
// with no further changes.
func NewFileWatcher(projectIdentifier, repoPath string, debounceWindow time.Duration, bus *Bus) *FileWatcher {
	jsonlPath := filepath.Join(repoPath, ".beads", "issues.jsonl")
	fw := &FileWatcher{
		jsonlPath:    jsonlPath,
		parentDir:    filepath.Dir(jsonlPath),
		pollInterval: 5 * time.Second,
	}
	fw.debouncer = NewDebouncer(debounceWindow, func() {
		bus.Publish(context.Background(), types.SyncEvent{
			Source:            types.EventSourceFile,
			ProjectIdentifier: projectIdentifier,
			Kind:              types.EventUpdate,
			ReceivedAt:        time.Now().UTC(),
		})
	})

	if stat, err := os.Stat(jsonlPath); err == nil {
		fw.lastModTime = stat.ModTime()
		fw.lastExists = true
		fw.lastSize = stat.Size()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("fsnotify unavailable, falling back to polling", "project", projectIdentifier, "err", err)
		fw.pollingMode = true
		return fw
	}
	if err := watcher.Add(fw.parentDir); err != nil {
		slog.Warn("failed to watch beads directory, falling back to polling", "project", projectIdentifier, "dir", fw.parentDir, "err", err)
		_ = watcher.Close()
		fw.pollingMode = true
		return fw
	}
	fw.watcher = watcher
	return fw
}

// Start begins monitoring in a background goroutine until ctx is canceled.
func (fw *FileWatcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	fw.cancel = cancel

	if fw.pollingMode {
		fw.startPolling(ctx)
		return
	}

	fw.wg.Add(1)
	go func() {
		defer fw.wg.Done()
		jsonlBase := filepath.Base(fw.jsonlPath)
		for {
			select {
			case event, ok := <-fw.watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != jsonlBase {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Chmod|fsnotify.Rename) != 0 {
					fw.debouncer.Trigger()
				}
			case err, ok := <-fw.watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("beads file watcher error", "jsonl_path", fw.jsonlPath, "err", err)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (fw *FileWatcher) startPolling(ctx context.Context) {
	ticker := time.NewTicker(fw.pollInterval)
	fw.wg.Add(1)
	go func() {
		defer fw.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				stat, err := os.Stat(fw.jsonlPath)
				changed := false
				switch {
				case err != nil && os.IsNotExist(err):
					if fw.lastExists {
						fw.lastExists = false
						changed = true
					}
				case err == nil:
					if !fw.lastExists || !stat.ModTime().Equal(fw.lastModTime) || stat.Size() != fw.lastSize {
						fw.lastExists = true
						fw.lastModTime = stat.ModTime()
						fw.lastSize = stat.Size()
						changed = true
					}
				}
				if changed {
					fw.debouncer.Trigger()
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Close stops the watcher and releases resources, waiting for any in-flight
// debounced action to finish.
func (fw *FileWatcher) Close() error {
	if fw.cancel != nil {
		fw.cancel()
	}
	fw.wg.Wait()
	fw.debouncer.CancelAndWait()
	if fw.watcher != nil {
		return fw.watcher.Close()
	}
	return nil
}
