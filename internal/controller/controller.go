// Package controller implements the sync controller (C6): it drains the
// event bus (C5), debounces same-(project,kind) events, acquires the
// per-project mutex, enforces the orchestration timeout, and dispatches the
// routed workflow through a Dispatcher (backed by C7). Grounded on the
// explicit-service-context redesign of spec §9 ("replace global mutable
// state with an explicit service context... constructed once at startup,
// passed to every sync function") and the teacher's event-driven daemon loop
// shape in cmd/bd/daemon_event_loop.go.
package controller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/oculairmedia/hvbsync/internal/config"
	"github.com/oculairmedia/hvbsync/internal/events"
	"github.com/oculairmedia/hvbsync/internal/types"
)

// WorkflowKind names which workflow type a routed event should launch,
// exactly the mapping of spec §4.5: {tick -> Orchestration, webhook ->
// WebhookChangeOrchestration, sse -> VibeChangePerIssue, file ->
// BeadsChangePerIssue}.
type WorkflowKind string

const (
	WorkflowOrchestration       WorkflowKind = "orchestration"
	WorkflowWebhookChangeOrch   WorkflowKind = "webhook_change_orchestration"
	WorkflowVibeChangePerIssue  WorkflowKind = "vibe_change_per_issue"
	WorkflowBeadsChangePerIssue WorkflowKind = "beads_change_per_issue"
)

// route maps an intake source to the workflow kind it triggers.
func route(source types.EventSource) WorkflowKind {
	switch source {
	case types.EventSourceWebhook:
		return WorkflowWebhookChangeOrch
	case types.EventSourceSSE:
		return WorkflowVibeChangePerIssue
	case types.EventSourceFile:
		return WorkflowBeadsChangePerIssue
	default: // tick, manual
		return WorkflowOrchestration
	}
}

// Dispatcher launches a workflow execution of kind for (project, issueKey).
// Implemented by internal/workflow's engine (C7); the controller only knows
// about routing, debounce, mutual exclusion, and timeout.
type Dispatcher interface {
	Launch(ctx context.Context, kind WorkflowKind, project, issueKey, correlationID string) error
}

// Controller is the C6 service context: constructed once at startup, never a
// package-level singleton (spec §9).
type Controller struct {
	bus        *events.Bus
	mutexes    *MutexTable
	dispatcher Dispatcher
	active     *config.Active
	sem        *semaphore.Weighted

	debounceMu sync.Mutex
	debouncers map[debounceKey]*events.Debouncer

	wg sync.WaitGroup
}

type debounceKey struct {
	project string
	kind    WorkflowKind
}

// New builds a Controller bound to bus, dispatching routed, debounced,
// mutex-guarded launches through dispatcher. active supplies the live,
// hot-swappable config (debounce window, global worker cap, orchestration
// timeout, dry-run).
func New(bus *events.Bus, dispatcher Dispatcher, active *config.Active) *Controller {
	cfg := active.Get()
	return &Controller{
		bus:        bus,
		mutexes:    NewMutexTable(),
		dispatcher: dispatcher,
		active:     active,
		sem:        semaphore.NewWeighted(int64(maxInt(cfg.MaxWorkers, 1))),
		debouncers: make(map[debounceKey]*events.Debouncer),
	}
}

// Run drains the bus until ctx is canceled, routing and debouncing every
// event before launching its workflow.
func (c *Controller) Run(ctx context.Context) {
	for {
		select {
		case ev, ok := <-c.bus.Events():
			if !ok {
				return
			}
			c.handle(ctx, ev)
		case <-ctx.Done():
			c.wg.Wait()
			return
		}
	}
}

func (c *Controller) handle(ctx context.Context, ev types.SyncEvent) {
	kind := route(ev.Source)
	key := debounceKey{project: ev.ProjectIdentifier, kind: kind}

	c.debounceMu.Lock()
	d, ok := c.debouncers[key]
	if !ok {
		cfg := c.active.Get()
		window := time.Duration(cfg.DebounceMS) * time.Millisecond
		d = events.NewDebouncer(window, func() {
			c.launch(ctx, kind, ev.ProjectIdentifier, ev.IssueKey, ev.CorrelationID)
		})
		c.debouncers[key] = d
	}
	c.debounceMu.Unlock()

	d.Trigger()
}

// launch acquires the global worker-cap semaphore and the project's mutex,
// enforces the orchestration timeout, and calls the dispatcher. Runs in its
// own goroutine so debounced fires never block the event-drain loop.
func (c *Controller) launch(parent context.Context, kind WorkflowKind, project, issueKey, correlationID string) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		cfg := c.active.Get()
		ctx, cancel := context.WithTimeout(parent, cfg.OrchestrationTimeout)
		defer cancel()

		if err := c.sem.Acquire(ctx, 1); err != nil {
			slog.Warn("controller: worker cap wait canceled", "project", project, "kind", kind, "err", err)
			return
		}
		defer c.sem.Release(1)

		unlock, err := c.mutexes.Lock(ctx, project)
		if err != nil {
			slog.Warn("controller: project mutex wait canceled", "project", project, "kind", kind, "err", err)
			return
		}
		defer unlock()

		if cfg.DryRun {
			slog.Info("controller: dry-run, skipping dispatch", "project", project, "kind", kind, "correlation_id", correlationID)
			return
		}

		if err := c.dispatcher.Launch(ctx, kind, project, issueKey, correlationID); err != nil {
			slog.Error("controller: workflow launch failed", "project", project, "kind", kind, "correlation_id", correlationID, "err", err)
		}
	}()
}

// Shutdown cancels all pending debouncers without waiting for their actions,
// then waits for in-flight launches to finish.
func (c *Controller) Shutdown() {
	c.debounceMu.Lock()
	for _, d := range c.debouncers {
		d.Cancel()
	}
	c.debounceMu.Unlock()
	c.wg.Wait()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
