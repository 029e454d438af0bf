package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/oculairmedia/hvbsync/internal/admin"
	"github.com/oculairmedia/hvbsync/internal/clients/vibe"
	"github.com/oculairmedia/hvbsync/internal/controller"
	"github.com/oculairmedia/hvbsync/internal/events"
	"github.com/oculairmedia/hvbsync/internal/types"
	"github.com/oculairmedia/hvbsync/internal/workflow"
)

var (
	adminAddr string
	taskQueue string
	workers   int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync engine as a long-lived daemon",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&adminAddr, "admin-addr", ":8090", "Address the admin HTTP surface listens on")
	serveCmd.Flags().StringVar(&taskQueue, "task-queue", "", "Workflow task queue name (default: $WORKFLOW_TASK_QUEUE)")
	serveCmd.Flags().IntVar(&workers, "workers", 0, "Task queue worker count (default: $MAX_WORKERS)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.Active.Get()
	qName := taskQueue
	if qName == "" {
		qName = cfg.WorkflowTaskQueue
	}
	qWorkers := workers
	if qWorkers == 0 {
		qWorkers = cfg.MaxWorkers
	}

	reg := prometheus.NewRegistry()
	metrics := admin.NewMetrics(reg)
	status := &admin.Status{}
	a.Svc.Reviews = status
	runner := &instrumentedRunner{inner: a.Svc, metrics: metrics, status: status}

	queue := workflow.NewTaskQueue(qName, qWorkers, 256)
	queue.Start(ctx)
	defer queue.Close()

	dispatcher := workflow.NewDispatcher(queue, runner)
	bus := events.NewBus(256)
	ctrl := controller.New(bus, dispatcher, a.Active)
	go ctrl.Run(ctx)
	defer ctrl.Shutdown()

	manual := &events.ManualSource{Bus: bus}
	webhook := &events.WebhookSource{Bus: bus}

	// Root orchestration owns the scheduled tick: it carries the
	// pause/resume/cancel/reload-config signal surface of spec §4.6 that a
	// plain time.Ticker cannot express, and on each fire publishes one tick
	// event per H project onto the bus so the existing
	// controller/dispatcher/task-queue path handles it identically to a
	// webhook- or manual-triggered cycle.
	root := workflow.NewRootOrchestration(func(ctx context.Context, cursor workflow.Cursor) (workflow.Cursor, error) {
		projects, err := a.Svc.FetchProjects(ctx)
		if err != nil {
			slog.Error("serve: fetch projects for tick failed", "err", err)
			return cursor, err
		}
		for _, p := range projects {
			bus.Publish(ctx, types.SyncEvent{
				Source:            types.EventSourceTick,
				ProjectIdentifier: p.Identifier,
				Kind:              types.EventUpdate,
				ReceivedAt:        time.Now().UTC(),
			})
		}
		return cursor, nil
	}, time.Duration(cfg.SyncIntervalMS)*time.Millisecond)

	go func() {
		if err := root.Run(ctx, workflow.Cursor{}); err != nil && ctx.Err() == nil {
			slog.Error("serve: root orchestration exited", "err", err)
		}
	}()

	// SSE and file-watcher intake require a per-project V/B linkage that
	// only the mapping store knows about; start one source per already-
	// linked project found at boot. Projects linked later (via /api/config
	// or a first successful cycle persisting RepoPath/VProjectID) pick up
	// webhook/tick/manual intake immediately but gain push intake only on
	// the next restart — an accepted gap, not a silent one.
	startPushIntake(ctx, a, bus)

	adminSrv := admin.NewServer(a.Active, status, manual, webhook, bus, reg, metrics, root)

	httpServer := newHTTPServerAdapter(adminAddr, adminSrv.Router())
	go func() {
		if err := httpServer.ListenAndServe(); err != nil {
			slog.Error("serve: admin server exited", "err", err)
		}
	}()

	slog.Info("hvbsync: serving", "admin_addr", adminAddr, "task_queue", qName, "workers", qWorkers)
	<-ctx.Done()
	slog.Info("hvbsync: shutting down")
	return httpServer.Shutdown()
}

// startPushIntake starts one SSESource and/or FileWatcher per H project that
// already has a V/B linkage recorded in the mapping store (System H is the
// source of truth for which projects exist; the store records whether each
// one has been linked to a V board or a B repo). A project linked after
// startup (via /api/config or a first successful cycle persisting
// RepoPath/VProjectID) gains push intake on the next restart only — webhook,
// tick, and manual intake are unaffected in the meantime.
func startPushIntake(ctx context.Context, a *app, bus *events.Bus) {
	cfg := a.Active.Get()
	projects, err := a.H.ListProjects(ctx)
	if err != nil {
		slog.Warn("serve: list H projects for push intake failed", "err", err)
		return
	}

	debounce := time.Duration(cfg.DebounceMS) * time.Millisecond
	vToken := os.Getenv("V_API_TOKEN")

	for _, p := range projects {
		stored, err := a.Svc.Store.GetProject(ctx, p.Identifier)
		if err != nil || stored == nil {
			continue
		}

		if stored.VProjectID != "" {
			source := &events.SSESource{
				Client:            sseClientFor(cfg.VAPIURL, vToken),
				ProjectIdentifier: p.Identifier,
				VProjectID:        stored.VProjectID,
				Bus:               bus,
			}
			go source.Run(ctx)
		}

		if stored.RepoPath != "" {
			watcher := events.NewFileWatcher(p.Identifier, stored.RepoPath, debounce, bus)
			watcher.Start(ctx)
		}
	}
}

// sseClientFor builds a *vibe.Client bound to the configured V endpoint for
// direct SSE streaming, separate from the GuardedClient wrapper used for
// request/response calls since Stream is not part of clients.Client.
func sseClientFor(url, token string) *vibe.Client {
	return vibe.NewClient(url, token)
}
