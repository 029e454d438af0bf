package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/oculairmedia/hvbsync/internal/activities"
	"github.com/oculairmedia/hvbsync/internal/clients"
	"github.com/oculairmedia/hvbsync/internal/clients/beads"
	"github.com/oculairmedia/hvbsync/internal/clients/huly"
	"github.com/oculairmedia/hvbsync/internal/clients/vibe"
	"github.com/oculairmedia/hvbsync/internal/config"
	"github.com/oculairmedia/hvbsync/internal/mapping"
)

// app holds every long-lived collaborator a subcommand needs, assembled once
// by newApp and never stashed in a package-level variable (spec §9's
// explicit-service-context redesign, mirrored here at the CLI's
// composition root instead of inside the activities/controller layer).
type app struct {
	Active *config.Active
	Store  mapping.Store
	H      clients.Client
	V      clients.Client
	B      clients.Client
	Svc    *activities.Service
}

func newApp(ctx context.Context) (*app, error) {
	if verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	if err := config.Load(configPath); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := config.Snapshot()
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	active := config.NewActive(cfg)

	store, err := mapping.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open mapping store: %w", err)
	}

	hClient := clients.NewGuardedClient("h", huly.New(huly.NewClient(cfg.HAPIURL, os.Getenv("H_API_TOKEN"))))
	vClient := clients.NewGuardedClient("v", vibe.New(vibe.NewClient(cfg.VAPIURL, os.Getenv("V_API_TOKEN"))))

	var bClient clients.Client = &noBeadsClient{}
	if repoPath := os.Getenv("B_REPO_PATH"); repoPath != "" {
		bClient = clients.NewGuardedClient("b", beads.New(beads.NewClient(repoPath)))
	}

	svc := activities.New(store, hClient, vClient, bClient, active)
	svc.Logger = slog.Default()
	svc.SnapshotURL = os.Getenv("SNAPSHOT_URL")

	return &app{
		Active: active,
		Store:  store,
		H:      hClient,
		V:      vClient,
		B:      bClient,
		Svc:    svc,
	}, nil
}

func (a *app) Close() {
	_ = a.Store.Close()
}

// noBeadsClient is a placeholder B client used when B_REPO_PATH is unset, so
// a single-project run without a configured repo still has something to
// type-assert against (it reports no issues, rejects creates and patches,
// and treats deletes and parent changes as no-ops).
type noBeadsClient struct{}

func (noBeadsClient) ListProjects(ctx context.Context) ([]clients.TrackerIssue, error) {
	return nil, nil
}
func (noBeadsClient) ListIssues(ctx context.Context, project string, opts clients.FetchOptions) ([]clients.TrackerIssue, error) {
	return nil, nil
}
func (noBeadsClient) BulkListIssues(ctx context.Context, opts clients.BulkFetchOptions) (map[string][]clients.TrackerIssue, error) {
	return nil, nil
}
func (noBeadsClient) GetIssue(ctx context.Context, key string) (*clients.TrackerIssue, error) {
	return nil, nil
}
func (noBeadsClient) CreateIssue(ctx context.Context, project string, payload clients.IssuePayload) (*clients.TrackerIssue, error) {
	return nil, fmt.Errorf("hvbsync: no System B repo configured (set B_REPO_PATH)")
}
func (noBeadsClient) PatchIssue(ctx context.Context, key string, fields clients.IssuePayload) error {
	return fmt.Errorf("hvbsync: no System B repo configured (set B_REPO_PATH)")
}
func (noBeadsClient) DeleteIssue(ctx context.Context, key string) error { return nil }
func (noBeadsClient) FindByTitle(ctx context.Context, project, title string) (*clients.TrackerIssue, error) {
	return nil, nil
}
func (noBeadsClient) SetParent(ctx context.Context, key string, parentKey *string) error { return nil }

var _ clients.Client = noBeadsClient{}
