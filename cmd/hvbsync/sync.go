package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncProject string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a single sync cycle and exit",
	Long: `sync runs exactly one orchestration cycle (spec §4.7's
fetch/partition/sync/persist/snapshot/commit sequence) for one project, or
every H project if --project is omitted, then exits.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncProject, "project", "", "H project identifier to sync (default: all)")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	targets := []string{syncProject}
	if syncProject == "" {
		projects, err := a.H.ListProjects(ctx)
		if err != nil {
			return fmt.Errorf("list H projects: %w", err)
		}
		targets = targets[:0]
		for _, p := range projects {
			targets = append(targets, p.Identifier)
		}
	}

	var failed []string
	for _, project := range targets {
		if err := a.Svc.RunProjectCycle(ctx, project); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "sync %s: %v\n", project, err)
			failed = append(failed, project)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sync %s: ok\n", project)
	}

	if len(failed) > 0 {
		return fmt.Errorf("sync failed for %d project(s): %v", len(failed), failed)
	}
	return nil
}
