package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reconcileProject string

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Sweep for cross-IDs no longer present upstream and apply the configured reconciliation action",
	RunE:  runReconcile,
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileProject, "project", "", "H project identifier to reconcile (default: all)")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	targets := []string{reconcileProject}
	if reconcileProject == "" {
		projects, err := a.H.ListProjects(ctx)
		if err != nil {
			return fmt.Errorf("list H projects: %w", err)
		}
		targets = targets[:0]
		for _, p := range projects {
			targets = append(targets, p.Identifier)
		}
	}

	for _, project := range targets {
		if err := a.Svc.Reconcile(ctx, project); err != nil {
			return fmt.Errorf("reconcile %s: %w", project, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "reconcile %s: ok\n", project)
	}
	return nil
}
