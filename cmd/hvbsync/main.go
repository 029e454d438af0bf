// Command hvbsync runs the H<->V<->B three-way issue sync engine, grounded
// on the teacher's cmd/bd cobra command tree (root command + persistent
// flags + subcommands for each operational mode).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	dbPath     string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "hvbsync",
	Short: "Three-way sync engine between System H, System V, and System B",
	Long: `hvbsync keeps a System H issue tracker, a System V kanban board, and
a System B filesystem-backed tracker converged on one canonical set of
issues, propagating creates, status changes, and title edits in every
direction a project has configured.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (env vars always win)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Mapping store path (default: $DB_PATH or ./hvbsync.db)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
