package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "walws",
		Short: "Manage EMR write-ahead-log workspaces",
		Long: `walws reconciles EMR write-ahead-log (WAL) workspaces and their tags.

Each lifecycle verb runs through the same handlers an orchestration host
would call. In-progress operations are re-invoked with backoff and their
reconciliation context is kept in a local sqlite store, so interrupted
operations can be resumed.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newCreateCommand())
	rootCmd.AddCommand(newReadCommand())
	rootCmd.AddCommand(newUpdateCommand())
	rootCmd.AddCommand(newDeleteCommand())
	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newContextsCommand())
	rootCmd.AddCommand(newInvocationsCommand())

	return rootCmd
}
