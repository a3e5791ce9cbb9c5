// Package cli defines the command tree: serve runs the API server,
// migrate applies schema migrations, and the job commands run one-off
// passes of the background jobs.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	// Version is stamped by the build.
	Version = "dev"

	cfgPath string
)

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "rentscope",
		Short: "Spatial listing queries and rent triangulation",
		Long: `rentscope serves map viewport queries over sale inventory and
triangulated rent estimates blending a federal benchmark, nearby
rental comps, and an optional tertiary source.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")

	root.AddCommand(newServeCommand())
	root.AddCommand(newMigrateCommand())
	root.AddCommand(newEstimateCommand())
	root.AddCommand(newBenchmarkSyncCommand())
	root.AddCommand(newBackfillCommand())
	return root
}
