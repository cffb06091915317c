// Package cli assembles emberctl's cobra command tree.
package cli

import (
	"go.uber.org/zap"

	"github.com/spf13/cobra"
)

// NewRootCommand builds emberctl's command tree: seed, inspect, stats.
func NewRootCommand(log *zap.Logger) *cobra.Command {
	var dataFile string
	var poolSize int
	var replacerK int

	root := &cobra.Command{
		Use:   "emberctl",
		Short: "Drive an emberdb storage engine from the shell",
	}
	root.PersistentFlags().StringVar(&dataFile, "data", "ember.db", "path to the backing data file")
	root.PersistentFlags().IntVar(&poolSize, "pool-size", 64, "buffer pool frame count")
	root.PersistentFlags().IntVar(&replacerK, "replacer-k", 2, "LRU-K history depth")

	root.AddCommand(
		newSeedCommand(log, &dataFile, &poolSize, &replacerK),
		newInspectCommand(log, &dataFile, &poolSize, &replacerK),
		newStatsCommand(log, &dataFile, &poolSize, &replacerK),
	)
	return root
}
