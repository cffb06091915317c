package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"emberdb"
)

// newStatsCommand grounds the teacher's cmd/dump_sample tool, repointed
// at buffer pool diagnostics rather than heap-file row sampling.
func newStatsCommand(log *zap.Logger, dataFile *string, poolSize, replacerK *int) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Report buffer pool hit/miss statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := emberdb.DefaultConfig(*dataFile)
			cfg.PoolSize = *poolSize
			cfg.ReplacerK = *replacerK

			eng, err := emberdb.Open(cfg, log)
			if err != nil {
				return err
			}
			defer eng.Close()

			pool := eng.Pool()
			fmt.Printf("capacity=%d resident=%d %s\n", pool.Capacity(), pool.Size(), pool.Stats())
			return nil
		},
	}
	return cmd
}
