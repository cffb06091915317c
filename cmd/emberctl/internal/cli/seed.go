package cli

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"emberdb"
	"emberdb/btree"
)

// newSeedCommand grounds the teacher's standalone cmd/seed tool as a
// subcommand: it inserts a run of keys into a named index so the
// other subcommands have something to inspect.
func newSeedCommand(log *zap.Logger, dataFile *string, poolSize, replacerK *int) *cobra.Command {
	var index string
	var count int
	var seed int64
	var shuffle bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert generated keys into an index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := emberdb.DefaultConfig(*dataFile)
			cfg.PoolSize = *poolSize
			cfg.ReplacerK = *replacerK

			eng, err := emberdb.Open(cfg, log)
			if err != nil {
				return err
			}
			defer eng.Close()

			idx, err := eng.Index(index)
			if err != nil {
				return err
			}

			keys := make([]int64, count)
			for i := range keys {
				keys[i] = int64(i)
			}
			if shuffle {
				rand.New(rand.NewSource(seed)).Shuffle(len(keys), func(i, j int) {
					keys[i], keys[j] = keys[j], keys[i]
				})
			}

			for _, k := range keys {
				rid := btree.RID{PageID: 0, SlotNum: uint32(k)}
				if err := idx.Insert(k, rid); err != nil {
					return fmt.Errorf("seed: insert %d: %w", k, err)
				}
			}
			fmt.Printf("inserted %d keys into %q\n", count, index)
			return nil
		},
	}
	cmd.Flags().StringVar(&index, "index", "default", "index name")
	cmd.Flags().IntVar(&count, "count", 1000, "number of keys to insert")
	cmd.Flags().Int64Var(&seed, "seed", 1, "PRNG seed for --shuffle")
	cmd.Flags().BoolVar(&shuffle, "shuffle", true, "insert keys in random order")
	return cmd
}
