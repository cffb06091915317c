package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"emberdb"
)

// newInspectCommand grounds the teacher's cmd/inspect_idx tool: walks
// an index in key order and prints its entries (up to --limit), a lighter-weight
// stand-in for a tree pretty-printer (spec explicitly scopes a
// Graphviz-style visualizer out).
func newInspectCommand(log *zap.Logger, dataFile *string, poolSize, replacerK *int) *cobra.Command {
	var index string
	var limit int

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Walk an index in key order",
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
			if idx.IsEmpty() {
				fmt.Println("(empty)")
				return nil
			}

			it, err := idx.SeekGE(0)
			if err != nil {
				return err
			}
			defer it.Close()

			n := 0
			for it.Valid() && (limit <= 0 || n < limit) {
				v := it.Value()
				fmt.Printf("%d -> page=%d slot=%d\n", it.Key(), v.PageID, v.SlotNum)
				it.Next()
				n++
			}
			fmt.Printf("root=%d entries shown=%d\n", idx.RootID(), n)
			return nil
		},
	}
	cmd.Flags().StringVar(&index, "index", "default", "index name")
	cmd.Flags().IntVar(&limit, "limit", 100, "max entries to print (0 = unlimited)")
	return cmd
}
