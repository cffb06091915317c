// Command emberctl drives an emberdb storage engine from the shell:
// seeding an index with generated keys, listing its entries, and
// reporting buffer pool statistics — the hands-on counterparts to the
// teaching exercises the engine is built for.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"emberdb/cmd/emberctl/internal/cli"
)

func main() {
	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cli.NewRootCommand(log).Execute(); err != nil {
		os.Exit(1)
	}
}
