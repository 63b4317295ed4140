// Command qrm builds joined SELECT statements from query definitions, runs
// them and prints the nested entity trees.
//
// Usage:
//
//	qrm [flags] <command>
//
// Commands that execute queries (run, schema without --schema) need --dsn or
// QRM_DSN. The sql command only needs a schema file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/qrm/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
