// Command ledgerq is the developer CLI for the ledgerq contract runtime.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/roach88/ledgerq/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledgerq: %v\n", err)
	}
	os.Exit(cli.GetExitCode(err))
}
