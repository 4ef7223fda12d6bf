// logtrack follows log files and hands their lines to parsers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"logtrack/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "logtrack:", err)
		stop()
		os.Exit(1)
	}
}
