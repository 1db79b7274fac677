package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/roman-kulish/sounding-telemetry/cmd/sondectl/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// cobra reports the error
	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}
