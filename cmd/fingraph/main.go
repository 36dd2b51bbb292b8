package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fingraph-app/fingraph-cli/internal/cli"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	return cli.Execute(ctx)
}
