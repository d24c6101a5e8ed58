package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/distcompute/dcctl/cmd/dcctl/cmd"
	"github.com/distcompute/dcctl/internal/common"
)

// Config is handled by cmd/params.go
func main() {
	common.ConfigureCommandLineLogging()

	// Cancelling the context stops uploads between chunks on ctrl-C.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cmd.RootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
