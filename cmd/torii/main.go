package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	var exit *exitError
	if errors.As(err, &exit) {
		slog.Error(exit.msg, "error", exit.err)
		os.Exit(exit.code)
	}
	slog.Error("invalid invocation", "error", err)
	os.Exit(exitUsage)
}
