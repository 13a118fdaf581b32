package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"vocBot/internal/app/runtime"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := runtime.Start(ctx, runtime.Options{})
	if err != nil {
		slog.Error("startup failed", slog.Any("error", err))
		os.Exit(1)
	}

	<-run.Done()
	serveErr := run.Err()

	slog.Info("shutting down")
	if err := run.Stop(); err != nil {
		slog.Error("shutdown failed", slog.Any("error", err))
		os.Exit(1)
	}
	if serveErr != nil {
		os.Exit(1)
	}
}
