package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"NewsPress/internal/app"
	"NewsPress/internal/config"
	"NewsPress/internal/logging"
)

func main() {
	reprocess := flag.String("reprocess", "", "rerun the pipeline over an already collected run id")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	if *reprocess != "" {
		err = application.Reprocess(ctx, *reprocess)
	} else {
		err = application.Run(ctx)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
