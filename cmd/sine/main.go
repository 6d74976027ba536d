package main

import (
	"context"
	"log/slog"
	"os"

	"Jacknode/internel/config"
	"Jacknode/internel/endpoint"
	"Jacknode/internel/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("cannot load configuration", "err", err)
		os.Exit(endpoint.ExitFailure)
	}
	logger, err := logging.Init(cfg.Log.Level)
	if err != nil {
		logger.Warn("using default log level", "err", err)
	}

	h, err := config.NewHost(cfg)
	if err != nil {
		logger.Error("cannot create host", "err", err)
		os.Exit(endpoint.ExitFailure)
	}

	os.Exit(endpoint.RunSine(context.Background(), h, cfg.Sine, os.Args[1:], logger))
}
