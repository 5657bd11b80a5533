package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/matthewbaird/stationcu/internal/config"
	"github.com/matthewbaird/stationcu/internal/logging"
	"github.com/matthewbaird/stationcu/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.Options{})
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPath:  cfg.Log.OutputPath,
		Development: cfg.Log.Development,
	})
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	logger.Info("starting station materials service", zap.String("addr", cfg.Addr()))

	if err := server.Run(ctx, server.Config{App: cfg, Logger: logger}); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
