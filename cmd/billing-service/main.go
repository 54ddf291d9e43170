package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Dhoini/offline-cashier/internal/app"
	"github.com/Dhoini/offline-cashier/internal/config"
	"github.com/Dhoini/offline-cashier/pkg/logger"
)

func main() {
	// Контекст отменяется по SIGINT/SIGTERM для graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_DIR"))
	if err != nil {
		logger.New(logger.INFO).Fatalw("Failed to load configuration", "error", err)
	}

	log := logger.New(logger.ParseLevel(cfg.App.LogLevel))
	defer func() { _ = log.Sync() }()

	log.Infow("Billing service starting up...", "env", cfg.App.Env)

	application, err := app.NewApp(ctx, cfg, log)
	if err != nil {
		log.Fatalw("Failed to initialize application", "error", err)
	}
	defer application.Close()

	if err := application.Run(ctx); err != nil {
		log.Errorw("Application stopped with error", "error", err)
		return
	}

	log.Infow("Cleanup finished. Goodbye!")
}
