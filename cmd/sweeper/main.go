// Command sweeper runs a single deadline sweep and exits. It is meant for cron
// style scheduling when the long-running server's built-in sweeper is not used.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/simaogato/shiftescrow-backend/internal/app"
	"github.com/simaogato/shiftescrow-backend/internal/config"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/default.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := app.NewLogger(cfg.ServiceID + "-sweeper")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer application.Close()

	locker, err := application.Locker(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize sweeper lock: %v", err)
	}

	report, err := application.Sweeper(locker).RunOnce(ctx)
	if err != nil {
		logger.Error("sweep failed", "module", "cmd.sweeper", "operation", "run_once", "outcome", "failure", "error", err)
		application.Close()
		os.Exit(1)
	}
	if report.Failures > 0 {
		logger.Warn("sweep finished with item failures", "module", "cmd.sweeper", "operation", "run_once", "outcome", "partial", "failure_count", report.Failures)
	}
}
