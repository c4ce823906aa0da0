// Command waitfordb blocks until PostgreSQL accepts connections.
// It retries connectivity failures forever at DB_WAIT_INTERVAL and exits
// non-zero on any other error or when interrupted.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/recipeapp/recipe-api/internal/config"
	"github.com/recipeapp/recipe-api/internal/logging"
	"github.com/recipeapp/recipe-api/internal/readiness"
)

func main() {
	attemptTimeout := flag.Duration("attempt-timeout", 5*time.Second, "timeout for a single connection attempt (0 disables)")
	flag.Parse()

	cfg, err := config.LoadTool()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("waiting for database", slog.String("database_url", logging.RedactURL(cfg.DatabaseURL)))

	err = readiness.WaitFor(ctx, readiness.PostgresCheck(cfg.DatabaseURL), readiness.Options{
		Interval:       cfg.DBWaitInterval,
		AttemptTimeout: *attemptTimeout,
		Logger:         logger,
	})
	if err != nil {
		logger.Error("database not available", slog.String("error", logging.SanitizeError(err, cfg.DatabaseURL)))
		stop()
		os.Exit(1)
	}
}
