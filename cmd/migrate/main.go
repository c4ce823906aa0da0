// Command migrate applies or reverts the embedded SQL migrations.
//
//	migrate up     apply pending migrations
//	migrate down   revert every migration
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/recipeapp/recipe-api/internal/config"
	"github.com/recipeapp/recipe-api/internal/logging"
	"github.com/recipeapp/recipe-api/internal/repository"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: migrate [up|down]")
	}
	flag.Parse()

	direction := flag.Arg(0)
	if direction == "" {
		direction = "up"
	}
	if direction != "up" && direction != "down" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(direction); err != nil {
		os.Exit(1)
	}
}

func run(direction string) error {
	cfg, err := config.LoadTool()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.New(ctx, cfg.DatabaseURL, repository.Options{MaxConns: 2, MinConns: 1})
	if err != nil {
		logger.Error("failed to connect to database",
			slog.String("error", logging.SanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", logging.RedactURL(cfg.DatabaseURL)),
		)
		return err
	}
	defer repo.Close()

	if direction == "down" {
		if err := repo.MigrateDown(ctx); err != nil {
			logger.Error("failed to revert migrations", "error", err)
			return err
		}
		logger.Info("migrations reverted")
		return nil
	}

	applied, err := repo.Migrate(ctx)
	if err != nil {
		logger.Error("failed to apply migrations", "error", err, "applied", applied)
		return err
	}
	if len(applied) == 0 {
		logger.Info("schema up to date")
		return nil
	}
	logger.Info("migrations applied", "versions", applied)
	return nil
}
