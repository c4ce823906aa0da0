// Package main is the entrypoint for the recipe API server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/recipeapp/recipe-api/internal/config"
	"github.com/recipeapp/recipe-api/internal/logging"
	"github.com/recipeapp/recipe-api/internal/metrics"
	"github.com/recipeapp/recipe-api/internal/model"
	"github.com/recipeapp/recipe-api/internal/readiness"
	"github.com/recipeapp/recipe-api/internal/repository"
	"github.com/recipeapp/recipe-api/internal/router"
	"github.com/recipeapp/recipe-api/internal/server"
	"github.com/recipeapp/recipe-api/internal/service"
	"github.com/recipeapp/recipe-api/internal/storage"
	"github.com/recipeapp/recipe-api/internal/token"
)

// sentryFlushTimeout bounds how long buffered events may delay exit.
const sentryFlushTimeout = 2 * time.Second

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}

	// Initialize logger
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.AppEnv,
			AttachStacktrace: true,
		}); err != nil {
			logger.Error("failed to initialize sentry", "error", err)
			return err
		}
		defer sentry.Flush(sentryFlushTimeout)
		logger.Info("sentry error reporting enabled")
	}

	// Wait for PostgreSQL
	if cfg.DBWaitOnStart {
		logger.Info("waiting for database", slog.String("database_url", logging.RedactURL(cfg.DatabaseURL)))
		if err := readiness.WaitFor(ctx, readiness.PostgresCheck(cfg.DatabaseURL), readiness.Options{
			Interval:       cfg.DBWaitInterval,
			AttemptTimeout: 5 * time.Second,
			Logger:         logger,
		}); err != nil {
			logger.Error("database never became available", slog.String("error", logging.SanitizeError(err, cfg.DatabaseURL)))
			return err
		}
	}

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL, repository.Options{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", logging.SanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", logging.RedactURL(cfg.DatabaseURL)),
		)
		return err
	}
	logger.Info("connected to database")

	if cfg.AutoMigrate {
		applied, err := repo.Migrate(ctx)
		if err != nil {
			repo.Close()
			logger.Error("failed to apply migrations", "error", err)
			return err
		}
		logger.Info("migrations applied", "versions", applied)
	}

	// Initialize token store
	tokens, err := token.New(ctx, cfg.RedisURL, cfg.TokenTTL)
	if err != nil {
		repo.Close()
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", logging.SanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", logging.RedactURL(cfg.RedisURL)),
		)
		return err
	}
	logger.Info("connected to Redis")

	media, err := storage.NewLocal(cfg.MediaRoot, cfg.MediaURL)
	if err != nil {
		repo.Close()
		_ = tokens.Close()
		logger.Error("failed to prepare media root", "error", err)
		return err
	}

	// Initialize services
	recorder := metrics.NewInMemory()
	users := service.NewUserService(repo, tokens, recorder, logger)
	recipes := service.NewRecipeService(repo, media, recorder, logger)
	tags := service.NewCatalogService(repo, model.KindTag, logger)
	ingredients := service.NewCatalogService(repo, model.KindIngredient, logger)

	// Setup router
	r := router.New(router.Deps{
		Settings: router.Settings{
			IsDevelopment:      cfg.IsDevelopment(),
			CORSAllowedOrigins: cfg.GetCORSAllowedOrigins(),
			MaxRequestBodySize: cfg.MaxRequestBodySize,
			MaxUploadSize:      cfg.MaxUploadSize,
			UploadTimeout:      cfg.UploadTimeout,
			MediaURL:           cfg.MediaURL,
			MetricsEnabled:     cfg.MetricsEnabled,
		},
		Logger:      logger,
		Users:       users,
		Recipes:     recipes,
		Tags:        tags,
		Ingredients: ingredients,
		Media:       media,
		DB:          repo,
		Tokens:      tokens,
		Metrics:     recorder,
	})

	// Create and run server
	srv := server.New(r, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	srv.OnShutdown("postgres", func(ctx context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(ctx context.Context) error {
		return tokens.Close()
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"media_root", media.Root(),
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		return err
	}
	return nil
}
