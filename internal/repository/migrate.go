package repository

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/recipeapp/recipe-api/migrations"
)

// Migrate applies every embedded *.up.sql file that has not been recorded in
// schema_migrations, in file name order. Each file runs in its own transaction.
// It returns the versions applied by this call.
func (r *Repository) Migrate(ctx context.Context) ([]string, error) {
	if _, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	files, err := migrationFiles(".up.sql")
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, name := range files {
		version := strings.TrimSuffix(name, ".up.sql")

		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, version,
		).Scan(&exists); err != nil {
			return applied, fmt.Errorf("failed to check migration %s: %w", version, err)
		}
		if exists {
			continue
		}

		sql, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return applied, fmt.Errorf("read migration %s: %w", name, err)
		}

		err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(sql)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", version, err)
		}

		applied = append(applied, version)
	}

	return applied, nil
}

// MigrateDown reverts every embedded migration in reverse order and clears
// schema_migrations. Intended for tests and local resets.
func (r *Repository) MigrateDown(ctx context.Context) error {
	files, err := migrationFiles(".down.sql")
	if err != nil {
		return err
	}

	for i := len(files) - 1; i >= 0; i-- {
		sql, err := fs.ReadFile(migrations.FS, files[i])
		if err != nil {
			return fmt.Errorf("read migration %s: %w", files[i], err)
		}
		if _, err := r.pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply down migration %s: %w", files[i], err)
		}
	}

	if _, err := r.pool.Exec(ctx, `DROP TABLE IF EXISTS schema_migrations`); err != nil {
		return fmt.Errorf("failed to drop schema_migrations: %w", err)
	}

	return nil
}

func migrationFiles(suffix string) ([]string, error) {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	return names, nil
}
