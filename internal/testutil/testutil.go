// Package testutil holds fixtures shared by unit and integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/recipeapp/recipe-api/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 731731

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// Migrator is satisfied by *repository.Repository.
type Migrator interface {
	Migrate(ctx context.Context) ([]string, error)
	MigrateDown(ctx context.Context) error
}

// ResetSchema reverts and reapplies every migration.
func ResetSchema(ctx context.Context, m Migrator) error {
	if err := m.MigrateDown(ctx); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	if _, err := m.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestUser creates an active user with a unique email.
// The password hash is unusable.
func NewTestUser(t testing.TB) *model.User {
	t.Helper()
	now := time.Now().UTC()
	id := ulid.Make().String()
	return &model.User{
		ID:           id,
		Email:        fmt.Sprintf("user-%s@example.com", id),
		Name:         "Test User",
		PasswordHash: "!",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewTestRecipe creates an unsaved recipe owned by userID.
func NewTestRecipe(t testing.TB, userID, name string) *model.Recipe {
	t.Helper()
	price := decimal.RequireFromString("5.50")
	return &model.Recipe{
		UserID:      userID,
		Name:        name,
		TimeMinutes: 10,
		Price:       &price,
		Description: "Sample description",
		Link:        "https://example.com/recipe.pdf",
	}
}
