package repository

import (
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/recipeapp/recipe-api/internal/model"
)

func TestMigrationFiles_PairedAndOrdered(t *testing.T) {
	t.Parallel()

	ups, err := migrationFiles(".up.sql")
	if err != nil {
		t.Fatalf("migrationFiles(up) failed: %v", err)
	}
	downs, err := migrationFiles(".down.sql")
	if err != nil {
		t.Fatalf("migrationFiles(down) failed: %v", err)
	}

	if len(ups) == 0 {
		t.Fatal("expected embedded migrations")
	}
	if len(ups) != len(downs) {
		t.Fatalf("up/down count mismatch: %d up, %d down", len(ups), len(downs))
	}

	for i := range ups {
		upVersion := strings.TrimSuffix(ups[i], ".up.sql")
		downVersion := strings.TrimSuffix(downs[i], ".down.sql")
		if upVersion != downVersion {
			t.Errorf("migration %d: up %q has no matching down (got %q)", i, upVersion, downVersion)
		}
		if i > 0 && ups[i-1] >= ups[i] {
			t.Errorf("migrations not sorted: %q before %q", ups[i-1], ups[i])
		}
	}
}

func TestTablesFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		kind    string
		items   string
		wantErr bool
	}{
		{"tag", "tag", "tags", false},
		{"ingredient", "ingredient", "ingredients", false},
		{"unknown", "recipe", "", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tablesFor(model.CatalogKind(tt.kind))
			if (err != nil) != tt.wantErr {
				t.Fatalf("tablesFor(%q) error = %v, wantErr %v", tt.kind, err, tt.wantErr)
			}
			if got.items != tt.items {
				t.Errorf("tablesFor(%q).items = %q, want %q", tt.kind, got.items, tt.items)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	unique := &pgconn.PgError{Code: "23505"}
	if !isUniqueViolation(unique) {
		t.Error("23505 should be a unique violation")
	}
	if !isUniqueViolation(fmt.Errorf("wrapped: %w", unique)) {
		t.Error("wrapped 23505 should be a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Error("foreign key violation is not a unique violation")
	}
	if isUniqueViolation(fmt.Errorf("duplicate key value violates unique constraint")) {
		t.Error("plain errors are not unique violations")
	}
}

func TestPriceParam(t *testing.T) {
	t.Parallel()

	if priceParam(nil) != nil {
		t.Error("nil price should map to NULL")
	}

	d := decimal.RequireFromString("5.5")
	got := priceParam(&d)
	if got == nil || *got != "5.50" {
		t.Errorf("priceParam(5.5) = %v, want 5.50", got)
	}
}
