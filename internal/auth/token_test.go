package auth

import (
	"context"
	"testing"

	"github.com/recipeapp/recipe-api/internal/model"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GenerateToken()
		if err != nil {
			t.Fatalf("GenerateToken failed: %v", err)
		}
		if !ValidTokenFormat(token) {
			t.Fatalf("token %q has invalid format", token)
		}
		if seen[token] {
			t.Fatalf("duplicate token %q", token)
		}
		seen[token] = true
	}
}

func TestValidTokenFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		token string
		want  bool
	}{
		{"9944b09199c62bcf9418ad846dd0e4bbdfc6ee4b", true},
		{"9944B09199C62BCF9418AD846DD0E4BBDFC6EE4B", false},
		{"9944b09199c62bcf9418ad846dd0e4bbdfc6ee4", false},
		{"", false},
		{"pk_live_abc123_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b", false},
	}

	for _, tt := range tests {
		if got := ValidTokenFormat(tt.token); got != tt.want {
			t.Errorf("ValidTokenFormat(%q) = %v, want %v", tt.token, got, tt.want)
		}
	}
}

func TestQuickHash(t *testing.T) {
	t.Parallel()

	a := QuickHash("token-a")
	if len(a) != 32 {
		t.Errorf("QuickHash length = %d, want 32", len(a))
	}
	if a != QuickHash("token-a") {
		t.Error("QuickHash should be deterministic")
	}
	if a == QuickHash("token-b") {
		t.Error("different inputs should hash differently")
	}
}

func TestUserContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if UserFromContext(ctx) != nil {
		t.Error("empty context should have no user")
	}
	if UserIDFromContext(ctx) != "" {
		t.Error("empty context should have no user ID")
	}

	ctx = ContextWithUser(ctx, &model.User{ID: "01HZX", Email: "a@example.com"})
	if got := UserIDFromContext(ctx); got != "01HZX" {
		t.Errorf("UserIDFromContext = %q, want 01HZX", got)
	}
}
