package memstore

import (
	"context"
	"sync"

	"github.com/recipeapp/recipe-api/internal/auth"
	"github.com/recipeapp/recipe-api/internal/token"
)

// Tokens is an in-memory token store.
type Tokens struct {
	mu     sync.Mutex
	owners map[string]string
}

// NewTokens returns an empty Tokens.
func NewTokens() *Tokens {
	return &Tokens{owners: make(map[string]string)}
}

// Issue creates a new token for userID.
func (t *Tokens) Issue(ctx context.Context, userID string) (string, error) {
	plaintext, err := auth.GenerateToken()
	if err != nil {
		return "", err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.owners[plaintext] = userID
	return plaintext, nil
}

// Resolve returns the owning user ID.
func (t *Tokens) Resolve(ctx context.Context, plaintext string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	userID, ok := t.owners[plaintext]
	if !ok {
		return "", token.ErrTokenNotFound
	}
	return userID, nil
}

// RevokeUser drops every token of userID.
func (t *Tokens) RevokeUser(ctx context.Context, userID string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for tok, owner := range t.owners {
		if owner == userID {
			delete(t.owners, tok)
			n++
		}
	}
	return n, nil
}
