// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/recipeapp/recipe-api/internal/model"
	"github.com/recipeapp/recipe-api/internal/repository"
	"github.com/recipeapp/recipe-api/internal/validation"
)

// Service errors.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("unable to authenticate with provided credentials")
	ErrUnauthenticated    = errors.New("invalid or missing token")
	ErrEmailRequired      = errors.New("users must have an email address")
)

// UserStore persists users.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
}

// TokenStore issues and resolves opaque access tokens.
type TokenStore interface {
	Issue(ctx context.Context, userID string) (string, error)
	Resolve(ctx context.Context, token string) (string, error)
	RevokeUser(ctx context.Context, userID string) (int, error)
}

// RecipeStore is the owner-scoped recipe storage.
type RecipeStore interface {
	ListRecipes(ctx context.Context, q model.RecipeQuery) ([]*model.Recipe, error)
	GetRecipe(ctx context.Context, ownerID string, id int64) (*model.Recipe, error)
	DeleteRecipe(ctx context.Context, ownerID string, id int64) (string, error)
	SetRecipeImage(ctx context.Context, ownerID string, id int64, path string) (string, error)
	WithinTx(ctx context.Context, fn func(w repository.RecipeWriter) error) error
}

// CatalogStore is the owner-scoped tag and ingredient storage.
type CatalogStore interface {
	ListCatalogItems(ctx context.Context, q model.CatalogQuery) ([]*model.CatalogItem, error)
	GetCatalogItem(ctx context.Context, kind model.CatalogKind, ownerID string, id int64) (*model.CatalogItem, error)
	RenameCatalogItem(ctx context.Context, kind model.CatalogKind, ownerID string, id int64, name string) (*model.CatalogItem, error)
	DeleteCatalogItem(ctx context.Context, kind model.CatalogKind, ownerID string, id int64) error
}

// ImageStore saves and removes uploaded files.
type ImageStore interface {
	Save(namespace, originalName string, data []byte) (string, error)
	Delete(path string) error
}

// maxNameLength matches the VARCHAR(255) columns.
const maxNameLength = 255

// notFound maps repository not-found errors onto ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, repository.ErrRecipeNotFound) ||
		errors.Is(err, repository.ErrCatalogItemNotFound) ||
		errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

// checkText validates a trimmed string field.
func checkText(errs validation.Errors, field, value string, required bool, maxLen int) {
	if required && value == "" {
		errs.Add(field, "This field may not be blank.")
		return
	}
	if maxLen > 0 && utf8.RuneCountInString(value) > maxLen {
		errs.Add(field, fmt.Sprintf("Ensure this field has no more than %d characters.", maxLen))
	}
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
