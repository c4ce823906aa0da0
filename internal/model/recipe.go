package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recipe is a user's recipe with its tag and ingredient associations.
type Recipe struct {
	ID          int64
	UserID      string
	Name        string
	TimeMinutes int
	Price       *decimal.Decimal
	Description string
	Link        string
	// Image is the storage-relative path of the uploaded image, empty when none.
	Image       string
	Tags        []*CatalogItem
	Ingredients []*CatalogItem
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Items returns the recipe's association set for the given kind.
func (r *Recipe) Items(kind CatalogKind) []*CatalogItem {
	if kind == KindIngredient {
		return r.Ingredients
	}
	return r.Tags
}

// SetItems replaces the recipe's association set for the given kind.
func (r *Recipe) SetItems(kind CatalogKind, items []*CatalogItem) {
	if kind == KindIngredient {
		r.Ingredients = items
		return
	}
	r.Tags = items
}

// RecipeQuery selects an owner's recipes.
// Empty id sets mean no filter. Within a set any match is enough;
// both sets must match when both are given.
type RecipeQuery struct {
	OwnerID       string
	TagIDs        []int64
	IngredientIDs []int64
}
