package service

import (
	"context"
	"errors"
	"testing"

	"github.com/recipeapp/recipe-api/internal/model"
	"github.com/recipeapp/recipe-api/internal/validation"
)

func TestCatalogList(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.newUser(t, "cook@example.com")
	other := env.newUser(t, "other@example.com")

	env.store.AddCatalogItem(model.KindTag, user.ID, "Vegan")
	env.store.AddCatalogItem(model.KindTag, user.ID, "Dessert")
	env.store.AddCatalogItem(model.KindTag, other.ID, "Fruity")

	tags, err := env.tags.List(ctx, user.ID, false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := itemNames(tags); len(got) != 2 || got[0] != "Dessert" || got[1] != "Vegan" {
		t.Errorf("List = %v, want [Dessert Vegan]", got)
	}

	ingredients, err := env.ingreds.List(ctx, user.ID, false)
	if err != nil {
		t.Fatalf("List ingredients: %v", err)
	}
	if len(ingredients) != 0 {
		t.Errorf("ingredients = %v, want none", itemNames(ingredients))
	}
}

func TestCatalogList_AssignedOnly(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.newUser(t, "cook@example.com")

	createRecipe(t, env, user.ID, CreateRecipeInput{Name: "Eggs Benedict", Ingredients: items("Eggs")})
	createRecipe(t, env, user.ID, CreateRecipeInput{Name: "Herb Eggs", Ingredients: items("Eggs")})
	env.store.AddCatalogItem(model.KindIngredient, user.ID, "Lentils")

	assigned, err := env.ingreds.List(ctx, user.ID, true)
	if err != nil {
		t.Fatalf("List(assigned): %v", err)
	}
	if got := itemNames(assigned); len(got) != 1 || got[0] != "Eggs" {
		t.Errorf("List(assigned) = %v, want [Eggs] once", got)
	}

	all, err := env.ingreds.List(ctx, user.ID, false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List = %v, want 2 items", itemNames(all))
	}
}

func TestCatalogUpdate(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.newUser(t, "cook@example.com")
	other := env.newUser(t, "other@example.com")

	dinner := env.store.AddCatalogItem(model.KindTag, user.ID, "After Dinner")
	env.store.AddCatalogItem(model.KindTag, user.ID, "Dessert")

	updated, err := env.tags.Update(ctx, user.ID, dinner.ID, CatalogItemInput{Name: strPtr("  Dinner ")}, false)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Dinner" {
		t.Errorf("Name = %q, want Dinner", updated.Name)
	}

	unchanged, err := env.tags.Update(ctx, user.ID, dinner.ID, CatalogItemInput{}, false)
	if err != nil {
		t.Fatalf("Update(no fields): %v", err)
	}
	if unchanged.Name != "Dinner" {
		t.Errorf("Name = %q, want Dinner", unchanged.Name)
	}

	tests := []struct {
		name      string
		input     CatalogItemInput
		full      bool
		wantField string
	}{
		{"duplicate", CatalogItemInput{Name: strPtr("Dessert")}, false, "name"},
		{"blank", CatalogItemInput{Name: strPtr(" ")}, false, "name"},
		{"full_missing", CatalogItemInput{}, true, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.tags.Update(ctx, user.ID, dinner.ID, tt.input, tt.full)
			verrs, ok := validation.As(err)
			if !ok || len(verrs[tt.wantField]) == 0 {
				t.Errorf("expected %q error, got %v", tt.wantField, err)
			}
		})
	}

	if _, err := env.tags.Update(ctx, other.ID, dinner.ID, CatalogItemInput{Name: strPtr("Mine")}, false); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update by other = %v, want ErrNotFound", err)
	}
}

func TestCatalogDelete_DetachesFromRecipes(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.newUser(t, "cook@example.com")
	other := env.newUser(t, "other@example.com")

	recipe := createRecipe(t, env, user.ID, CreateRecipeInput{Tags: items("Breakfast", "Quick")})
	breakfast := recipe.Tags[0]

	if err := env.tags.Delete(ctx, other.ID, breakfast.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete by other = %v, want ErrNotFound", err)
	}

	if err := env.tags.Delete(ctx, user.ID, breakfast.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := env.tags.Get(ctx, user.ID, breakfast.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}

	got, err := env.recipes.Get(ctx, user.ID, recipe.ID)
	if err != nil {
		t.Fatalf("recipe should survive tag delete: %v", err)
	}
	if names := itemNames(got.Tags); len(names) != 1 || names[0] != "Quick" {
		t.Errorf("Tags = %v, want [Quick]", names)
	}
}
