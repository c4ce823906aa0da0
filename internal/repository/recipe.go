package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/recipeapp/recipe-api/internal/model"
)

// RecipeWriter is the set of operations available inside a recipe transaction.
type RecipeWriter interface {
	InsertRecipe(ctx context.Context, recipe *model.Recipe) error
	UpdateRecipe(ctx context.Context, recipe *model.Recipe) error
	LockRecipe(ctx context.Context, ownerID string, id int64) (*model.Recipe, error)
	GetRecipe(ctx context.Context, ownerID string, id int64) (*model.Recipe, error)
	GetOrCreateCatalogItem(ctx context.Context, kind model.CatalogKind, ownerID, name string) (*model.CatalogItem, bool, error)
	ClearRecipeItems(ctx context.Context, kind model.CatalogKind, recipeID int64) error
	AttachRecipeItems(ctx context.Context, kind model.CatalogKind, recipeID int64, itemIDs []int64) error
}

const recipeColumns = `r.id, r.user_id, r.name, r.time_minutes, r.price::text, r.description, r.link, r.image, r.created_at, r.updated_at`

// InsertRecipe stores the scalar fields of a new recipe and sets its ID.
func (q *queries) InsertRecipe(ctx context.Context, recipe *model.Recipe) error {
	query := `
		INSERT INTO recipes (user_id, name, time_minutes, price, description, link, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := q.db.QueryRow(ctx, query,
		recipe.UserID,
		recipe.Name,
		recipe.TimeMinutes,
		priceParam(recipe.Price),
		recipe.Description,
		recipe.Link,
		imageParam(recipe.Image),
		recipe.CreatedAt,
		recipe.UpdatedAt,
	).Scan(&recipe.ID)
	if err != nil {
		return fmt.Errorf("failed to create recipe: %w", err)
	}

	return nil
}

// UpdateRecipe writes the scalar fields of an owned recipe.
func (q *queries) UpdateRecipe(ctx context.Context, recipe *model.Recipe) error {
	query := `
		UPDATE recipes
		SET name = $3, time_minutes = $4, price = $5::numeric, description = $6,
		    link = $7, updated_at = $8
		WHERE id = $1 AND user_id = $2
	`

	result, err := q.db.Exec(ctx, query,
		recipe.ID,
		recipe.UserID,
		recipe.Name,
		recipe.TimeMinutes,
		priceParam(recipe.Price),
		recipe.Description,
		recipe.Link,
		recipe.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update recipe: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrRecipeNotFound
	}

	return nil
}

// LockRecipe loads the scalar fields of an owned recipe and holds a row lock
// until the surrounding transaction ends.
func (q *queries) LockRecipe(ctx context.Context, ownerID string, id int64) (*model.Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipes r WHERE r.id = $1 AND r.user_id = $2 FOR UPDATE`

	recipe, err := scanRecipe(q.db.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("failed to lock recipe: %w", err)
	}

	return recipe, nil
}

// GetRecipe returns an owned recipe with its tags and ingredients.
func (q *queries) GetRecipe(ctx context.Context, ownerID string, id int64) (*model.Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipes r WHERE r.id = $1 AND r.user_id = $2`

	recipe, err := scanRecipe(q.db.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}

	if err := q.loadItems(ctx, []*model.Recipe{recipe}); err != nil {
		return nil, err
	}

	return recipe, nil
}

// ListRecipes returns the owner's recipes matching the query, newest first.
// Each recipe appears once regardless of how many filter items it matches.
func (q *queries) ListRecipes(ctx context.Context, rq model.RecipeQuery) ([]*model.Recipe, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("r.user_id = $%d", argIdx))
	args = append(args, rq.OwnerID)
	argIdx++

	if len(rq.TagIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM recipe_tags rt WHERE rt.recipe_id = r.id AND rt.tag_id = ANY($%d::bigint[]))", argIdx))
		args = append(args, pq.Array(rq.TagIDs))
		argIdx++
	}

	if len(rq.IngredientIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM recipe_ingredients ri WHERE ri.recipe_id = r.id AND ri.ingredient_id = ANY($%d::bigint[]))", argIdx))
		args = append(args, pq.Array(rq.IngredientIDs))
	}

	query := `SELECT ` + recipeColumns + ` FROM recipes r WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY r.id DESC`

	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	recipes := make([]*model.Recipe, 0)
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe row: %w", err)
		}
		recipes = append(recipes, recipe)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recipes: %w", err)
	}

	if err := q.loadItems(ctx, recipes); err != nil {
		return nil, err
	}

	return recipes, nil
}

// DeleteRecipe removes an owned recipe and returns its stored image path.
func (q *queries) DeleteRecipe(ctx context.Context, ownerID string, id int64) (string, error) {
	var image *string
	err := q.db.QueryRow(ctx,
		`DELETE FROM recipes WHERE id = $1 AND user_id = $2 RETURNING image`,
		id, ownerID,
	).Scan(&image)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrRecipeNotFound
		}
		return "", fmt.Errorf("failed to delete recipe: %w", err)
	}

	if image == nil {
		return "", nil
	}
	return *image, nil
}

// SetRecipeImage records a new image path on an owned recipe and returns
// the path it replaced.
func (q *queries) SetRecipeImage(ctx context.Context, ownerID string, id int64, path string) (string, error) {
	query := `
		UPDATE recipes r
		SET image = $3, updated_at = NOW()
		FROM (SELECT id, image FROM recipes WHERE id = $1 AND user_id = $2 FOR UPDATE) old
		WHERE r.id = old.id
		RETURNING old.image
	`

	var previous *string
	if err := q.db.QueryRow(ctx, query, id, ownerID, path).Scan(&previous); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrRecipeNotFound
		}
		return "", fmt.Errorf("failed to set recipe image: %w", err)
	}

	if previous == nil {
		return "", nil
	}
	return *previous, nil
}

// loadItems fills Tags and Ingredients for the given recipes in one query per kind.
func (q *queries) loadItems(ctx context.Context, recipes []*model.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}

	ids := make([]int64, len(recipes))
	byID := make(map[int64]*model.Recipe, len(recipes))
	for i, r := range recipes {
		ids[i] = r.ID
		byID[r.ID] = r
		r.Tags = make([]*model.CatalogItem, 0)
		r.Ingredients = make([]*model.CatalogItem, 0)
	}

	for _, kind := range []model.CatalogKind{model.KindTag, model.KindIngredient} {
		t, err := tablesFor(kind)
		if err != nil {
			return err
		}

		query := `
			SELECT j.recipe_id, c.id, c.user_id, c.name
			FROM ` + t.join + ` j
			JOIN ` + t.items + ` c ON c.id = j.` + t.column + `
			WHERE j.recipe_id = ANY($1::bigint[])
			ORDER BY c.id
		`

		rows, err := q.db.Query(ctx, query, pq.Array(ids))
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", t.items, err)
		}

		for rows.Next() {
			var recipeID int64
			item := &model.CatalogItem{Kind: kind}
			if err := rows.Scan(&recipeID, &item.ID, &item.UserID, &item.Name); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan %s row: %w", t.items, err)
			}
			r := byID[recipeID]
			r.SetItems(kind, append(r.Items(kind), item))
		}
		rows.Close()

		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to iterate %s: %w", t.items, err)
		}
	}

	return nil
}

func scanRecipe(row pgx.Row) (*model.Recipe, error) {
	var recipe model.Recipe
	var price, image *string

	err := row.Scan(
		&recipe.ID,
		&recipe.UserID,
		&recipe.Name,
		&recipe.TimeMinutes,
		&price,
		&recipe.Description,
		&recipe.Link,
		&image,
		&recipe.CreatedAt,
		&recipe.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if price != nil {
		d, err := decimal.NewFromString(*price)
		if err != nil {
			return nil, fmt.Errorf("invalid stored price %q: %w", *price, err)
		}
		recipe.Price = &d
	}
	if image != nil {
		recipe.Image = *image
	}

	return &recipe, nil
}

func priceParam(price *decimal.Decimal) *string {
	if price == nil {
		return nil
	}
	s := price.StringFixed(2)
	return &s
}

func imageParam(path string) *string {
	if path == "" {
		return nil
	}
	return &path
}
