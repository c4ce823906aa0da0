package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/recipeapp/recipe-api/internal/model"
)

// maxGetOrCreateAttempts bounds the insert/select loop when a conflicting row
// disappears between the two statements.
const maxGetOrCreateAttempts = 3

// catalogTables names the tables backing one catalog kind.
type catalogTables struct {
	items  string // tags | ingredients
	join   string // recipe_tags | recipe_ingredients
	column string // tag_id | ingredient_id
}

func tablesFor(kind model.CatalogKind) (catalogTables, error) {
	switch kind {
	case model.KindTag:
		return catalogTables{items: "tags", join: "recipe_tags", column: "tag_id"}, nil
	case model.KindIngredient:
		return catalogTables{items: "ingredients", join: "recipe_ingredients", column: "ingredient_id"}, nil
	default:
		return catalogTables{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// ListCatalogItems returns the owner's items of one kind, newest first.
func (q *queries) ListCatalogItems(ctx context.Context, cq model.CatalogQuery) ([]*model.CatalogItem, error) {
	t, err := tablesFor(cq.Kind)
	if err != nil {
		return nil, err
	}

	query := `SELECT c.id, c.user_id, c.name FROM ` + t.items + ` c WHERE c.user_id = $1`
	if cq.AssignedOnly {
		query += ` AND EXISTS (SELECT 1 FROM ` + t.join + ` j WHERE j.` + t.column + ` = c.id)`
	}
	query += ` ORDER BY c.id DESC`

	rows, err := q.db.Query(ctx, query, cq.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", t.items, err)
	}
	defer rows.Close()

	items := make([]*model.CatalogItem, 0)
	for rows.Next() {
		item := &model.CatalogItem{Kind: cq.Kind}
		if err := rows.Scan(&item.ID, &item.UserID, &item.Name); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", t.items, err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", t.items, err)
	}

	return items, nil
}

// GetCatalogItem returns one owned item.
func (q *queries) GetCatalogItem(ctx context.Context, kind model.CatalogKind, ownerID string, id int64) (*model.CatalogItem, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, user_id, name FROM ` + t.items + ` WHERE id = $1 AND user_id = $2`

	item := &model.CatalogItem{Kind: kind}
	err = q.db.QueryRow(ctx, query, id, ownerID).Scan(&item.ID, &item.UserID, &item.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCatalogItemNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", kind, err)
	}

	return item, nil
}

// RenameCatalogItem changes the name of one owned item.
func (q *queries) RenameCatalogItem(ctx context.Context, kind model.CatalogKind, ownerID string, id int64, name string) (*model.CatalogItem, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}

	query := `UPDATE ` + t.items + ` SET name = $3 WHERE id = $1 AND user_id = $2 RETURNING id, user_id, name`

	item := &model.CatalogItem{Kind: kind}
	err = q.db.QueryRow(ctx, query, id, ownerID, name).Scan(&item.ID, &item.UserID, &item.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCatalogItemNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("failed to rename %s: %w", kind, err)
	}

	return item, nil
}

// DeleteCatalogItem removes one owned item and its recipe associations.
func (q *queries) DeleteCatalogItem(ctx context.Context, kind model.CatalogKind, ownerID string, id int64) error {
	t, err := tablesFor(kind)
	if err != nil {
		return err
	}

	result, err := q.db.Exec(ctx, `DELETE FROM `+t.items+` WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}

	if result.RowsAffected() == 0 {
		return ErrCatalogItemNotFound
	}

	return nil
}

// GetOrCreateCatalogItem returns the owner's item with exactly this name,
// inserting it first when missing. The unique (user_id, name) index makes
// concurrent callers converge on a single row. created reports whether this
// call inserted it.
func (q *queries) GetOrCreateCatalogItem(ctx context.Context, kind model.CatalogKind, ownerID, name string) (*model.CatalogItem, bool, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, false, err
	}

	insert := `
		INSERT INTO ` + t.items + ` (user_id, name) VALUES ($1, $2)
		ON CONFLICT (user_id, name) DO NOTHING
		RETURNING id
	`
	lookup := `SELECT id FROM ` + t.items + ` WHERE user_id = $1 AND name = $2`

	item := &model.CatalogItem{UserID: ownerID, Kind: kind, Name: name}

	for attempt := 0; attempt < maxGetOrCreateAttempts; attempt++ {
		err := q.db.QueryRow(ctx, insert, ownerID, name).Scan(&item.ID)
		if err == nil {
			return item, true, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, false, fmt.Errorf("failed to insert %s: %w", kind, err)
		}

		err = q.db.QueryRow(ctx, lookup, ownerID, name).Scan(&item.ID)
		if err == nil {
			return item, false, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, false, fmt.Errorf("failed to look up %s: %w", kind, err)
		}
	}

	return nil, false, fmt.Errorf("failed to get or create %s %q after %d attempts", kind, name, maxGetOrCreateAttempts)
}

// ClearRecipeItems detaches every item of one kind from a recipe.
func (q *queries) ClearRecipeItems(ctx context.Context, kind model.CatalogKind, recipeID int64) error {
	t, err := tablesFor(kind)
	if err != nil {
		return err
	}

	if _, err := q.db.Exec(ctx, `DELETE FROM `+t.join+` WHERE recipe_id = $1`, recipeID); err != nil {
		return fmt.Errorf("failed to clear %s: %w", t.join, err)
	}

	return nil
}

// AttachRecipeItems links items of one kind to a recipe. Existing links are kept.
func (q *queries) AttachRecipeItems(ctx context.Context, kind model.CatalogKind, recipeID int64, itemIDs []int64) error {
	if len(itemIDs) == 0 {
		return nil
	}

	t, err := tablesFor(kind)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO ` + t.join + ` (recipe_id, ` + t.column + `)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT DO NOTHING
	`

	if _, err := q.db.Exec(ctx, query, recipeID, pq.Array(itemIDs)); err != nil {
		return fmt.Errorf("failed to attach %s: %w", t.join, err)
	}

	return nil
}
