package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/recipeapp/recipe-api/internal/metrics"
	"github.com/recipeapp/recipe-api/internal/model"
	"github.com/recipeapp/recipe-api/internal/repository"
	"github.com/recipeapp/recipe-api/internal/storage"
	"github.com/recipeapp/recipe-api/internal/validation"
)

// recipeImageNamespace is the upload subdirectory for recipe images.
const recipeImageNamespace = "recipe"

var maxPrice = decimal.NewFromInt(1000)

// RecipeService handles recipes and their nested tag/ingredient writes.
type RecipeService struct {
	store   RecipeStore
	images  ImageStore
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewRecipeService creates a new RecipeService.
func NewRecipeService(store RecipeStore, images ImageStore, recorder metrics.Recorder, logger *slog.Logger) *RecipeService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RecipeService{
		store:   store,
		images:  images,
		metrics: recorder,
		logger:  logger,
	}
}

// ItemInput references a tag or ingredient by name.
type ItemInput struct {
	Name string `json:"name" validate:"required,max=255"`
}

// CreateRecipeInput is the recipe create payload.
type CreateRecipeInput struct {
	Name        string           `json:"name" validate:"required,max=255"`
	TimeMinutes *int             `json:"time_minutes" validate:"required,gte=0,lte=2147483647"`
	Price       *decimal.Decimal `json:"price" validate:"-"`
	Description string           `json:"description"`
	Link        string           `json:"link" validate:"max=255"`
	Tags        []ItemInput      `json:"tags" validate:"dive"`
	Ingredients []ItemInput      `json:"ingredients" validate:"dive"`
}

// UpdateRecipeInput is the recipe update payload. Nil or unset fields are
// left unchanged. A non-nil Tags or Ingredients replaces that whole set.
type UpdateRecipeInput struct {
	Name        *string                   `json:"name"`
	TimeMinutes *int                      `json:"time_minutes"`
	Price       Optional[decimal.Decimal] `json:"price"`
	Description *string                   `json:"description"`
	Link        *string                   `json:"link"`
	Tags        *[]ItemInput              `json:"tags"`
	Ingredients *[]ItemInput              `json:"ingredients"`
}

const msgInvalidNumber = "A valid number is required."

// UnmarshalJSON reports an unparseable price as a field error on "price".
func (in *CreateRecipeInput) UnmarshalJSON(data []byte) error {
	type plain CreateRecipeInput
	aux := struct {
		*plain
		Price json.RawMessage `json:"price"`
	}{plain: (*plain)(in)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	price, err := parsePrice(aux.Price)
	if err != nil {
		return err
	}
	in.Price = nil
	if price.Set {
		in.Price = price.Ptr()
	}
	return nil
}

// UnmarshalJSON reports an unparseable price as a field error on "price".
func (in *UpdateRecipeInput) UnmarshalJSON(data []byte) error {
	type plain UpdateRecipeInput
	aux := struct {
		*plain
		Price json.RawMessage `json:"price"`
	}{plain: (*plain)(in)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	price, err := parsePrice(aux.Price)
	if err != nil {
		return err
	}
	in.Price = price
	return nil
}

// parsePrice decodes a JSON string or number. A nil raw value means the
// key was absent.
func parsePrice(raw json.RawMessage) (Optional[decimal.Decimal], error) {
	if raw == nil {
		return Optional[decimal.Decimal]{}, nil
	}
	var price Optional[decimal.Decimal]
	if err := price.UnmarshalJSON(raw); err != nil {
		return price, validation.Field("price", msgInvalidNumber)
	}
	return price, nil
}

// RecipeFilter narrows a recipe listing to recipes carrying any of the given
// tag IDs and any of the given ingredient IDs.
type RecipeFilter struct {
	TagIDs        []int64
	IngredientIDs []int64
}

// List returns the owner's recipes, newest first.
func (s *RecipeService) List(ctx context.Context, ownerID string, filter RecipeFilter) ([]*model.Recipe, error) {
	recipes, err := s.store.ListRecipes(ctx, model.RecipeQuery{
		OwnerID:       ownerID,
		TagIDs:        filter.TagIDs,
		IngredientIDs: filter.IngredientIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return recipes, nil
}

// Get returns one owned recipe.
func (s *RecipeService) Get(ctx context.Context, ownerID string, id int64) (*model.Recipe, error) {
	recipe, err := s.store.GetRecipe(ctx, ownerID, id)
	if err != nil {
		return nil, notFound(err)
	}
	return recipe, nil
}

// Create stores a recipe and attaches its named tags and ingredients,
// creating any the owner does not have yet, in one transaction.
func (s *RecipeService) Create(ctx context.Context, ownerID string, in CreateRecipeInput) (*model.Recipe, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Link = strings.TrimSpace(in.Link)
	trimItems(in.Tags)
	trimItems(in.Ingredients)

	errs := validation.Errors{}
	errs.Merge(validation.Struct(in))
	if in.Price != nil {
		checkPrice(errs, *in.Price)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	recipe := &model.Recipe{
		UserID:      ownerID,
		Name:        in.Name,
		TimeMinutes: *in.TimeMinutes,
		Price:       in.Price,
		Description: in.Description,
		Link:        in.Link,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var created *model.Recipe
	var newItems []model.CatalogKind
	err := s.store.WithinTx(ctx, func(w repository.RecipeWriter) error {
		newItems = newItems[:0]
		if err := w.InsertRecipe(ctx, recipe); err != nil {
			return err
		}

		for _, set := range []struct {
			kind  model.CatalogKind
			items []ItemInput
		}{
			{model.KindTag, in.Tags},
			{model.KindIngredient, in.Ingredients},
		} {
			kinds, err := reconcile(ctx, w, ownerID, recipe.ID, set.kind, set.items, false)
			if err != nil {
				return err
			}
			newItems = append(newItems, kinds...)
		}

		var err error
		created, err = w.GetRecipe(ctx, ownerID, recipe.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create recipe: %w", err)
	}

	s.recordItems(newItems)
	s.metrics.IncRecipeCreated()
	s.logger.Info("recipe_created",
		slog.Int64("recipe_id", created.ID),
		slog.String("user_id", ownerID),
		slog.Int("tags", len(created.Tags)),
		slog.Int("ingredients", len(created.Ingredients)),
	)

	return created, nil
}

// Update applies a partial (full=false) or full (full=true) update to an
// owned recipe. A present tags or ingredients list, even an empty one,
// replaces that association set. Everything happens in one transaction.
func (s *RecipeService) Update(ctx context.Context, ownerID string, id int64, in UpdateRecipeInput, full bool) (*model.Recipe, error) {
	trimPtr(in.Name)
	trimPtr(in.Description)
	trimPtr(in.Link)
	if in.Tags != nil {
		trimItems(*in.Tags)
	}
	if in.Ingredients != nil {
		trimItems(*in.Ingredients)
	}

	if err := validateRecipeUpdate(in, full).Err(); err != nil {
		return nil, err
	}

	var updated *model.Recipe
	var newItems []model.CatalogKind
	err := s.store.WithinTx(ctx, func(w repository.RecipeWriter) error {
		newItems = newItems[:0]
		recipe, err := w.LockRecipe(ctx, ownerID, id)
		if err != nil {
			return err
		}

		applyRecipeUpdate(recipe, in)
		recipe.UpdatedAt = time.Now().UTC()

		if err := w.UpdateRecipe(ctx, recipe); err != nil {
			return err
		}

		for _, set := range []struct {
			kind  model.CatalogKind
			items *[]ItemInput
		}{
			{model.KindTag, in.Tags},
			{model.KindIngredient, in.Ingredients},
		} {
			if set.items == nil {
				continue
			}
			kinds, err := reconcile(ctx, w, ownerID, recipe.ID, set.kind, *set.items, true)
			if err != nil {
				return err
			}
			newItems = append(newItems, kinds...)
		}

		updated, err = w.GetRecipe(ctx, ownerID, recipe.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update recipe: %w", notFound(err))
	}

	s.recordItems(newItems)
	s.metrics.IncRecipeUpdated()
	s.logger.Info("recipe_updated",
		slog.Int64("recipe_id", updated.ID),
		slog.String("user_id", ownerID),
		slog.Bool("full", full),
	)

	return updated, nil
}

// Delete removes an owned recipe and its stored image.
func (s *RecipeService) Delete(ctx context.Context, ownerID string, id int64) error {
	image, err := s.store.DeleteRecipe(ctx, ownerID, id)
	if err != nil {
		return notFound(err)
	}

	s.removeImage(image, id)
	s.metrics.IncRecipeDeleted()
	s.logger.Info("recipe_deleted",
		slog.Int64("recipe_id", id),
		slog.String("user_id", ownerID),
	)

	return nil
}

// UploadImage validates data as an image, stores it under a fresh random
// name and records it on the owned recipe. The previous image file, if any,
// is removed once the new path is saved. Invalid data writes nothing.
func (s *RecipeService) UploadImage(ctx context.Context, ownerID string, id int64, filename string, data []byte) (*model.Recipe, error) {
	if _, err := s.store.GetRecipe(ctx, ownerID, id); err != nil {
		return nil, notFound(err)
	}

	if err := storage.ValidateImage(data); err != nil {
		s.metrics.IncImageRejected()
		return nil, validation.Field("image",
			"Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}

	path, err := s.images.Save(recipeImageNamespace, filename, data)
	if err != nil {
		return nil, fmt.Errorf("save image: %w", err)
	}

	previous, err := s.store.SetRecipeImage(ctx, ownerID, id, path)
	if err != nil {
		if rmErr := s.images.Delete(path); rmErr != nil {
			s.logger.Error("image_cleanup_failed", slog.String("path", path), slog.String("error", rmErr.Error()))
		}
		return nil, fmt.Errorf("set recipe image: %w", notFound(err))
	}

	if previous != path {
		s.removeImage(previous, id)
	}

	s.metrics.IncImageUploaded()
	s.logger.Info("recipe_image_uploaded",
		slog.Int64("recipe_id", id),
		slog.String("user_id", ownerID),
		slog.String("path", path),
	)

	return s.Get(ctx, ownerID, id)
}

func (s *RecipeService) removeImage(path string, recipeID int64) {
	if path == "" {
		return
	}
	if err := s.images.Delete(path); err != nil {
		s.logger.Error("image_cleanup_failed",
			slog.Int64("recipe_id", recipeID),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}

func (s *RecipeService) recordItems(kinds []model.CatalogKind) {
	for _, k := range kinds {
		s.metrics.IncCatalogItemCreated(string(k))
	}
}

// reconcile resolves each distinct name to an owned item of kind, creating
// missing ones, and attaches them to the recipe. With replace set the
// existing associations of that kind are cleared first. It returns one
// entry per item it created.
func reconcile(ctx context.Context, w repository.RecipeWriter, ownerID string, recipeID int64, kind model.CatalogKind, items []ItemInput, replace bool) ([]model.CatalogKind, error) {
	names := uniqueNames(items)

	ids := make([]int64, 0, len(names))
	var created []model.CatalogKind
	for _, name := range names {
		item, wasCreated, err := w.GetOrCreateCatalogItem(ctx, kind, ownerID, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, item.ID)
		if wasCreated {
			created = append(created, kind)
		}
	}

	if replace {
		if err := w.ClearRecipeItems(ctx, kind, recipeID); err != nil {
			return nil, err
		}
	}

	if err := w.AttachRecipeItems(ctx, kind, recipeID, ids); err != nil {
		return nil, err
	}

	return created, nil
}

// uniqueNames returns the item names in first-seen order without repeats.
func uniqueNames(items []ItemInput) []string {
	seen := make(map[string]bool, len(items))
	names := make([]string, 0, len(items))
	for _, it := range items {
		if seen[it.Name] {
			continue
		}
		seen[it.Name] = true
		names = append(names, it.Name)
	}
	return names
}

func trimItems(items []ItemInput) {
	for i := range items {
		items[i].Name = strings.TrimSpace(items[i].Name)
	}
}

// checkPrice enforces NUMERIC(5,2): at most two decimals and three integer digits.
func checkPrice(errs validation.Errors, price decimal.Decimal) {
	if !price.Equal(price.Round(2)) {
		errs.Add("price", "Ensure that there are no more than 2 decimal places.")
	}
	if price.Abs().GreaterThanOrEqual(maxPrice) {
		errs.Add("price", "Ensure that there are no more than 3 digits before the decimal point.")
	}
}

func validateRecipeUpdate(in UpdateRecipeInput, full bool) validation.Errors {
	errs := validation.Errors{}

	if full {
		if in.Name == nil {
			errs.Add("name", "This field is required.")
		}
		if in.TimeMinutes == nil {
			errs.Add("time_minutes", "This field is required.")
		}
	}

	if in.Name != nil {
		checkText(errs, "name", *in.Name, true, maxNameLength)
	}
	if in.TimeMinutes != nil && *in.TimeMinutes < 0 {
		errs.Add("time_minutes", "Ensure this value is greater than or equal to 0.")
	}
	if in.Price.Set && !in.Price.Null {
		checkPrice(errs, in.Price.Value)
	}
	if in.Link != nil {
		checkText(errs, "link", *in.Link, false, maxNameLength)
	}

	for _, set := range []struct {
		field string
		items *[]ItemInput
	}{
		{"tags", in.Tags},
		{"ingredients", in.Ingredients},
	} {
		if set.items == nil {
			continue
		}
		for i, it := range *set.items {
			checkText(errs, fmt.Sprintf("%s[%d].name", set.field, i), it.Name, true, maxNameLength)
		}
	}

	return errs
}

func applyRecipeUpdate(recipe *model.Recipe, in UpdateRecipeInput) {
	if in.Name != nil {
		recipe.Name = *in.Name
	}
	if in.TimeMinutes != nil {
		recipe.TimeMinutes = *in.TimeMinutes
	}
	if in.Price.Set {
		recipe.Price = in.Price.Ptr()
	}
	if in.Description != nil {
		recipe.Description = *in.Description
	}
	if in.Link != nil {
		recipe.Link = *in.Link
	}
}
