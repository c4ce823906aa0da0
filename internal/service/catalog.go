package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/recipeapp/recipe-api/internal/model"
	"github.com/recipeapp/recipe-api/internal/repository"
	"github.com/recipeapp/recipe-api/internal/validation"
)

// CatalogService serves one catalog kind (tags or ingredients) for an owner.
// Items are created through recipe writes, so it offers no Create.
type CatalogService struct {
	store  CatalogStore
	kind   model.CatalogKind
	logger *slog.Logger
}

// NewCatalogService creates a CatalogService for kind.
func NewCatalogService(store CatalogStore, kind model.CatalogKind, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{store: store, kind: kind, logger: logger}
}

// Kind returns the catalog kind this service manages.
func (s *CatalogService) Kind() model.CatalogKind {
	return s.kind
}

// CatalogItemInput is the tag/ingredient update payload.
type CatalogItemInput struct {
	Name *string `json:"name"`
}

// List returns the owner's items, newest first. With assignedOnly, only
// items attached to at least one recipe are returned.
func (s *CatalogService) List(ctx context.Context, ownerID string, assignedOnly bool) ([]*model.CatalogItem, error) {
	items, err := s.store.ListCatalogItems(ctx, model.CatalogQuery{
		OwnerID:      ownerID,
		Kind:         s.kind,
		AssignedOnly: assignedOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.kind, err)
	}
	return items, nil
}

// Get returns one owned item.
func (s *CatalogService) Get(ctx context.Context, ownerID string, id int64) (*model.CatalogItem, error) {
	item, err := s.store.GetCatalogItem(ctx, s.kind, ownerID, id)
	if err != nil {
		return nil, notFound(err)
	}
	return item, nil
}

// Update renames an owned item. With full set the name is required; a
// partial update without a name returns the item unchanged.
func (s *CatalogService) Update(ctx context.Context, ownerID string, id int64, in CatalogItemInput, full bool) (*model.CatalogItem, error) {
	trimPtr(in.Name)

	errs := validation.Errors{}
	if in.Name == nil && full {
		errs.Add("name", "This field is required.")
	}
	if in.Name != nil {
		checkText(errs, "name", *in.Name, true, maxNameLength)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	if in.Name == nil {
		return s.Get(ctx, ownerID, id)
	}

	item, err := s.store.RenameCatalogItem(ctx, s.kind, ownerID, id, *in.Name)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateName) {
			return nil, validation.Field("name", fmt.Sprintf("%s with this name already exists.", s.kind))
		}
		return nil, notFound(err)
	}

	s.logger.Info("catalog_item_updated",
		slog.String("kind", string(s.kind)),
		slog.Int64("id", item.ID),
		slog.String("user_id", ownerID),
	)

	return item, nil
}

// Delete removes an owned item. Recipes keep existing without it.
func (s *CatalogService) Delete(ctx context.Context, ownerID string, id int64) error {
	if err := s.store.DeleteCatalogItem(ctx, s.kind, ownerID, id); err != nil {
		return notFound(err)
	}

	s.logger.Info("catalog_item_deleted",
		slog.String("kind", string(s.kind)),
		slog.Int64("id", id),
		slog.String("user_id", ownerID),
	)

	return nil
}
