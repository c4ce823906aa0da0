package dto

import "github.com/recipeapp/recipe-api/internal/model"

// CatalogItemResponse represents a tag or an ingredient.
type CatalogItemResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ToCatalogItemResponse converts a CatalogItem model to its DTO.
func ToCatalogItemResponse(item *model.CatalogItem) *CatalogItemResponse {
	return &CatalogItemResponse{ID: item.ID, Name: item.Name}
}

// ToCatalogItemList converts items, never returning nil.
func ToCatalogItemList(items []*model.CatalogItem) []*CatalogItemResponse {
	out := make([]*CatalogItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, ToCatalogItemResponse(item))
	}
	return out
}
