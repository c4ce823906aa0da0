package dto

import "github.com/recipeapp/recipe-api/internal/model"

// URLFunc turns a stored media path into a public URL.
type URLFunc func(path string) string

// RecipeResponse is the list representation of a recipe.
// Price is rendered with two decimals, e.g. "5.50".
type RecipeResponse struct {
	ID          int64                  `json:"id"`
	Name        string                 `json:"name"`
	TimeMinutes int                    `json:"time_minutes"`
	Price       *string                `json:"price"`
	Link        string                 `json:"link"`
	Tags        []*CatalogItemResponse `json:"tags"`
	Ingredients []*CatalogItemResponse `json:"ingredients"`
}

// RecipeDetailResponse adds the description and image URL.
type RecipeDetailResponse struct {
	RecipeResponse
	Description string  `json:"description"`
	Image       *string `json:"image"`
}

// RecipeImageResponse is returned by the image upload endpoint.
type RecipeImageResponse struct {
	ID    int64   `json:"id"`
	Image *string `json:"image"`
}

// ToRecipeResponse converts a Recipe model to its list DTO.
func ToRecipeResponse(recipe *model.Recipe) *RecipeResponse {
	resp := &RecipeResponse{
		ID:          recipe.ID,
		Name:        recipe.Name,
		TimeMinutes: recipe.TimeMinutes,
		Link:        recipe.Link,
		Tags:        ToCatalogItemList(recipe.Tags),
		Ingredients: ToCatalogItemList(recipe.Ingredients),
	}
	if recipe.Price != nil {
		price := recipe.Price.StringFixed(2)
		resp.Price = &price
	}
	return resp
}

// ToRecipeList converts recipes, never returning nil.
func ToRecipeList(recipes []*model.Recipe) []*RecipeResponse {
	out := make([]*RecipeResponse, 0, len(recipes))
	for _, recipe := range recipes {
		out = append(out, ToRecipeResponse(recipe))
	}
	return out
}

// ToRecipeDetailResponse converts a Recipe model to its detail DTO.
func ToRecipeDetailResponse(recipe *model.Recipe, imageURL URLFunc) *RecipeDetailResponse {
	return &RecipeDetailResponse{
		RecipeResponse: *ToRecipeResponse(recipe),
		Description:    recipe.Description,
		Image:          imageLink(recipe.Image, imageURL),
	}
}

// ToRecipeImageResponse converts a Recipe model to the upload DTO.
func ToRecipeImageResponse(recipe *model.Recipe, imageURL URLFunc) *RecipeImageResponse {
	return &RecipeImageResponse{
		ID:    recipe.ID,
		Image: imageLink(recipe.Image, imageURL),
	}
}

func imageLink(path string, imageURL URLFunc) *string {
	if path == "" {
		return nil
	}
	if imageURL != nil {
		path = imageURL(path)
	}
	return &path
}
