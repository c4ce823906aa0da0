package dto

import "github.com/recipeapp/recipe-api/internal/model"

// UserResponse is the public view of an account.
type UserResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// TokenResponse carries a newly issued access token.
type TokenResponse struct {
	Token string `json:"token"`
}

// ToUserResponse converts a User model to UserResponse DTO.
func ToUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		Email: user.Email,
		Name:  user.Name,
	}
}
