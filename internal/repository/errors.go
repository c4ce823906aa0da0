package repository

import "errors"

// Repository errors.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrEmailExists         = errors.New("email already exists")
	ErrRecipeNotFound      = errors.New("recipe not found")
	ErrCatalogItemNotFound = errors.New("catalog item not found")
	ErrDuplicateName       = errors.New("name already exists")
	ErrUnknownKind         = errors.New("unknown catalog kind")
)
