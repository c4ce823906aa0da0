package model

// CatalogKind distinguishes the two owned name catalogs.
type CatalogKind string

// Catalog kinds.
const (
	KindTag        CatalogKind = "tag"
	KindIngredient CatalogKind = "ingredient"
)

// IsValid reports whether k is a known catalog kind.
func (k CatalogKind) IsValid() bool {
	return k == KindTag || k == KindIngredient
}

// CatalogItem is a Tag or an Ingredient: a name owned by one user.
type CatalogItem struct {
	ID     int64       `json:"id"`
	UserID string      `json:"-"`
	Kind   CatalogKind `json:"-"`
	Name   string      `json:"name"`
}

// CatalogQuery selects an owner's tags or ingredients.
type CatalogQuery struct {
	OwnerID string
	Kind    CatalogKind
	// AssignedOnly keeps only items attached to at least one recipe.
	AssignedOnly bool
}
