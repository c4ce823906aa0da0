package metrics

import "sync/atomic"

// Snapshot captures current in-memory counters.
type Snapshot struct {
	UsersCreated       uint64
	TokensIssued       uint64
	AuthFailures       uint64
	RecipesCreated     uint64
	RecipesUpdated     uint64
	RecipesDeleted     uint64
	TagsCreated        uint64
	IngredientsCreated uint64
	ImagesUploaded     uint64
	ImagesRejected     uint64
}

// InMemoryRecorder stores metrics in memory. It backs the /metrics endpoint
// and is used directly by tests.
type InMemoryRecorder struct {
	usersCreated       atomic.Uint64
	tokensIssued       atomic.Uint64
	authFailures       atomic.Uint64
	recipesCreated     atomic.Uint64
	recipesUpdated     atomic.Uint64
	recipesDeleted     atomic.Uint64
	tagsCreated        atomic.Uint64
	ingredientsCreated atomic.Uint64
	imagesUploaded     atomic.Uint64
	imagesRejected     atomic.Uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		UsersCreated:       m.usersCreated.Load(),
		TokensIssued:       m.tokensIssued.Load(),
		AuthFailures:       m.authFailures.Load(),
		RecipesCreated:     m.recipesCreated.Load(),
		RecipesUpdated:     m.recipesUpdated.Load(),
		RecipesDeleted:     m.recipesDeleted.Load(),
		TagsCreated:        m.tagsCreated.Load(),
		IngredientsCreated: m.ingredientsCreated.Load(),
		ImagesUploaded:     m.imagesUploaded.Load(),
		ImagesRejected:     m.imagesRejected.Load(),
	}
}

// IncUserCreated increments the user created counter.
func (m *InMemoryRecorder) IncUserCreated() { m.usersCreated.Add(1) }

// IncTokenIssued increments the token issued counter.
func (m *InMemoryRecorder) IncTokenIssued() { m.tokensIssued.Add(1) }

// IncAuthFailed increments the failed authentication counter.
func (m *InMemoryRecorder) IncAuthFailed() { m.authFailures.Add(1) }

// IncRecipeCreated increments the recipe created counter.
func (m *InMemoryRecorder) IncRecipeCreated() { m.recipesCreated.Add(1) }

// IncRecipeUpdated increments the recipe updated counter.
func (m *InMemoryRecorder) IncRecipeUpdated() { m.recipesUpdated.Add(1) }

// IncRecipeDeleted increments the recipe deleted counter.
func (m *InMemoryRecorder) IncRecipeDeleted() { m.recipesDeleted.Add(1) }

// IncCatalogItemCreated increments the tag or ingredient created counter.
func (m *InMemoryRecorder) IncCatalogItemCreated(kind string) {
	switch kind {
	case "tag":
		m.tagsCreated.Add(1)
	case "ingredient":
		m.ingredientsCreated.Add(1)
	}
}

// IncImageUploaded increments the accepted image counter.
func (m *InMemoryRecorder) IncImageUploaded() { m.imagesUploaded.Add(1) }

// IncImageRejected increments the rejected image counter.
func (m *InMemoryRecorder) IncImageRejected() { m.imagesRejected.Add(1) }
