// Package memstore is an in-memory stand-in for the PostgreSQL repository
// and the Redis token store, used by unit tests.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/recipeapp/recipe-api/internal/model"
	"github.com/recipeapp/recipe-api/internal/repository"
)

// Store implements the user, recipe and catalog storage interfaces.
// WithinTx holds the lock for the whole callback and restores a snapshot
// when the callback fails.
type Store struct {
	mu    sync.Mutex
	st    *state
	fails map[string]error
}

// New returns an empty Store.
func New() *Store {
	return &Store{st: newState(), fails: make(map[string]error)}
}

// FailOn makes the next call of the named method return err.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fails[method] = err
}

func (s *Store) injected(method string) error {
	if err, ok := s.fails[method]; ok {
		delete(s.fails, method)
		return err
	}
	return nil
}

// CatalogNames returns the owner's item names of kind, sorted.
func (s *Store) CatalogNames(ownerID string, kind model.CatalogKind) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var names []string
	for _, it := range s.st.items[kind] {
		if it.UserID == ownerID {
			names = append(names, it.Name)
		}
	}
	sort.Strings(names)
	return names
}

// AddCatalogItem inserts an item directly, bypassing reconciliation.
func (s *Store) AddCatalogItem(kind model.CatalogKind, ownerID, name string) *model.CatalogItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, _ := s.st.getOrCreate(kind, ownerID, name)
	return it
}

type state struct {
	users      map[string]*model.User
	recipes    map[int64]*model.Recipe
	items      map[model.CatalogKind]map[int64]*model.CatalogItem
	links      map[model.CatalogKind]map[int64]map[int64]bool // recipe -> item set
	nextRecipe int64
	nextItem   int64
}

func newState() *state {
	return &state{
		users:   make(map[string]*model.User),
		recipes: make(map[int64]*model.Recipe),
		items: map[model.CatalogKind]map[int64]*model.CatalogItem{
			model.KindTag:        {},
			model.KindIngredient: {},
		},
		links: map[model.CatalogKind]map[int64]map[int64]bool{
			model.KindTag:        {},
			model.KindIngredient: {},
		},
	}
}

func (st *state) clone() *state {
	c := newState()
	c.nextRecipe = st.nextRecipe
	c.nextItem = st.nextItem
	for k, u := range st.users {
		cp := *u
		c.users[k] = &cp
	}
	for k, r := range st.recipes {
		c.recipes[k] = copyRecipe(r)
	}
	for kind, m := range st.items {
		for id, it := range m {
			cp := *it
			c.items[kind][id] = &cp
		}
	}
	for kind, m := range st.links {
		for rid, set := range m {
			c.links[kind][rid] = make(map[int64]bool, len(set))
			for iid := range set {
				c.links[kind][rid][iid] = true
			}
		}
	}
	return c
}

func copyRecipe(r *model.Recipe) *model.Recipe {
	cp := *r
	if r.Price != nil {
		p := *r.Price
		cp.Price = &p
	}
	cp.Tags = nil
	cp.Ingredients = nil
	return &cp
}

func (st *state) withItems(r *model.Recipe) *model.Recipe {
	out := copyRecipe(r)
	for _, kind := range []model.CatalogKind{model.KindTag, model.KindIngredient} {
		ids := make([]int64, 0)
		for id := range st.links[kind][r.ID] {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		items := make([]*model.CatalogItem, 0, len(ids))
		for _, id := range ids {
			cp := *st.items[kind][id]
			items = append(items, &cp)
		}
		out.SetItems(kind, items)
	}
	return out
}

func (st *state) ownedRecipe(ownerID string, id int64) (*model.Recipe, error) {
	r, ok := st.recipes[id]
	if !ok || r.UserID != ownerID {
		return nil, repository.ErrRecipeNotFound
	}
	return r, nil
}

func (st *state) getOrCreate(kind model.CatalogKind, ownerID, name string) (*model.CatalogItem, bool) {
	for _, it := range st.items[kind] {
		if it.UserID == ownerID && it.Name == name {
			cp := *it
			return &cp, false
		}
	}
	st.nextItem++
	it := &model.CatalogItem{ID: st.nextItem, UserID: ownerID, Kind: kind, Name: name}
	st.items[kind][it.ID] = it
	cp := *it
	return &cp, true
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// CreateUser stores a user; emails are unique.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("CreateUser"); err != nil {
		return err
	}

	for _, u := range s.st.users {
		if u.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	cp := *user
	s.st.users[user.ID] = &cp
	return nil
}

// GetUserByID returns a copy of the user.
func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("GetUserByID"); err != nil {
		return nil, err
	}

	u, ok := s.st.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// GetUserByEmail returns a copy of the user with exactly this email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("GetUserByEmail"); err != nil {
		return nil, err
	}

	for _, u := range s.st.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

// UpdateUser overwrites a stored user.
func (s *Store) UpdateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("UpdateUser"); err != nil {
		return err
	}

	if _, ok := s.st.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	for id, u := range s.st.users {
		if id != user.ID && u.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	cp := *user
	s.st.users[user.ID] = &cp
	return nil
}

// DeleteUser removes a user and everything they own.
func (s *Store) DeleteUser(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.st.users, id)
	for rid, r := range s.st.recipes {
		if r.UserID == id {
			s.st.deleteRecipe(rid)
		}
	}
	for kind, m := range s.st.items {
		for iid, it := range m {
			if it.UserID == id {
				s.st.deleteItem(kind, iid)
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Recipes
// ---------------------------------------------------------------------------

// ListRecipes returns the owner's recipes matching q, newest first.
func (s *Store) ListRecipes(ctx context.Context, q model.RecipeQuery) ([]*model.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("ListRecipes"); err != nil {
		return nil, err
	}

	out := make([]*model.Recipe, 0)
	for _, r := range s.st.recipes {
		if r.UserID != q.OwnerID {
			continue
		}
		if !s.st.linkedToAny(model.KindTag, r.ID, q.TagIDs) ||
			!s.st.linkedToAny(model.KindIngredient, r.ID, q.IngredientIDs) {
			continue
		}
		out = append(out, s.st.withItems(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (st *state) linkedToAny(kind model.CatalogKind, recipeID int64, ids []int64) bool {
	if len(ids) == 0 {
		return true
	}
	for _, id := range ids {
		if st.links[kind][recipeID][id] {
			return true
		}
	}
	return false
}

// GetRecipe returns an owned recipe with its items.
func (s *Store) GetRecipe(ctx context.Context, ownerID string, id int64) (*model.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("GetRecipe"); err != nil {
		return nil, err
	}
	return s.st.getRecipe(ownerID, id)
}

func (st *state) getRecipe(ownerID string, id int64) (*model.Recipe, error) {
	r, err := st.ownedRecipe(ownerID, id)
	if err != nil {
		return nil, err
	}
	return st.withItems(r), nil
}

// DeleteRecipe removes an owned recipe and returns its image path.
func (s *Store) DeleteRecipe(ctx context.Context, ownerID string, id int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("DeleteRecipe"); err != nil {
		return "", err
	}

	r, err := s.st.ownedRecipe(ownerID, id)
	if err != nil {
		return "", err
	}
	image := r.Image
	s.st.deleteRecipe(id)
	return image, nil
}

func (st *state) deleteRecipe(id int64) {
	delete(st.recipes, id)
	for _, m := range st.links {
		delete(m, id)
	}
}

func (st *state) deleteItem(kind model.CatalogKind, id int64) {
	delete(st.items[kind], id)
	for _, set := range st.links[kind] {
		delete(set, id)
	}
}

// SetRecipeImage records an image path and returns the previous one.
func (s *Store) SetRecipeImage(ctx context.Context, ownerID string, id int64, path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("SetRecipeImage"); err != nil {
		return "", err
	}

	r, err := s.st.ownedRecipe(ownerID, id)
	if err != nil {
		return "", err
	}
	previous := r.Image
	r.Image = path
	return previous, nil
}

// WithinTx runs fn against a writer; state is rolled back when fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(w repository.RecipeWriter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(&writer{s: s}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// writer runs inside WithinTx with the lock already held.
type writer struct {
	s *Store
}

func (w *writer) InsertRecipe(ctx context.Context, recipe *model.Recipe) error {
	if err := w.s.injected("InsertRecipe"); err != nil {
		return err
	}
	st := w.s.st
	st.nextRecipe++
	recipe.ID = st.nextRecipe
	st.recipes[recipe.ID] = copyRecipe(recipe)
	return nil
}

func (w *writer) UpdateRecipe(ctx context.Context, recipe *model.Recipe) error {
	if err := w.s.injected("UpdateRecipe"); err != nil {
		return err
	}
	st := w.s.st
	existing, err := st.ownedRecipe(recipe.UserID, recipe.ID)
	if err != nil {
		return err
	}
	cp := copyRecipe(recipe)
	cp.Image = existing.Image
	cp.CreatedAt = existing.CreatedAt
	st.recipes[recipe.ID] = cp
	return nil
}

func (w *writer) LockRecipe(ctx context.Context, ownerID string, id int64) (*model.Recipe, error) {
	if err := w.s.injected("LockRecipe"); err != nil {
		return nil, err
	}
	r, err := w.s.st.ownedRecipe(ownerID, id)
	if err != nil {
		return nil, err
	}
	return copyRecipe(r), nil
}

func (w *writer) GetRecipe(ctx context.Context, ownerID string, id int64) (*model.Recipe, error) {
	return w.s.st.getRecipe(ownerID, id)
}

func (w *writer) GetOrCreateCatalogItem(ctx context.Context, kind model.CatalogKind, ownerID, name string) (*model.CatalogItem, bool, error) {
	if err := w.s.injected("GetOrCreateCatalogItem"); err != nil {
		return nil, false, err
	}
	if !kind.IsValid() {
		return nil, false, repository.ErrUnknownKind
	}
	it, created := w.s.st.getOrCreate(kind, ownerID, name)
	return it, created, nil
}

func (w *writer) ClearRecipeItems(ctx context.Context, kind model.CatalogKind, recipeID int64) error {
	if err := w.s.injected("ClearRecipeItems"); err != nil {
		return err
	}
	delete(w.s.st.links[kind], recipeID)
	return nil
}

func (w *writer) AttachRecipeItems(ctx context.Context, kind model.CatalogKind, recipeID int64, itemIDs []int64) error {
	if err := w.s.injected("AttachRecipeItems"); err != nil {
		return err
	}
	if len(itemIDs) == 0 {
		return nil
	}
	st := w.s.st
	set, ok := st.links[kind][recipeID]
	if !ok {
		set = make(map[int64]bool)
		st.links[kind][recipeID] = set
	}
	for _, id := range itemIDs {
		set[id] = true
	}
	return nil
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

// ListCatalogItems returns the owner's items of q.Kind, newest first.
func (s *Store) ListCatalogItems(ctx context.Context, q model.CatalogQuery) ([]*model.CatalogItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("ListCatalogItems"); err != nil {
		return nil, err
	}
	if !q.Kind.IsValid() {
		return nil, repository.ErrUnknownKind
	}

	out := make([]*model.CatalogItem, 0)
	for id, it := range s.st.items[q.Kind] {
		if it.UserID != q.OwnerID {
			continue
		}
		if q.AssignedOnly && !s.st.assigned(q.Kind, id) {
			continue
		}
		cp := *it
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (st *state) assigned(kind model.CatalogKind, itemID int64) bool {
	for _, set := range st.links[kind] {
		if set[itemID] {
			return true
		}
	}
	return false
}

// GetCatalogItem returns one owned item.
func (s *Store) GetCatalogItem(ctx context.Context, kind model.CatalogKind, ownerID string, id int64) (*model.CatalogItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.st.items[kind][id]
	if !ok || it.UserID != ownerID {
		return nil, repository.ErrCatalogItemNotFound
	}
	cp := *it
	return &cp, nil
}

// RenameCatalogItem renames one owned item; names are unique per owner.
func (s *Store) RenameCatalogItem(ctx context.Context, kind model.CatalogKind, ownerID string, id int64, name string) (*model.CatalogItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.st.items[kind][id]
	if !ok || it.UserID != ownerID {
		return nil, repository.ErrCatalogItemNotFound
	}
	for otherID, other := range s.st.items[kind] {
		if otherID != id && other.UserID == ownerID && other.Name == name {
			return nil, repository.ErrDuplicateName
		}
	}
	it.Name = name
	cp := *it
	return &cp, nil
}

// DeleteCatalogItem removes one owned item and its links.
func (s *Store) DeleteCatalogItem(ctx context.Context, kind model.CatalogKind, ownerID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.st.items[kind][id]
	if !ok || it.UserID != ownerID {
		return repository.ErrCatalogItemNotFound
	}
	s.st.deleteItem(kind, id)
	return nil
}
