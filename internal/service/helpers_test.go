package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log/slog"
	"testing"

	"github.com/recipeapp/recipe-api/internal/auth"
	"github.com/recipeapp/recipe-api/internal/metrics"
	"github.com/recipeapp/recipe-api/internal/model"
	"github.com/recipeapp/recipe-api/internal/storage"
	"github.com/recipeapp/recipe-api/internal/testutil/memstore"
)

var (
	testPasswordParams = auth.Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}
	discardLogger      = slog.New(slog.NewTextHandler(io.Discard, nil))
)

type testEnv struct {
	store    *memstore.Store
	tokens   *memstore.Tokens
	images   *storage.Local
	recorder *metrics.InMemoryRecorder
	users    *UserService
	recipes  *RecipeService
	tags     *CatalogService
	ingreds  *CatalogService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	images, err := storage.NewLocal(t.TempDir(), "/media")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	env := &testEnv{
		store:    memstore.New(),
		tokens:   memstore.NewTokens(),
		images:   images,
		recorder: metrics.NewInMemory(),
	}
	env.users = NewUserService(env.store, env.tokens, env.recorder, discardLogger).WithPasswordParams(testPasswordParams)
	env.recipes = NewRecipeService(env.store, env.images, env.recorder, discardLogger)
	env.tags = NewCatalogService(env.store, model.KindTag, discardLogger)
	env.ingreds = NewCatalogService(env.store, model.KindIngredient, discardLogger)
	return env
}

func (e *testEnv) newUser(t *testing.T, email string) *model.User {
	t.Helper()
	user, err := e.users.CreateUser(context.Background(), email, "testpass123", UserFields{Name: "Test"})
	if err != nil {
		t.Fatalf("CreateUser(%q): %v", email, err)
	}
	return user
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func items(names ...string) []ItemInput {
	out := make([]ItemInput, len(names))
	for i, n := range names {
		out[i] = ItemInput{Name: n}
	}
	return out
}

func itemNames(list []*model.CatalogItem) []string {
	names := make([]string, len(list))
	for i, it := range list {
		names[i] = it.Name
	}
	return names
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	img.Set(2, 2, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}
