package router

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/recipeapp/recipe-api/internal/auth"
	"github.com/recipeapp/recipe-api/internal/metrics"
	"github.com/recipeapp/recipe-api/internal/model"
	"github.com/recipeapp/recipe-api/internal/service"
	"github.com/recipeapp/recipe-api/internal/storage"
	"github.com/recipeapp/recipe-api/internal/testutil/memstore"
)

var testPasswordParams = auth.Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

type testApp struct {
	mux      *chi.Mux
	store    *memstore.Store
	media    *storage.Local
	recorder *metrics.InMemoryRecorder
}

func defaultSettings() Settings {
	return Settings{
		IsDevelopment:      true,
		MaxRequestBodySize: 1 << 20,
		MaxUploadSize:      1 << 20,
		UploadTimeout:      time.Minute,
		MediaURL:           "/media",
		MetricsEnabled:     true,
	}
}

func newTestApp(t *testing.T, settings Settings) *testApp {
	t.Helper()

	media, err := storage.NewLocal(t.TempDir(), settings.MediaURL)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app := &testApp{
		store:    memstore.New(),
		media:    media,
		recorder: metrics.NewInMemory(),
	}
	tokens := memstore.NewTokens()

	app.mux = New(Deps{
		Settings:    settings,
		Logger:      logger,
		Users:       service.NewUserService(app.store, tokens, app.recorder, logger).WithPasswordParams(testPasswordParams),
		Recipes:     service.NewRecipeService(app.store, media, app.recorder, logger),
		Tags:        service.NewCatalogService(app.store, model.KindTag, logger),
		Ingredients: service.NewCatalogService(app.store, model.KindIngredient, logger),
		Media:       media,
		Metrics:     app.recorder,
	})
	return app
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var raw string
	switch b := body.(type) {
	case nil:
	case string:
		raw = b
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		raw = string(data)
	}

	rec := httptest.NewRecorder()
	a.mux.ServeHTTP(rec, jsonRequest(method, path, token, raw))
	return rec
}

// jsonRequest builds an API request; an empty body sends none.
func jsonRequest(method, path, token, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	return req
}

func (a *testApp) upload(t *testing.T, path, token, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	a.mux.ServeHTTP(rec, uploadRequest(t, path, token, filename, data))
	return rec
}

// uploadRequest builds a multipart request carrying data in the image field.
func uploadRequest(t *testing.T, path, token, filename string, data []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Token "+token)
	return req
}

// signup registers a user and returns a fresh token for it.
func (a *testApp) signup(t *testing.T, email string) string {
	t.Helper()

	creds := map[string]string{"email": email, "password": "testpass123", "name": "Test User"}
	if rec := a.do(t, http.MethodPost, "/api/user/create/", "", creds); rec.Code != http.StatusCreated {
		t.Fatalf("signup %s: status %d body %s", email, rec.Code, rec.Body.String())
	}

	rec := a.do(t, http.MethodPost, "/api/user/token/", "", map[string]string{"email": email, "password": "testpass123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("token %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	decode(t, rec, &resp)
	return resp.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(2, 2, color.RGBA{G: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

type recipeBody struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	TimeMinutes int       `json:"time_minutes"`
	Price       *string   `json:"price"`
	Link        string    `json:"link"`
	Description string    `json:"description"`
	Image       *string   `json:"image"`
	Tags        []itemRef `json:"tags"`
	Ingredients []itemRef `json:"ingredients"`
}

type itemRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func newRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}
