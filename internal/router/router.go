// Package router wires handlers and middleware into the HTTP route tree.
package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/recipeapp/recipe-api/api"
	"github.com/recipeapp/recipe-api/internal/handler"
	"github.com/recipeapp/recipe-api/internal/metrics"
	"github.com/recipeapp/recipe-api/internal/middleware"
	"github.com/recipeapp/recipe-api/internal/service"
)

// Settings are the HTTP-level knobs taken from configuration.
type Settings struct {
	IsDevelopment      bool
	CORSAllowedOrigins []string
	MaxRequestBodySize int64
	MaxUploadSize      int64
	// UploadTimeout is the body read deadline for image uploads.
	UploadTimeout time.Duration
	// MediaURL is the path prefix uploaded files are served under, e.g. "/media".
	MediaURL       string
	MetricsEnabled bool
}

// MediaStore stores uploaded files under a root directory.
type MediaStore interface {
	handler.MediaURLer
	Root() string
}

// Deps holds everything the route tree needs.
type Deps struct {
	Settings    Settings
	Logger      *slog.Logger
	Users       *service.UserService
	Recipes     *service.RecipeService
	Tags        *service.CatalogService
	Ingredients *service.CatalogService
	Media       MediaStore
	// DB and Tokens back the readiness probe. Either may be nil.
	DB      handler.HealthChecker
	Tokens  handler.HealthChecker
	Metrics metrics.Snapshotter
}

// New builds the chi router with all routes and middleware.
func New(deps Deps) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	settings := deps.Settings

	h := handler.New()
	healthHandler := handler.NewHealthHandler(deps.DB, deps.Tokens, logger)
	userHandler := handler.NewUserHandler(deps.Users, logger)
	recipeHandler := handler.NewRecipeHandler(deps.Recipes, deps.Media, logger)
	tagHandler := handler.NewCatalogHandler(deps.Tags, logger)
	ingredientHandler := handler.NewCatalogHandler(deps.Ingredients, logger)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.StripSlashes)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: settings.IsDevelopment}))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = settings.CORSAllowedOrigins
	r.Use(middleware.CORS(corsCfg))

	// Health endpoints (no auth required)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)

	if settings.MetricsEnabled && deps.Metrics != nil {
		r.Get("/metrics", handler.NewMetricsHandler(deps.Metrics).Metrics)
	}

	if deps.Media != nil && settings.MediaURL != "" {
		prefix := "/" + strings.Trim(settings.MediaURL, "/")
		files := http.StripPrefix(prefix, http.FileServer(filesOnly{http.Dir(deps.Media.Root())}))
		r.Handle(prefix+"/*", files)
	}

	authCfg := middleware.AuthConfig{
		Logger:        logger,
		Authenticator: deps.Users,
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/schema", serveSchema)

		// Public user endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.MaxBodySize(settings.MaxRequestBodySize))
			r.Post("/user/create", userHandler.Create)
			r.Post("/user/token", userHandler.Token)
		})

		// Authenticated JSON endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authCfg))
			r.Use(middleware.MaxBodySize(settings.MaxRequestBodySize))

			r.Get("/user/me", userHandler.Me)
			r.Patch("/user/me", userHandler.PatchMe)
			r.Put("/user/me", userHandler.PutMe)

			r.Get("/recipe/recipes", recipeHandler.List)
			r.Post("/recipe/recipes", recipeHandler.Create)
			r.Get("/recipe/recipes/{id}", recipeHandler.Get)
			r.Patch("/recipe/recipes/{id}", recipeHandler.Patch)
			r.Put("/recipe/recipes/{id}", recipeHandler.Put)
			r.Delete("/recipe/recipes/{id}", recipeHandler.Delete)

			mountCatalog(r, "/recipe/tags", tagHandler)
			mountCatalog(r, "/recipe/ingredients", ingredientHandler)
		})

		// Image upload takes a larger multipart body
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authCfg))
			r.Use(middleware.RequestTimeout(settings.UploadTimeout))
			r.Use(middleware.MaxBodySize(settings.MaxUploadSize))
			r.Post("/recipe/recipes/{id}/upload-image", recipeHandler.UploadImage)
		})
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

func mountCatalog(r chi.Router, prefix string, h *handler.CatalogHandler) {
	r.Get(prefix, h.List)
	r.Get(prefix+"/{id}", h.Get)
	r.Patch(prefix+"/{id}", h.Patch)
	r.Put(prefix+"/{id}", h.Put)
	r.Delete(prefix+"/{id}", h.Delete)
}

// serveSchema returns the OpenAPI document, as YAML by default or as JSON
// with ?format=json.
func serveSchema(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") != "json" {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(api.Spec)
		return
	}

	doc, err := LoadSpec(r.Context())
	if err != nil {
		http.Error(w, "schema unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(doc)
}

// LoadSpec parses and validates the embedded OpenAPI document.
func LoadSpec(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(api.Spec)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}
	return doc, nil
}

// filesOnly hides directories so the media root cannot be listed.
type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}
