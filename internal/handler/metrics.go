package handler

import (
	"fmt"
	"net/http"

	"github.com/recipeapp/recipe-api/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "recipeapi_users_created_total %d\n", snap.UsersCreated)
	writeMetric(w, "recipeapi_tokens_issued_total %d\n", snap.TokensIssued)
	writeMetric(w, "recipeapi_auth_failures_total %d\n", snap.AuthFailures)

	writeMetric(w, "recipeapi_recipes_created_total %d\n", snap.RecipesCreated)
	writeMetric(w, "recipeapi_recipes_updated_total %d\n", snap.RecipesUpdated)
	writeMetric(w, "recipeapi_recipes_deleted_total %d\n", snap.RecipesDeleted)

	writeMetric(w, "recipeapi_catalog_items_created_total{kind=\"tag\"} %d\n", snap.TagsCreated)
	writeMetric(w, "recipeapi_catalog_items_created_total{kind=\"ingredient\"} %d\n", snap.IngredientsCreated)

	writeMetric(w, "recipeapi_images_uploaded_total{status=\"accepted\"} %d\n", snap.ImagesUploaded)
	writeMetric(w, "recipeapi_images_uploaded_total{status=\"rejected\"} %d\n", snap.ImagesRejected)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
