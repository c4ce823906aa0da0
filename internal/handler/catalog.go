package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/recipeapp/recipe-api/internal/auth"
	"github.com/recipeapp/recipe-api/internal/handler/dto"
	"github.com/recipeapp/recipe-api/internal/service"
	"github.com/recipeapp/recipe-api/internal/validation"
)

// CatalogHandler serves one tag or ingredient catalog.
type CatalogHandler struct {
	svc    *service.CatalogService
	logger *slog.Logger
}

// NewCatalogHandler creates a new CatalogHandler for svc's kind.
func NewCatalogHandler(svc *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		svc:    svc,
		logger: logger,
	}
}

// List handles GET /api/recipe/{tags|ingredients}/.
// assigned_only=1 keeps only items attached to a recipe.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	assignedOnly := false
	if raw := r.URL.Query().Get("assigned_only"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeFieldErrors(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query parameters",
				validation.Field("assigned_only", "Must be 0 or 1."))
			return
		}
		assignedOnly = parsed
	}

	items, err := h.svc.List(r.Context(), auth.UserIDFromContext(r.Context()), assignedOnly)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToCatalogItemList(items))
}

// Get handles GET /api/recipe/{tags|ingredients}/{id}/.
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	item, err := h.svc.Get(r.Context(), auth.UserIDFromContext(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToCatalogItemResponse(item))
}

// Patch handles PATCH /api/recipe/{tags|ingredients}/{id}/.
func (h *CatalogHandler) Patch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

// Put handles PUT /api/recipe/{tags|ingredients}/{id}/.
func (h *CatalogHandler) Put(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

func (h *CatalogHandler) update(w http.ResponseWriter, r *http.Request, full bool) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req service.CatalogItemInput
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.svc.Update(r.Context(), auth.UserIDFromContext(r.Context()), id, req, full)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToCatalogItemResponse(item))
}

// Delete handles DELETE /api/recipe/{tags|ingredients}/{id}/.
func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), auth.UserIDFromContext(r.Context()), id); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
