package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/recipeapp/recipe-api/internal/auth"
	"github.com/recipeapp/recipe-api/internal/handler/dto"
	"github.com/recipeapp/recipe-api/internal/service"
	"github.com/recipeapp/recipe-api/internal/validation"
)

// imageField is the multipart field carrying an uploaded recipe image.
const imageField = "image"

// multipartMemory is how much of a multipart body is kept in memory
// before spilling to temporary files.
const multipartMemory = 8 << 20

// MediaURLer builds public URLs for stored media paths.
type MediaURLer interface {
	URL(path string) string
}

// RecipeHandler handles HTTP requests for recipes.
type RecipeHandler struct {
	svc    *service.RecipeService
	media  MediaURLer
	logger *slog.Logger
}

// NewRecipeHandler creates a new RecipeHandler.
func NewRecipeHandler(svc *service.RecipeService, media MediaURLer, logger *slog.Logger) *RecipeHandler {
	return &RecipeHandler{
		svc:    svc,
		media:  media,
		logger: logger,
	}
}

func (h *RecipeHandler) imageURL(path string) string {
	if h.media == nil {
		return path
	}
	return h.media.URL(path)
}

// List handles GET /api/recipe/recipes/.
// tags and ingredients take comma-separated IDs.
func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	errs := validation.Errors{}
	tagIDs, err := parseIDList(query.Get("tags"))
	if err != nil {
		errs.Add("tags", "Enter a comma-separated list of integer IDs.")
	}
	ingredientIDs, err := parseIDList(query.Get("ingredients"))
	if err != nil {
		errs.Add("ingredients", "Enter a comma-separated list of integer IDs.")
	}
	if len(errs) > 0 {
		writeFieldErrors(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query parameters", errs)
		return
	}

	recipes, err := h.svc.List(r.Context(), auth.UserIDFromContext(r.Context()), service.RecipeFilter{
		TagIDs:        tagIDs,
		IngredientIDs: ingredientIDs,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToRecipeList(recipes))
}

// Create handles POST /api/recipe/recipes/.
func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateRecipeInput
	if !decodeJSON(w, r, &req) {
		return
	}

	recipe, err := h.svc.Create(r.Context(), auth.UserIDFromContext(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToRecipeDetailResponse(recipe, h.imageURL))
}

// Get handles GET /api/recipe/recipes/{id}/.
func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	recipe, err := h.svc.Get(r.Context(), auth.UserIDFromContext(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToRecipeDetailResponse(recipe, h.imageURL))
}

// Patch handles PATCH /api/recipe/recipes/{id}/.
func (h *RecipeHandler) Patch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

// Put handles PUT /api/recipe/recipes/{id}/.
func (h *RecipeHandler) Put(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

func (h *RecipeHandler) update(w http.ResponseWriter, r *http.Request, full bool) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req service.UpdateRecipeInput
	if !decodeJSON(w, r, &req) {
		return
	}

	recipe, err := h.svc.Update(r.Context(), auth.UserIDFromContext(r.Context()), id, req, full)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToRecipeDetailResponse(recipe, h.imageURL))
}

// Delete handles DELETE /api/recipe/recipes/{id}/.
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// UploadImage handles POST /api/recipe/recipes/{id}/upload-image/.
// The file is read from the multipart field "image".
func (h *RecipeHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
			return
		}
		writeFieldErrors(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input",
			validation.Field(imageField, "The submitted data was not a file. Check the encoding type on the form."))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(imageField)
	if err != nil {
		writeFieldErrors(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input",
			validation.Field(imageField, "No file was submitted."))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	recipe, err := h.svc.UploadImage(r.Context(), auth.UserIDFromContext(r.Context()), id, header.Filename, data)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToRecipeImageResponse(recipe, h.imageURL))
}

// parseIDList parses "1,2,3". Blank input means no filter.
func parseIDList(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
