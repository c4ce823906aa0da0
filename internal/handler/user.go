package handler

import (
	"log/slog"
	"net/http"

	"github.com/recipeapp/recipe-api/internal/auth"
	"github.com/recipeapp/recipe-api/internal/handler/dto"
	"github.com/recipeapp/recipe-api/internal/service"
)

// UserHandler handles signup, login and the caller's own profile.
type UserHandler struct {
	svc    *service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /api/user/create/.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.svc.Register(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToUserResponse(user))
}

// Token handles POST /api/user/token/.
func (h *UserHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req service.TokenInput
	if !decodeJSON(w, r, &req) {
		return
	}

	token, err := h.svc.IssueToken(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TokenResponse{Token: token})
}

// Me handles GET /api/user/me/.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication credentials were not provided")
		return
	}
	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// PatchMe handles PATCH /api/user/me/.
func (h *UserHandler) PatchMe(w http.ResponseWriter, r *http.Request) {
	h.updateMe(w, r, false)
}

// PutMe handles PUT /api/user/me/.
func (h *UserHandler) PutMe(w http.ResponseWriter, r *http.Request) {
	h.updateMe(w, r, true)
}

func (h *UserHandler) updateMe(w http.ResponseWriter, r *http.Request, full bool) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication credentials were not provided")
		return
	}

	var req service.UpdateProfileInput
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.svc.UpdateProfile(r.Context(), userID, req, full)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}
