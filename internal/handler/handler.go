// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"

	"github.com/recipeapp/recipe-api/internal/handler/dto"
	"github.com/recipeapp/recipe-api/internal/middleware"
	"github.com/recipeapp/recipe-api/internal/readiness"
	"github.com/recipeapp/recipe-api/internal/service"
	"github.com/recipeapp/recipe-api/internal/validation"
)

// Handler serves the fallback responses shared by every route.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{Error: dto.ErrorBody{Code: code, Message: message}})
}

func writeFieldErrors(w http.ResponseWriter, status int, code, message string, fields validation.Errors) {
	writeJSON(w, status, dto.ErrorResponse{Error: dto.ErrorBody{
		Code:    code,
		Message: message,
		Fields:  fields,
	}})
}

// decodeJSON reads the request body into dst. An empty body leaves dst
// untouched. It writes the error response itself and reports false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
		return false
	}

	if fields, ok := validation.As(err); ok {
		writeFieldErrors(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", fields)
		return false
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		writeFieldErrors(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input",
			validation.Field(typeErr.Field, "Incorrect type. Expected "+typeErr.Type.String()+"."))
		return false
	}

	writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
	return false
}

// pathID parses the {id} URL parameter. Values that are not positive
// integers cannot name a row, so they get the same 404 as a missing one.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
		return 0, false
	}
	return id, true
}

// handleServiceError maps service errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if errors.Is(err, service.ErrInvalidCredentials) {
		fields, _ := validation.As(err)
		writeFieldErrors(w, http.StatusBadRequest, "INVALID_CREDENTIALS", "Unable to authenticate with provided credentials", fields)
		return
	}
	if fields, ok := validation.As(err); ok {
		writeFieldErrors(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", fields)
		return
	}

	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
	case errors.Is(err, service.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing token")
	case readiness.IsConnectivityError(err):
		logger.Warn("dependency_unavailable",
			slog.String("request_id", middleware.GetRequestID(r.Context())),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable")
	default:
		logger.Error("request_failed",
			slog.String("request_id", middleware.GetRequestID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			hub.CaptureException(err)
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
