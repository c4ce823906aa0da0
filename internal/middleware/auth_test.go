package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/recipeapp/recipe-api/internal/auth"
	"github.com/recipeapp/recipe-api/internal/model"
	"github.com/recipeapp/recipe-api/internal/service"
)

const validToken = "0123456789abcdef0123456789abcdef01234567"

type stubAuthenticator struct {
	err error
}

func (s stubAuthenticator) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if token != validToken {
		return nil, service.ErrUnauthenticated
	}
	return &model.User{ID: "user-1", Email: "user@example.com", IsActive: true}, nil
}

func TestAuth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		header     string
		authErr    error
		wantStatus int
	}{
		{"token scheme", "Token " + validToken, nil, http.StatusOK},
		{"bearer scheme", "Bearer " + validToken, nil, http.StatusOK},
		{"lowercase scheme", "token " + validToken, nil, http.StatusOK},
		{"missing header", "", nil, http.StatusUnauthorized},
		{"no scheme", validToken, nil, http.StatusUnauthorized},
		{"basic scheme", "Basic dXNlcjpwYXNz", nil, http.StatusUnauthorized},
		{"unknown token", "Token " + strings.Repeat("f", 40), nil, http.StatusUnauthorized},
		{"store failure", "Token " + validToken, errors.New("boom"), http.StatusInternalServerError},
		{"store unreachable", "Token " + validToken, context.DeadlineExceeded, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			var gotUser *model.User
			handler := Auth(AuthConfig{
				Logger:        logger,
				Authenticator: stubAuthenticator{err: tt.authErr},
			})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser = auth.UserFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/user/me/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus == http.StatusOK {
				if gotUser == nil || gotUser.ID != "user-1" {
					t.Errorf("user in context = %+v", gotUser)
				}
				return
			}
			if !strings.Contains(rec.Body.String(), `"code":`) {
				t.Errorf("expected JSON error envelope, got %s", rec.Body.String())
			}
		})
	}
}

func TestAuth_UnauthorizedEnvelope(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := Auth(AuthConfig{Logger: logger, Authenticator: stubAuthenticator{}})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("next handler must not run")
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if !strings.Contains(rec.Body.String(), `"code":"UNAUTHORIZED"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("WWW-Authenticate header missing")
	}
}
