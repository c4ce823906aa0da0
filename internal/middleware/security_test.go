package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSecurity_Headers(t *testing.T) {
	t.Parallel()

	want := map[string]string{
		"X-Content-Type-Options":       "nosniff",
		"X-Frame-Options":              "DENY",
		"X-XSS-Protection":             "0",
		"Referrer-Policy":              "strict-origin-when-cross-origin",
		"Content-Security-Policy":      "default-src 'none'; frame-ancestors 'none'",
		"Cross-Origin-Opener-Policy":   "same-origin",
		"Cross-Origin-Resource-Policy": "same-origin",
		"Cache-Control":                "no-store",
	}

	handler := Security(SecurityConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recipe/recipes/", nil))

	for header, value := range want {
		if got := rec.Header().Get(header); got != value {
			t.Errorf("%s = %q, want %q", header, got, value)
		}
	}
	if got := rec.Header().Get("Permissions-Policy"); !strings.Contains(got, "camera=()") {
		t.Errorf("Permissions-Policy = %q, want camera disabled", got)
	}
}

func TestSecurity_HSTS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		isDev bool
		want  string
	}{
		{"production", false, "max-age=31536000; includeSubDomains; preload"},
		{"development", true, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			handler := Security(SecurityConfig{IsDevelopment: tt.isDev})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			if got := rec.Header().Get("Strict-Transport-Security"); got != tt.want {
				t.Errorf("Strict-Transport-Security = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSecurity_HandlerOverridesCacheControl(t *testing.T) {
	t.Parallel()

	// Media responses are cacheable; the file server sets its own policy.
	handler := Security(SecurityConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png"))
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/uploads/recipe/a.png", nil))

	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=86400" {
		t.Errorf("Cache-Control = %q, want handler override", got)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
}

func assertTooLargeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	if body.Error.Code != "PAYLOAD_TOO_LARGE" {
		t.Errorf("error.code = %q, want PAYLOAD_TOO_LARGE", body.Error.Code)
	}
	if body.Error.Message == "" {
		t.Error("error.message is empty")
	}
}

func TestMaxBodySize_RejectsDeclaredLength(t *testing.T) {
	t.Parallel()

	called := false
	handler := MaxBodySize(10)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/user/create/", strings.NewReader(`{"name":"a long enough body"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if called {
		t.Error("next handler ran for an oversized Content-Length")
	}
	assertTooLargeEnvelope(t, rec)
}

func TestMaxBodySize_RejectsOnRead(t *testing.T) {
	t.Parallel()

	// Unknown length: the request reaches the handler and the limit is
	// enforced while it reads.
	var readErr error
	handler := MaxBodySize(10)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/recipe/recipes/", strings.NewReader(strings.Repeat("x", 64)))
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var maxErr *http.MaxBytesError
	if !errors.As(readErr, &maxErr) {
		t.Fatalf("read error = %v, want *http.MaxBytesError", readErr)
	}
	if maxErr.Limit != 10 {
		t.Errorf("limit = %d, want 10", maxErr.Limit)
	}
}

func TestMaxBodySize_AllowsSmallBody(t *testing.T) {
	t.Parallel()

	handler := MaxBodySize(1024)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		_, _ = w.Write(data)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small body")))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "small body" {
		t.Errorf("body = %q, want echo", rec.Body.String())
	}
}

func TestRequestTimeout_OutlastsServerReadTimeout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		timeout time.Duration
		wantOK  bool
	}{
		{"extended", 5 * time.Second, true},
		{"server default", 0, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewUnstartedServer(RequestTimeout(tt.timeout)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				data, err := io.ReadAll(r.Body)
				if err != nil {
					w.WriteHeader(http.StatusRequestTimeout)
					return
				}
				_, _ = w.Write(data)
			})))
			srv.Config.ReadTimeout = 200 * time.Millisecond
			srv.Start()
			defer srv.Close()

			// The client stalls mid-body for longer than ReadTimeout.
			pr, pw := io.Pipe()
			go func() {
				_, _ = pw.Write([]byte("first half,"))
				time.Sleep(600 * time.Millisecond)
				_, _ = pw.Write([]byte("second half"))
				_ = pw.Close()
			}()

			req, err := http.NewRequest(http.MethodPost, srv.URL, pr)
			if err != nil {
				t.Fatalf("NewRequest: %v", err)
			}
			resp, err := srv.Client().Do(req)
			if err != nil {
				if tt.wantOK {
					t.Fatalf("Do: %v", err)
				}
				return
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			gotOK := resp.StatusCode == http.StatusOK && string(body) == "first half,second half"
			if gotOK != tt.wantOK {
				t.Errorf("status %d body %q, want success %v", resp.StatusCode, body, tt.wantOK)
			}
		})
	}
}

func TestRequestTimeout_RecorderFallsBack(t *testing.T) {
	t.Parallel()

	// ResponseRecorder has no connection; the request must still be served.
	handler := RequestTimeout(time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("x")))

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}
