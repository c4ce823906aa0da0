package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/getsentry/sentry-go"
)

// Recoverer is a middleware that recovers from panics.
// It logs the panic, reports it to Sentry when a client is configured and
// returns a 500 JSON error.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				requestID := GetRequestID(r.Context())

				logger.Error("panic recovered",
					slog.String("request_id", requestID),
					slog.Any("panic", rvr),
					slog.String("stack", string(debug.Stack())),
				)

				hub := sentry.GetHubFromContext(r.Context())
				if hub == nil {
					hub = sentry.CurrentHub().Clone()
				}
				hub.Scope().SetTag("request_id", requestID)
				hub.RecoverWithContext(r.Context(), rvr)

				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
