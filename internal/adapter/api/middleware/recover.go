package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/V4T54L/vsd-gateway/internal/adapter/api/handler"
)

// Recover turns a handler panic into a 500 JSON error.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("panic while handling request", "panic", rec, "path", r.URL.Path, "stack", string(debug.Stack()))
					handler.RespondError(w, logger, http.StatusInternalServerError, "Internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
