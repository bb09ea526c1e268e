package trace

import (
	"net/http"
	"runtime/debug"

	applog "txview/internal/log"
)

// Recover turns a panic in next into a 500 response and an error log.
func Recover(logger *applog.Logger) func(http.Handler) http.Handler {
	logger = logger.WithComponent(applog.ComponentHTTP)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.ErrorContext(r.Context(), "Panic recovered",
						"panic", rec,
						applog.FieldPath, r.URL.Path,
						"stack", string(debug.Stack()))
					http.Error(w, "internal error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
