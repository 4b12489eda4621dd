// File: internal/middleware/recovery.go
package middleware

import (
	"net/http"
	"runtime/debug"
)

// RecoverPanic turns a handler panic into a 500 internal_error response.
func RecoverPanic(logger Logger) func(http.Handler) http.Handler {
	logger = orNop(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic", "error", err, "path", r.URL.Path, "stack", string(debug.Stack()))
					w.Header().Set("Connection", "close")
					writeJSONError(w, http.StatusInternalServerError, map[string]interface{}{"error": "internal_error"})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
