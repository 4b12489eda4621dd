package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/iyunix/oni-chat/internal/auth"
)

// RequireIdentity resolves the bearer token through provider and stores the
// identity in the request context. Requests without a valid token get 401.
func RequireIdentity(provider auth.Provider, logger Logger) func(http.Handler) http.Handler {
	logger = orNop(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, map[string]interface{}{"error": "missing bearer token"})
				return
			}

			identity, err := provider.Resolve(r.Context(), token)
			if err != nil {
				if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrMissingToken) {
					logger.Debug("rejected token", "path", r.URL.Path, "error", err)
					writeJSONError(w, http.StatusUnauthorized, map[string]interface{}{"error": "invalid token"})
					return
				}
				logger.Error("auth provider failure", "path", r.URL.Path, "error", err)
				writeJSONError(w, http.StatusBadGateway, map[string]interface{}{"error": "auth_unavailable"})
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the identity stored by RequireIdentity.
func IdentityFromContext(ctx context.Context) (*auth.Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(*auth.Identity)
	return id, ok && id != nil
}
