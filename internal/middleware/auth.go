package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/AkhileshRajan/zentra-pro/internal/apperr"
	"github.com/AkhileshRajan/zentra-pro/internal/auth"
	"github.com/AkhileshRajan/zentra-pro/internal/http/respond"
)

// Authenticate resolves the bearer token into an auth.Identity stored on the
// request context. Requests without a valid token get 401.
func Authenticate(verifier auth.Verifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				respond.Fail(w, apperr.KindAuthentication, "Missing or invalid authorization header")
				return
			}
			identity, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logger.Debug("token rejected", zap.Error(err))
				respond.Fail(w, apperr.KindAuthentication, "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}
