package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/pressroom/internal/platform/httpx"
	"github.com/odyssey-erp/pressroom/internal/rbac"
)

// Authenticate rejects requests without a valid bearer token and stores
// the resolved principal in the request context.
func Authenticate(v *Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
				return
			}
			principal, err := v.Verify(strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
			if err != nil {
				if logger != nil {
					logger.Debug("bearer rejected", slog.String("path", r.URL.Path))
				}
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(rbac.ContextWithPrincipal(r.Context(), principal)))
		})
	}
}
