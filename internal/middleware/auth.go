package middleware

import (
	"context"
	"net/http"
	"strings"

	"go-auth-service/internal/model"
)

type identityResolver interface {
	WhoAmI(token string) (model.IdentityResponse, error)
}

type contextKey string

const identityContextKey contextKey = "auth_identity"

type AuthMiddleware struct {
	resolver identityResolver
}

func NewAuthMiddleware(resolver identityResolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver}
}

// RequireAuth accepts the access token from the Authorization header or the
// token query parameter. Every rejection gets the same response.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := m.resolver.WhoAmI(TokenFromRequest(r))
		if err != nil {
			writeUnauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TokenFromRequest prefers a Bearer header over the query parameter.
func TokenFromRequest(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func IdentityFromContext(ctx context.Context) (model.IdentityResponse, bool) {
	identity, ok := ctx.Value(identityContextKey).(model.IdentityResponse)
	return identity, ok
}

func writeUnauthorized(w http.ResponseWriter) {
	writeErrorBody(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
}
