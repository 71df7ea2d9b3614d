package middleware

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/ordercore/pkg/errors"
	"github.com/utafrali/ordercore/pkg/httputil"
	"github.com/utafrali/ordercore/pkg/logger"
)

type contextKeyType string

const claimsKey contextKeyType = "claims"

// Claims is the authenticated identity attached to a request.
type Claims struct {
	ClientID string `json:"client_id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// TokenValidator turns a bearer token into Claims.
type TokenValidator func(token string) (*Claims, error)

// Auth rejects requests without a valid bearer token and stores the claims
// in the request context. The request logger is re-scoped with client_id.
func Auth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
			if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
				httputil.WriteError(w, r, apperrors.Unauthorized("missing or malformed bearer token"), nil)
				return
			}

			claims, err := validate(strings.TrimSpace(token))
			if err != nil || claims.ClientID == "" {
				httputil.WriteError(w, r, apperrors.Unauthorized("invalid or expired token"), nil)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = logger.WithClientID(ctx, claims.ClientID)
			ctx = logger.NewContext(ctx, logger.FromContext(ctx).With("client_id", claims.ClientID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets through only requests whose claims carry one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := allowed[RoleFromContext(r.Context())]; !ok {
				httputil.WriteError(w, r, apperrors.Forbidden("insufficient permissions"), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithClaims stores claims in ctx. Auth does this for real requests.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromContext returns the claims set by Auth, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil
}

// ClientIDFromContext returns the authenticated client id, or "".
func ClientIDFromContext(ctx context.Context) string {
	if c, ok := ClaimsFromContext(ctx); ok {
		return c.ClientID
	}
	return ""
}

// RoleFromContext returns the authenticated role, or "".
func RoleFromContext(ctx context.Context) string {
	if c, ok := ClaimsFromContext(ctx); ok {
		return c.Role
	}
	return ""
}
