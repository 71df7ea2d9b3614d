package http

import (
	"net/http"
	"strings"

	"github.com/utafrali/ordercore/internal/domain"
	"github.com/utafrali/ordercore/pkg/middleware"
)

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if !strings.HasPrefix(ct, "application/json") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnsupportedMediaType)
				_, _ = w.Write([]byte(`{"error":{"code":"UNSUPPORTED_MEDIA_TYPE","message":"Content-Type must be application/json"}}`))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// actorFrom builds the service-level caller from the token claims.
func actorFrom(r *http.Request) domain.Actor {
	return domain.Actor{
		ClientID: middleware.ClientIDFromContext(r.Context()),
		Role:     middleware.RoleFromContext(r.Context()),
	}
}
