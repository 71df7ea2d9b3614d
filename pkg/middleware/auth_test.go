package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func staticValidator(token string) (*Claims, error) {
	switch token {
	case "customer-token":
		return &Claims{ClientID: "c-1", Email: "ada@example.com", Role: "customer"}, nil
	case "admin-token":
		return &Claims{ClientID: "a-1", Email: "ops@example.com", Role: "admin"}, nil
	}
	return nil, errors.New("bad token")
}

func TestAuth(t *testing.T) {
	var seen string
	h := Auth(staticValidator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClientIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantClient string
	}{
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, ""},
		{"valid", "Bearer customer-token", http.StatusNoContent, "c-1"},
		{"case-insensitive scheme", "bearer customer-token", http.StatusNoContent, "c-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantClient, seen)
		})
	}
}

func TestRequireRole(t *testing.T) {
	h := Auth(staticValidator)(RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", nil)
	req.Header.Set("Authorization", "Bearer customer-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "FORBIDDEN")

	req.Header.Set("Authorization", "Bearer admin-token")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClaimsFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := ClaimsFromContext(req.Context())
	assert.False(t, ok)
	assert.Empty(t, RoleFromContext(req.Context()))

	ctx := WithClaims(req.Context(), &Claims{ClientID: "c-2", Role: "admin"})
	assert.Equal(t, "c-2", ClientIDFromContext(ctx))
	assert.Equal(t, "admin", RoleFromContext(ctx))
}
