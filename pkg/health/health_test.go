package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ready(t *testing.T, h *Handler) (int, Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec.Code, resp
}

func ok(context.Context) error { return nil }

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler().LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestReadiness_AllUp(t *testing.T) {
	h := NewHandler()
	h.RegisterCritical("postgres", ok)
	h.RegisterNonCritical("redis", ok)

	code, resp := ready(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusUp, resp.Status)
	assert.True(t, resp.Checks["postgres"].Critical)
	assert.False(t, resp.Checks["redis"].Critical)
}

func TestReadiness_NonCriticalFailureDegrades(t *testing.T) {
	h := NewHandler()
	h.RegisterCritical("postgres", ok)
	h.RegisterNonCritical("kafka", func(context.Context) error { return errors.New("no brokers") })

	code, resp := ready(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Equal(t, StatusDown, resp.Checks["kafka"].Status)
	assert.Equal(t, "no brokers", resp.Checks["kafka"].Error)
}

func TestReadiness_CriticalFailureIsDown(t *testing.T) {
	h := NewHandler()
	h.RegisterCritical("postgres", func(context.Context) error { return errors.New("refused") })
	h.RegisterNonCritical("redis", func(context.Context) error { return errors.New("timeout") })

	code, resp := ready(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, StatusDown, resp.Status)
}

func TestReadiness_ReRegisterReplaces(t *testing.T) {
	h := NewHandler()
	h.RegisterCritical("postgres", func(context.Context) error { return errors.New("down") })
	h.RegisterCritical("postgres", ok)

	code, _ := ready(t, h)
	assert.Equal(t, http.StatusOK, code)
}
