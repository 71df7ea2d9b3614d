package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/ordercore/internal/config"
	"github.com/utafrali/ordercore/internal/idempotency"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// memoryConfig returns a config that needs no external services.
func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(map[string]string{
		"ORDER_STORE": config.StoreMemory,
	})
	require.NoError(t, err)
	cfg.RedisHost = ""
	cfg.KafkaBrokers = nil
	return cfg
}

func TestNewApp_MemoryMode(t *testing.T) {
	a, err := NewApp(memoryConfig(t), quiet)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })

	assert.Nil(t, a.pool)
	assert.Nil(t, a.rdb)
	assert.Nil(t, a.producer)
	assert.NotNil(t, a.idemMemory)

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
	assert.Contains(t, rec.Body.String(), "http_requests_in_flight")
}

func TestNewApp_RedisIdempotency(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := memoryConfig(t)
	cfg.RedisHost = mr.Host()
	cfg.RedisPort = port

	a, err := NewApp(cfg, quiet)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })

	require.NotNil(t, a.rdb)
	assert.Nil(t, a.idemMemory)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Checks map[string]json.RawMessage `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Checks, "redis")
}

func TestOpenIdempotencyStore_FallsBackWhenRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	host := mr.Host()
	mr.Close()

	cfg := memoryConfig(t)
	cfg.RedisHost = host
	cfg.RedisPort = port

	a, err := NewApp(cfg, quiet)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })

	assert.Nil(t, a.rdb)
	assert.NotNil(t, a.idemMemory)
	_, isMemory := a.openIdempotencyStore(context.Background(), nil).(*idempotency.MemoryStore)
	assert.True(t, isMemory)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	a, err := NewApp(memoryConfig(t), quiet)
	require.NoError(t, err)
	a.httpServer.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
