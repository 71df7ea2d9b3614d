package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/utafrali/ordercore/pkg/errors"
	"github.com/utafrali/ordercore/pkg/httputil"
	"github.com/utafrali/ordercore/pkg/logger"
	"github.com/utafrali/ordercore/pkg/middleware"
)

const (
	// HeaderKey is the request header carrying the client's key.
	HeaderKey = "Idempotency-Key"
	// HeaderReplayed marks a response served from the store.
	HeaderReplayed = "Idempotent-Replayed"

	maxKeyLength   = 255
	maxBodyBytes   = 1 << 20
	defaultLockTTL = 30 * time.Second
)

// Config tunes the middleware.
type Config struct {
	// TTL is how long a completed response is replayed.
	TTL time.Duration
	// LockTTL bounds how long an unfinished request holds its key.
	LockTTL time.Duration
}

// Middleware replays the first successful response for a repeated
// Idempotency-Key. Keys are scoped to the authenticated client. Requests
// without the header pass through. Reusing a key with a different body is
// rejected with 422, and a key whose first request is still running gets a
// retryable 409. Only 2xx responses are stored, so a failed request can be
// retried with the same key. When the store is unreachable the request runs
// without protection.
func Middleware(store Store, cfg Config, fallback *slog.Logger) func(http.Handler) http.Handler {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(HeaderKey)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxKeyLength {
				httputil.WriteError(w, r, apperrors.InvalidInput("Idempotency-Key must be at most 255 characters"), fallback)
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
			if err != nil {
				httputil.WriteError(w, r, apperrors.InvalidInput("request body too large"), fallback)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			ctx := r.Context()
			scoped := middleware.ClientIDFromContext(ctx) + ":" + r.Method + ":" + r.URL.Path + ":" + key
			fp := fingerprint(body)
			l := logger.FromContext(ctx)

			rec, claimed, err := store.Begin(ctx, scoped, fp, cfg.LockTTL)
			switch {
			case errors.Is(err, ErrInProgress):
				httputil.WriteError(w, r, apperrors.Conflict("a request with this Idempotency-Key is still being processed", nil), fallback)
				return
			case err != nil:
				l.WarnContext(ctx, "idempotency store unavailable, serving without replay protection",
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			case !claimed:
				if rec.Fingerprint != fp {
					httputil.WriteError(w, r, &apperrors.AppError{
						Code:    "IDEMPOTENCY_KEY_REUSED",
						Message: "Idempotency-Key was already used with a different request body",
						Status:  http.StatusUnprocessableEntity,
						Err:     apperrors.ErrInvalidInput,
					}, fallback)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set(HeaderReplayed, "true")
				w.WriteHeader(rec.Status)
				_, _ = w.Write(rec.Body)
				return
			}

			rw := &capture{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			// The response is already sent; use a context that outlives the request.
			storeCtx := context.WithoutCancel(ctx)
			if rw.status >= 200 && rw.status < 300 {
				err = store.Complete(storeCtx, scoped, Record{Fingerprint: fp, Status: rw.status, Body: rw.body.Bytes()}, cfg.TTL)
			} else {
				err = store.Release(storeCtx, scoped)
			}
			if err != nil {
				l.WarnContext(ctx, "failed to record idempotent response", slog.String("error", err.Error()))
			}
		})
	}
}

func fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// capture tees the response body so it can be stored.
type capture struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (c *capture) WriteHeader(code int) {
	if !c.wroteHeader {
		c.status = code
		c.wroteHeader = true
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *capture) Write(b []byte) (int, error) {
	c.wroteHeader = true
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *capture) Unwrap() http.ResponseWriter { return c.ResponseWriter }
