// Package idempotency replays the stored response of a request repeated
// with the same Idempotency-Key.
package idempotency

import (
	"context"
	"errors"
	"time"
)

// ErrInProgress is returned by Begin while another request holds the key.
var ErrInProgress = errors.New("idempotency: request with this key is in progress")

// Record is the saved outcome of a completed request.
type Record struct {
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status"`
	Body        []byte `json:"body"`
	Completed   bool   `json:"completed"`
}

// Store claims keys and keeps completed responses.
type Store interface {
	// Begin claims key for lockTTL. When the key already holds a completed
	// record it is returned with claimed == false. A key that is claimed but
	// not completed yields ErrInProgress.
	Begin(ctx context.Context, key, fingerprint string, lockTTL time.Duration) (rec *Record, claimed bool, err error)

	// Complete stores the response under key for ttl.
	Complete(ctx context.Context, key string, rec Record, ttl time.Duration) error

	// Release drops a claim so the request can be retried.
	Release(ctx context.Context, key string) error
}
