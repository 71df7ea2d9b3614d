package idempotency

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	rec     Record
	expires time.Time
}

// MemoryStore implements Store in process memory. Expired entries are
// replaced on access and removed by Run.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

// Run removes expired entries every interval until ctx is done.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) Begin(_ context.Context, key, fingerprint string, lockTTL time.Duration) (*Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expires) {
		rec := e.rec
		if !rec.Completed {
			return &rec, false, ErrInProgress
		}
		return &rec, false, nil
	}

	s.entries[key] = memoryEntry{rec: Record{Fingerprint: fingerprint}, expires: now.Add(lockTTL)}
	return nil, true, nil
}

func (s *MemoryStore) Complete(_ context.Context, key string, rec Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.Completed = true
	s.entries[key] = memoryEntry{rec: rec, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}
