package revocation

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	subject   string
	expiresAt time.Time
}

// MemoryStore is a mutex-guarded in-process Store. It is suitable for
// single-instance deployments and tests; multi-instance deployments
// share a RedisStore instead.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Record(ctx context.Context, id, subject string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = memoryEntry{subject: subject, expiresAt: expiresAt}
	return nil
}

func (s *MemoryStore) IsActive(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked(id, time.Now()), nil
}

func (s *MemoryStore) Revoke(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *MemoryStore) RevokeAll(ctx context.Context, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.entries {
		if entry.subject == subject {
			delete(s.entries, id)
		}
	}
	return nil
}

func (s *MemoryStore) Rotate(ctx context.Context, oldID, newID, subject string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if !s.activeLocked(oldID, now) {
		return ErrNotActive
	}
	delete(s.entries, oldID)
	s.entries[newID] = memoryEntry{subject: subject, expiresAt: expiresAt}
	return nil
}

// activeLocked also purges the entry when it has expired, so the map
// does not accumulate dead identifiers between rotations.
func (s *MemoryStore) activeLocked(id string, now time.Time) bool {
	entry, ok := s.entries[id]
	if !ok {
		return false
	}
	if !now.Before(entry.expiresAt) {
		delete(s.entries, id)
		return false
	}
	return true
}
