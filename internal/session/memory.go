package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an in-process session marker store. It backs deployments
// without Redis and the test suites. Expired entries are dropped lazily on
// access.
type MemoryStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) Get(_ context.Context, sessionID, key string) (string, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[storageKey(sessionID, key)]
	s.mu.RUnlock()

	if !ok {
		return "", false, nil
	}

	if time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, storageKey(sessionID, key))
		s.mu.Unlock()

		return "", false, nil
	}

	return entry.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, sessionID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[storageKey(sessionID, key)] = memoryEntry{
		value:     value,
		expiresAt: time.Now().Add(s.ttl),
	}

	return nil
}
