package store

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Store is a minimal key-value abstraction with per-key TTL. Get, Put and
// Delete are atomic per key; business logic never sees backend semantics.
type Store interface {
	// Get returns the value for key and whether it was present and unexpired.
	Get(ctx context.Context, key string) (string, bool, error)

	// Put stores value under key. A zero ttl means the entry does not expire.
	Put(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// MemoryStore is an in-process Store guarded by an RWMutex. A background
// janitor removes expired entries; Get also checks expiry so a stale entry
// is never returned between janitor runs.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	logger  *slog.Logger
	done    chan struct{}
	closed  sync.Once
}

// NewMemoryStore creates an in-memory store with the default cleanup
// interval of one minute.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithInterval(1 * time.Minute)
}

// NewMemoryStoreWithInterval creates an in-memory store with a custom
// cleanup interval.
func NewMemoryStoreWithInterval(cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		logger:  slog.Default(),
		done:    make(chan struct{}),
	}

	go s.cleanupExpired(cleanupInterval)

	return s
}

// Get returns the stored value, treating expired entries as absent.
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		return "", false, nil
	}
	return entry.value, true, nil
}

// Put stores a value with the given TTL.
func (s *MemoryStore) Put(_ context.Context, key, value string, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
	return nil
}

// Delete removes a key. Missing keys are ignored.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Close stops the janitor goroutine.
func (s *MemoryStore) Close() error {
	s.closed.Do(func() { close(s.done) })
	return nil
}

// Len returns the number of live entries, for tests and stats.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// cleanupExpired periodically removes expired entries. Expiry is re-checked
// under the write lock because an entry may be refreshed between the scan
// and the delete.
func (s *MemoryStore) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		s.mu.RLock()
		now := time.Now()
		var expired []string
		for key, entry := range s.entries {
			if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
				expired = append(expired, key)
			}
		}
		s.mu.RUnlock()

		if len(expired) == 0 {
			continue
		}

		s.mu.Lock()
		now = time.Now()
		for _, key := range expired {
			if entry, ok := s.entries[key]; ok {
				if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
					delete(s.entries, key)
				}
			}
		}
		s.mu.Unlock()

		s.logger.Debug("cleaned up expired entries", slog.Int("count", len(expired)))
	}
}
