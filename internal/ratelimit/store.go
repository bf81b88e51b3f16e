package ratelimit

import (
	"sync"
	"time"
)

// Entry is the request history for one bucket key within the current window.
type Entry struct {
	WindowStart time.Time
	Count       int
}

// Store abstracts the limiter's backing map. Implementations do not need to
// be safe for concurrent use on their own; the Limiter serializes
// read-modify-write cycles.
type Store interface {
	Get(key string) (Entry, bool)
	Set(key string, entry Entry)
	Delete(key string)

	// Range calls fn for each entry until fn returns false. Used by the
	// eviction sweep.
	Range(fn func(key string, entry Entry) bool)
}

// MemoryStore is the in-process Store. State is local to the process and not
// shared across replicas; use the Redis-backed limiter or the database-backed
// repository when a single shared limit across instances is required.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	return entry, ok
}

func (s *MemoryStore) Set(key string, entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

func (s *MemoryStore) Range(fn func(key string, entry Entry) bool) {
	s.mu.RLock()
	snapshot := make(map[string]Entry, len(s.entries))
	for key, entry := range s.entries {
		snapshot[key] = entry
	}
	s.mu.RUnlock()

	for key, entry := range snapshot {
		if !fn(key, entry) {
			return
		}
	}
}

// Reset removes all entries. Tests use this to isolate cases.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry)
}

// Len returns the number of tracked buckets.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
