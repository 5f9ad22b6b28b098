package store

import (
	"sync"
	"time"

	"github.com/i474232898/weather-dashboard/internal/metrics"
)

type entry struct {
	body     []byte
	storedAt time.Time
}

// MemoryStore is a concurrency-safe in-memory cache of upstream response
// bodies. Entries are served while younger than maxAge.
type MemoryStore struct {
	mu sync.RWMutex

	// key: forecast request key, value: cached body
	data map[string]entry

	// retention configuration
	maxEntries int           // max number of cached bodies (0 = unlimited)
	maxAge     time.Duration // freshness window

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore.
// If maxEntries is <= 0, it is treated as unlimited.
func NewMemoryStore(maxEntries int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]entry),
		maxEntries: maxEntries,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Get returns the body stored under key if it is still fresh.
func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok || s.expired(e, s.now()) {
		metrics.ResponseCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.ResponseCacheLookups.WithLabelValues("hit").Inc()
	return e.body, true
}

// Save stores body under key and enforces the entry limit by evicting the
// oldest entry.
func (s *MemoryStore) Save(key string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = entry{body: body, storedAt: s.now()}

	if s.maxEntries > 0 && len(s.data) > s.maxEntries {
		var oldestKey string
		var oldest time.Time
		for k, e := range s.data {
			if oldestKey == "" || e.storedAt.Before(oldest) {
				oldestKey, oldest = k, e.storedAt
			}
		}
		delete(s.data, oldestKey)
	}
}

// Purge removes every entry that is no longer fresh at now and returns how
// many were removed.
func (s *MemoryStore) Purge(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, e := range s.data {
		if s.expired(e, now) {
			delete(s.data, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries currently held, fresh or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *MemoryStore) expired(e entry, now time.Time) bool {
	if s.maxAge <= 0 {
		return false
	}
	return !now.Before(e.storedAt.Add(s.maxAge))
}
