// Package cache provides a process-wide TTL cache used by components that
// memoize expensive store queries (active discount rules, per-user
// eligibility). Entries expire lazily on read; writers may also invalidate
// explicitly via Delete.
package cache

import (
	"sync"
	"time"
)

// Cache is the minimal contract required by cache consumers.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Delete(key string)
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Memory is an in-process Cache backed by a mutex-guarded map.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

var _ Cache = (*Memory)(nil)

// NewMemory creates an empty in-memory cache using the wall clock.
func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock creates a cache with an injected clock. Tests use this
// to advance time deterministically.
func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{
		entries: make(map[string]entry),
		now:     now,
	}
}

// Get returns the cached value for key. Expired entries are removed and
// reported as absent.
func (m *Memory) Get(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if m.now().After(e.expiresAt) {
		delete(m.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for the given TTL, replacing any previous entry.
func (m *Memory) Set(key string, value any, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = entry{
		value:     value,
		expiresAt: m.now().Add(ttl),
	}
}

// Delete removes the entry for key, if present.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
}
