package cache

import (
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/pario-ai/typedchat/pkg/models"
)

// DefaultCapacity is the number of responses kept in memory when no
// capacity is configured.
const DefaultCapacity = 1024

// Memory is a fixed-capacity LRU of raw response bodies. It is safe for
// concurrent use; every operation holds the mutex for an in-memory update only.
type Memory struct {
	mu        sync.Mutex
	lru       *simplelru.LRU[Key, string]
	capacity  int
	hits      int64
	misses    int64
	evictions int64
}

// NewMemory creates an empty cache. A capacity <= 0 selects DefaultCapacity.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l, err := simplelru.NewLRU[Key, string](capacity, nil)
	if err != nil {
		// Only returned for a non-positive size, which is ruled out above.
		panic(err)
	}
	return &Memory{lru: l, capacity: capacity}
}

// Get returns the body cached under key and marks it most recently used.
func (m *Memory) Get(key Key) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	body, ok := m.lru.Get(key)
	if ok {
		m.hits++
	} else {
		m.misses++
	}
	return body, ok
}

// Insert stores body under key, overwriting any previous value. It reports
// whether the least recently used entry had to be evicted to make room.
func (m *Memory) Insert(key Key, body string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := m.lru.Add(key, body)
	if evicted {
		m.evictions++
	}
	return evicted
}

// contains reports whether key is cached without touching its recency.
func (m *Memory) contains(key Key) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Contains(key)
}

// Len returns the number of cached entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}

// Capacity returns the maximum number of entries.
func (m *Memory) Capacity() int { return m.capacity }

// Purge drops every entry. Counters are kept.
func (m *Memory) Purge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lru.Purge()
}

// Stats returns a snapshot of size and counters.
func (m *Memory) Stats() models.CacheStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.CacheStats{
		Entries:   m.lru.Len(),
		Capacity:  m.capacity,
		Hits:      m.hits,
		Misses:    m.misses,
		Evictions: m.evictions,
	}
}
