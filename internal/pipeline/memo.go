package pipeline

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pitchboard/pitchboard/internal/trackman"
)

// Memo bounds repeated upstream fetches. Entries are keyed by endpoint plus
// parameters and evicted in insertion order once capacity is reached.
type Memo struct {
	mu       sync.RWMutex
	entries  map[string]memoEntry
	order    []string
	capacity int
	ttl      time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

type memoEntry struct {
	records []trackman.Record
	addedAt time.Time
}

// NewMemo returns a bounded fetch cache. Capacity below one is raised to
// one; a zero ttl means entries never expire.
func NewMemo(capacity int, ttl time.Duration) *Memo {
	if capacity < 1 {
		capacity = 1
	}
	return &Memo{
		entries:  make(map[string]memoEntry, capacity),
		order:    make([]string, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
	}
}

// Get returns the memoized records for key, or false when absent or expired.
func (m *Memo) Get(key string) ([]trackman.Record, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || (m.ttl > 0 && time.Since(e.addedAt) > m.ttl) {
		m.misses.Add(1)
		return nil, false
	}
	m.hits.Add(1)
	return e.records, true
}

// Set stores records under key. New keys evict the oldest entry when the
// memo is full; existing keys are refreshed in place and keep their
// eviction slot.
func (m *Memo) Set(key string, records []trackman.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; exists {
		m.entries[key] = memoEntry{records: records, addedAt: time.Now()}
		return
	}
	for len(m.entries) >= m.capacity && len(m.order) > 0 {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
	}
	m.entries[key] = memoEntry{records: records, addedAt: time.Now()}
	m.order = append(m.order, key)
}

// Clear drops every entry. Counters are left alone so hit rates survive a
// manual purge.
func (m *Memo) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]memoEntry, m.capacity)
	m.order = m.order[:0]
}

// MemoStats is a point-in-time snapshot for the cache health endpoint.
type MemoStats struct {
	Size     int   `json:"size"`
	Capacity int   `json:"capacity"`
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
}

// Stats reports current size and lifetime hit/miss counters.
func (m *Memo) Stats() MemoStats {
	m.mu.RLock()
	size := len(m.entries)
	m.mu.RUnlock()
	return MemoStats{
		Size:     size,
		Capacity: m.capacity,
		Hits:     m.hits.Load(),
		Misses:   m.misses.Load(),
	}
}

// memoKey builds a stable cache key from an endpoint and its parameters.
func memoKey(endpoint string, params ...string) string {
	if len(params) == 0 {
		return endpoint
	}
	return endpoint + "?" + strings.Join(params, "&")
}
