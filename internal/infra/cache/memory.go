package cache

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/holomesh/cadopt/internal/domain"
)

// Config tunes the in-memory cache backend.
type Config struct {
	// MaxEntries bounds the backend's size; on overflow the oldest
	// EvictionBatch entries by last_access are evicted (default 1000).
	MaxEntries int

	// EvictionBatch is how many entries are evicted at once on overflow
	// (default: oldest 10).
	EvictionBatch int

	// CachePrefix is prepended to every fingerprint, reported verbatim by
	// the CacheStats RPC.
	CachePrefix string

	// DefaultTTL is used when Put is called with ttl <= 0.
	DefaultTTL time.Duration

	// Now is an injectable clock for testing.
	Now func() time.Time
}

// DefaultConfig returns production defaults: 1000 entries, evict 10 on
// overflow, 24h TTL.
func DefaultConfig() Config {
	return Config{
		MaxEntries:    1000,
		EvictionBatch: 10,
		CachePrefix:   "cadopt:",
		DefaultTTL:    24 * time.Hour,
		Now:           time.Now,
	}
}

type record struct {
	entry      domain.CacheEntry
	ttl        time.Duration
	expiresAt  time.Time
	lastAccess time.Time
}

// Memory is the default CacheBackend: a mutex-guarded fingerprint→record
// map with sliding-window TTL and LRU overflow eviction.
type Memory struct {
	mu   sync.Mutex
	cfg  Config
	data map[string]*record

	hits, misses, evictions int64
}

// NewMemory constructs an empty in-memory cache backend.
func NewMemory(cfg Config) *Memory {
	return &Memory{cfg: cfg, data: make(map[string]*record)}
}

// Get returns the entry for fingerprint and touches its TTL/last_access on
// a hit, so a frequently-read entry's TTL window keeps sliding forward.
func (m *Memory) Get(fingerprint string) (domain.CacheEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.data[fingerprint]
	if !ok {
		m.misses++
		return domain.CacheEntry{}, false
	}
	now := m.cfg.Now()
	if now.After(r.expiresAt) {
		delete(m.data, fingerprint)
		m.misses++
		return domain.CacheEntry{}, false
	}

	r.lastAccess = now
	r.expiresAt = now.Add(r.ttl)
	m.hits++
	return r.entry, true
}

// Put stores an entry under fingerprint with the given TTL (or
// cfg.DefaultTTL if ttl <= 0), evicting the oldest EvictionBatch entries by
// last_access if this insert would overflow MaxEntries.
func (m *Memory) Put(fingerprint string, entry domain.CacheEntry, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ttl <= 0 {
		ttl = m.cfg.DefaultTTL
	}
	now := m.cfg.Now()

	if _, exists := m.data[fingerprint]; !exists && len(m.data) >= m.cfg.MaxEntries {
		m.evictOldestLocked(m.cfg.EvictionBatch)
	}

	m.data[fingerprint] = &record{
		entry:      entry,
		ttl:        ttl,
		expiresAt:  now.Add(ttl),
		lastAccess: now,
	}
}

func (m *Memory) evictOldestLocked(n int) {
	type kv struct {
		key string
		t   time.Time
	}
	candidates := make([]kv, 0, len(m.data))
	for k, r := range m.data {
		candidates = append(candidates, kv{k, r.lastAccess})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].t.Before(candidates[j].t)
	})
	for i := 0; i < n && i < len(candidates); i++ {
		delete(m.data, candidates[i].key)
		m.evictions++
	}
}

// Invalidate deletes every key starting with prefix, returning the count
// removed. Callers invalidating by tool pass a
// cache_prefix||tool_name||":" prefix.
func (m *Memory) Invalidate(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
			n++
		}
	}
	return n
}

// InvalidateKey deletes exactly one fingerprint, reporting whether it
// existed.
func (m *Memory) InvalidateKey(fingerprint string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[fingerprint]; !ok {
		return false
	}
	delete(m.data, fingerprint)
	return true
}

// Flush deletes every entry, returning the count removed. Callers must
// reach this deliberately; Flush itself has no guard since the
// deliberateness lives in the caller's routing logic (see
// internal/app/orchestrator).
func (m *Memory) Flush() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.data)
	m.data = make(map[string]*record)
	return n
}

// Stats reports the backend's current size and lifetime hit/miss/eviction
// counters.
func (m *Memory) Stats() domain.CacheStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return domain.CacheStats{
		CacheEnabled: true,
		DefaultTTL:   m.cfg.DefaultTTL,
		CachePrefix:  m.cfg.CachePrefix,
		Size:         len(m.data),
		Hits:         m.hits,
		Misses:       m.misses,
		Evictions:    m.evictions,
	}
}

var _ domain.CacheBackend = (*Memory)(nil)
