package cache

import (
	"database/sql"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/holomesh/cadopt/internal/domain"
)

// SQLiteMigrations returns the result-cache schema, one statement per
// string. The fingerprint is a stable, pattern-matchable primary key.
func SQLiteMigrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS cache_entries (
			fingerprint       TEXT PRIMARY KEY,
			optimized_params  TEXT NOT NULL,
			final_metrics     TEXT NOT NULL,
			created_at        TEXT NOT NULL,
			expires_at        TEXT NOT NULL,
			last_access       TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cache_expires ON cache_entries(expires_at)`,
	}
}

// SQLite is a persistent CacheBackend over modernc.org/sqlite, for
// deployments that want cached optimizations to survive a restart.
type SQLite struct {
	db  *sql.DB
	cfg Config

	hits, misses, evictions atomic.Int64
}

// OpenSQLite opens (creating if absent) a SQLite-backed cache database at
// path and applies the schema migrations.
func OpenSQLite(path string, cfg Config) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	for _, stmt := range SQLiteMigrations() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &SQLite{db: db, cfg: cfg}, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Get returns the entry for fingerprint and touches its TTL on a hit.
func (s *SQLite) Get(fingerprint string) (domain.CacheEntry, bool) {
	var paramsJSON, metricsJSON, createdStr, expiresStr string
	err := s.db.QueryRow(`
		SELECT optimized_params, final_metrics, created_at, expires_at
		FROM cache_entries WHERE fingerprint = ?
	`, fingerprint).Scan(&paramsJSON, &metricsJSON, &createdStr, &expiresStr)
	if err == sql.ErrNoRows {
		s.misses.Add(1)
		return domain.CacheEntry{}, false
	}
	if err != nil {
		s.misses.Add(1)
		return domain.CacheEntry{}, false
	}

	expiresAt, _ := time.Parse(time.RFC3339, expiresStr)
	now := s.cfg.Now()
	if now.After(expiresAt) {
		s.db.Exec(`DELETE FROM cache_entries WHERE fingerprint = ?`, fingerprint)
		s.misses.Add(1)
		return domain.CacheEntry{}, false
	}

	ttl := expiresAt.Sub(createdAtOrNow(createdStr, now))
	if ttl <= 0 {
		ttl = s.cfg.DefaultTTL
	}
	newExpires := now.Add(ttl)
	s.db.Exec(`UPDATE cache_entries SET last_access = ?, expires_at = ? WHERE fingerprint = ?`,
		now.Format(time.RFC3339), newExpires.Format(time.RFC3339), fingerprint)

	createdAt, _ := time.Parse(time.RFC3339, createdStr)
	var params domain.ParamMap
	json.Unmarshal([]byte(paramsJSON), &params)
	var metrics map[string]float64
	json.Unmarshal([]byte(metricsJSON), &metrics)

	s.hits.Add(1)
	return domain.CacheEntry{OptimizedParams: params, FinalMetrics: metrics, CreatedAt: createdAt}, true
}

func createdAtOrNow(s string, fallback time.Time) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return fallback
}

// Put inserts or replaces the entry for fingerprint.
func (s *SQLite) Put(fingerprint string, entry domain.CacheEntry, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.cfg.DefaultTTL
	}
	now := s.cfg.Now()
	paramsJSON, _ := json.Marshal(entry.OptimizedParams)
	metricsJSON, _ := json.Marshal(entry.FinalMetrics)

	s.db.Exec(`
		INSERT INTO cache_entries (fingerprint, optimized_params, final_metrics, created_at, expires_at, last_access)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			optimized_params = excluded.optimized_params,
			final_metrics    = excluded.final_metrics,
			created_at       = excluded.created_at,
			expires_at       = excluded.expires_at,
			last_access      = excluded.last_access
	`, fingerprint, string(paramsJSON), string(metricsJSON),
		now.Format(time.RFC3339), now.Add(ttl).Format(time.RFC3339), now.Format(time.RFC3339))

	s.evictOverflow()
}

func (s *SQLite) evictOverflow() {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM cache_entries`).Scan(&count); err != nil {
		return
	}
	if count <= s.cfg.MaxEntries {
		return
	}
	res, err := s.db.Exec(`
		DELETE FROM cache_entries WHERE fingerprint IN (
			SELECT fingerprint FROM cache_entries ORDER BY last_access ASC LIMIT ?
		)
	`, s.cfg.EvictionBatch)
	if err == nil {
		if n, _ := res.RowsAffected(); n > 0 {
			s.evictions.Add(n)
		}
	}
}

// Invalidate deletes every key starting with prefix.
func (s *SQLite) Invalidate(prefix string) int {
	rows, err := s.db.Query(`SELECT fingerprint FROM cache_entries`)
	if err != nil {
		return 0
	}
	defer rows.Close()

	var toDelete []string
	for rows.Next() {
		var fp string
		if rows.Scan(&fp) == nil && strings.HasPrefix(fp, prefix) {
			toDelete = append(toDelete, fp)
		}
	}
	for _, fp := range toDelete {
		s.db.Exec(`DELETE FROM cache_entries WHERE fingerprint = ?`, fp)
	}
	return len(toDelete)
}

// InvalidateKey deletes exactly one fingerprint, reporting whether it
// existed.
func (s *SQLite) InvalidateKey(fingerprint string) bool {
	res, err := s.db.Exec(`DELETE FROM cache_entries WHERE fingerprint = ?`, fingerprint)
	if err != nil {
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

// Flush deletes every entry.
func (s *SQLite) Flush() int {
	var count int
	s.db.QueryRow(`SELECT COUNT(*) FROM cache_entries`).Scan(&count)
	s.db.Exec(`DELETE FROM cache_entries`)
	return count
}

// Stats reports the backend's current size and lifetime counters.
func (s *SQLite) Stats() domain.CacheStats {
	var size int
	s.db.QueryRow(`SELECT COUNT(*) FROM cache_entries`).Scan(&size)
	return domain.CacheStats{
		CacheEnabled: true,
		DefaultTTL:   s.cfg.DefaultTTL,
		CachePrefix:  s.cfg.CachePrefix,
		Size:         size,
		Hits:         s.hits.Load(),
		Misses:       s.misses.Load(),
		Evictions:    s.evictions.Load(),
	}
}

var _ domain.CacheBackend = (*SQLite)(nil)
