// Package similarity implements the in-memory project database backing
// transfer learning and recommendations: projects keyed by id, scored
// against each other by context similarity.
package similarity

import (
	"sort"
	"sync"

	"github.com/holomesh/cadopt/internal/domain"
)

// Config tunes the project database's ranking behavior.
type Config struct {
	// Threshold is the minimum similarity score a peer project must reach
	// to be considered "similar" (default: 0.7).
	Threshold float64

	// MaxRecommendations caps how many similar projects are returned
	// (default: 5).
	MaxRecommendations int
}

// DefaultConfig returns the standard lookup thresholds.
func DefaultConfig() Config {
	return Config{Threshold: 0.7, MaxRecommendations: 5}
}

// Record is one entry the database holds, keyed by project id.
type Record struct {
	ProjectID          string
	ToolName           string
	OptimalConfig      domain.ParamMap
	Context            map[string]string
	PerformanceMetrics map[string]float64
}

// DB is the in-memory project similarity database: a single RW lock,
// reads common, writes rare.
type DB struct {
	mu      sync.RWMutex
	cfg     Config
	records map[string]Record
}

// New constructs an empty project database.
func New(cfg Config) *DB {
	return &DB{cfg: cfg, records: make(map[string]Record)}
}

// Record stores or replaces a project's entry. Confidential runs must not
// call this.
func (d *DB) Record(r Record) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records[r.ProjectID] = r
}

// Size reports how many projects are recorded. A confidential run must
// leave this unchanged.
func (d *DB) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}

// FindSimilar iterates peers of the same tool_name (excluding
// excludeProjectID), scores each by context similarity against context,
// keeps those at or above the configured threshold, and returns them
// sorted descending by score, capped at MaxRecommendations.
func (d *DB) FindSimilar(excludeProjectID, toolName string, context map[string]string) []domain.SimilarProject {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var matches []domain.SimilarProject
	for id, r := range d.records {
		if id == excludeProjectID || r.ToolName != toolName {
			continue
		}
		score := contextSimilarity(context, r.Context)
		if score < d.cfg.Threshold {
			continue
		}
		matches = append(matches, domain.SimilarProject{
			ProjectID:          r.ProjectID,
			ToolName:           r.ToolName,
			OptimalConfig:      r.OptimalConfig,
			Context:            r.Context,
			PerformanceMetrics: r.PerformanceMetrics,
			SimilarityScore:    score,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].SimilarityScore > matches[j].SimilarityScore
	})
	if len(matches) > d.cfg.MaxRecommendations {
		matches = matches[:d.cfg.MaxRecommendations]
	}
	return matches
}

// contextSimilarity is the Jaccard-like ratio over equal-valued common
// keys: |equal-valued common keys| / |common keys|. Two
// contexts with no keys in common are defined as dissimilar (score 0)
// rather than vacuously similar.
func contextSimilarity(a, b map[string]string) float64 {
	common := 0
	equal := 0
	for k, va := range a {
		vb, ok := b[k]
		if !ok {
			continue
		}
		common++
		if va == vb {
			equal++
		}
	}
	if common == 0 {
		return 0
	}
	return float64(equal) / float64(common)
}
