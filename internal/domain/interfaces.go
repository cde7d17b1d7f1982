package domain

import (
	"context"
	"time"
)

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// Evaluator scores a candidate configuration against target metrics by
// invoking the underlying CAD tool (or, for the reference implementation,
// a synthetic stand-in). Must be idempotent in its inputs; the orchestrator
// treats it as side-effect-free for the duration of one optimization.
type Evaluator interface {
	Evaluate(ctx context.Context, toolName string, params ParamMap) (map[string]float64, error)
}

// Recommender is the external HoloMesh recommender collaborator consulted
// by the semi-automatic strategy.
type Recommender interface {
	GetRecommendations(ctx context.Context, toolName string, params ParamMap, targets TargetMetrics, mode InteractionMode) (ParamMap, error)
}

// GuidanceProvider is the external tool-guidance collaborator consulted by
// the manual strategy.
type GuidanceProvider interface {
	GetToolGuidance(ctx context.Context, toolName string, params ParamMap, targets TargetMetrics) (ParamMap, error)
}

// CacheBackend abstracts the result cache's storage. The default is
// in-memory; an optional sqlite-backed implementation persists across
// restarts.
type CacheBackend interface {
	Get(fingerprint string) (CacheEntry, bool)
	Put(fingerprint string, entry CacheEntry, ttl time.Duration)
	Invalidate(prefix string) int
	InvalidateKey(fingerprint string) bool
	Flush() int
	Stats() CacheStats
}
