// Package evaluator provides the reference domain.Evaluator
// implementation: a synthetic stand-in for shelling out to a real EDA
// tool, producing bounded pseudo-random metrics.
package evaluator

import (
	"context"
	"math/rand"
	"sync"

	"github.com/holomesh/cadopt/internal/domain"
)

// Reference produces plausible bounded synthetic metrics instead of
// shelling out to a real EDA tool. It is deterministic given a seeded
// Rand, which tests rely on; production wiring should still treat it as
// a placeholder (a real deployment supplies its own domain.Evaluator).
type Reference struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewReference constructs a reference evaluator seeded from seed.
func NewReference(seed int64) *Reference {
	return &Reference{rng: rand.New(rand.NewSource(seed))}
}

// Evaluate returns synthetic execution_time/memory_usage/quality_score/
// resource_efficiency metrics. It additionally echoes back every numeric
// input parameter under its own name, so a caller can target a specific
// parameter directly in target_metrics.
func (r *Reference) Evaluate(ctx context.Context, toolName string, params domain.ParamMap) (map[string]float64, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	metrics := map[string]float64{
		"execution_time":      5 + r.rng.Float64()*45,
		"memory_usage":        50 + r.rng.Float64()*450,
		"quality_score":       0.5 + r.rng.Float64()*0.5,
		"resource_efficiency": 0.4 + r.rng.Float64()*0.6,
	}
	for name, v := range params {
		if f, ok := v.Float(); ok {
			metrics[name] = f
		}
	}
	return metrics, nil
}

var _ domain.Evaluator = (*Reference)(nil)
