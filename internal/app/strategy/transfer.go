package strategy

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/holomesh/cadopt/internal/domain"
	"github.com/holomesh/cadopt/internal/infra/progressbus"
	"github.com/holomesh/cadopt/internal/infra/similarity"
)

// Transfer looks up similar projects, merges their optimal configs,
// adapts them by a deterministic hash-driven scale, and fine-tunes by
// Gaussian perturbation. Falls back to hash-adapting the initial params
// directly when no similar project exists.
type Transfer struct {
	Bus  *progressbus.Bus
	DB   *similarity.DB
	Rand *rand.Rand

	// FineTuneSigma is the Gaussian perturbation scale applied to numeric
	// fields after hash-scaling (default: 10%).
	FineTuneSigma float64
}

// NewTransfer constructs a Transfer Learning strategy over db.
func NewTransfer(bus *progressbus.Bus, db *similarity.DB) *Transfer {
	return &Transfer{
		Bus:           bus,
		DB:            db,
		Rand:          rand.New(rand.NewSource(time.Now().UnixNano())),
		FineTuneSigma: 0.10,
	}
}

// Name implements Runner.
func (t *Transfer) Name() string { return string(domain.StrategyTransferLearning) }

// Run implements Runner.
func (t *Transfer) Run(ctx context.Context, in Input) (Output, error) {
	return t.run(ctx, in, t.Bus)
}

func (t *Transfer) run(ctx context.Context, in Input, bus *progressbus.Bus) (Output, error) {
	publish(bus, in, domain.StageTransferStarted, 0, "transfer learning started", nil)

	projCtx := map[string]string{"tool_name": in.ToolName}
	similar := t.DB.FindSimilar(in.ProjectID, in.ToolName, projCtx)

	var adapted domain.ParamMap
	if len(similar) > 0 {
		merged := mergeConfigs(similar)
		adapted = t.adaptToProject(merged, in.ProjectID)
	} else {
		adapted = t.adaptToProject(in.InitialParams, in.ProjectID)
	}
	adapted = t.fineTune(adapted)

	publish(bus, in, domain.StageTransferCompleted, 1.0, "transfer learning complete", nil)

	return Output{
		Params:     adapted,
		Iterations: 0,
		Confidence: clampConfidence(0.85),
		Method:     string(domain.StrategyTransferLearning),
		Info:       domain.StrategyInfo{SimilarProjects: len(similar)},
	}, nil
}

// MergeSimilarConfigs exposes mergeConfigs to callers outside this package
// (the orchestrator's GetRecommendations RPC shares the same per-key
// mean/first-seen merge transfer learning uses).
func MergeSimilarConfigs(similar []domain.SimilarProject) domain.ParamMap {
	return mergeConfigs(similar)
}

// mergeConfigs combines several similar projects' optimal_config maps by
// per-key arithmetic mean (numeric) or first-seen (non-numeric).
func mergeConfigs(similar []domain.SimilarProject) domain.ParamMap {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	firstSeen := make(domain.ParamMap)
	order := make([]string, 0)

	for _, proj := range similar {
		for name, v := range proj.OptimalConfig {
			if _, ok := firstSeen[name]; !ok {
				firstSeen[name] = v
				order = append(order, name)
			}
			if f, ok := v.Float(); ok {
				sums[name] += f
				counts[name]++
			}
		}
	}

	sort.Strings(order)
	out := make(domain.ParamMap, len(order))
	for _, name := range order {
		if n, ok := counts[name]; ok && n > 0 {
			out[name] = blendedValue(firstSeen[name], sums[name]/float64(n))
			continue
		}
		out[name] = firstSeen[name]
	}
	return out
}

// adaptToProject applies the deterministic hash-driven scale:
// value·(1 + (hash(project_id) % 1000 / 1000 − 0.5)·0.2).
func (t *Transfer) adaptToProject(params domain.ParamMap, projectID string) domain.ParamMap {
	scale := hashScale(projectID)
	out := params.Clone()
	for name, v := range out {
		if f, ok := v.Float(); ok {
			out[name] = blendedValue(v, f*scale)
		}
	}
	return out
}

// fineTune applies a 10% Gaussian perturbation to numeric fields.
func (t *Transfer) fineTune(params domain.ParamMap) domain.ParamMap {
	out := params.Clone()
	for name, v := range out {
		if f, ok := v.Float(); ok {
			noise := 1 + t.Rand.NormFloat64()*t.FineTuneSigma
			out[name] = blendedValue(v, f*noise)
		}
	}
	return out
}

var _ Runner = (*Transfer)(nil)
