// Package strategy implements the optimization strategies the
// orchestrator dispatches to: Bayesian, Advanced Bayesian, Transfer
// Learning, Ensemble, Semi-Automatic, and Manual. Each shares the same
// Run signature and publishes progress at initiation, per iteration, on
// best-so-far updates, and on completion.
package strategy

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/holomesh/cadopt/internal/domain"
	"github.com/holomesh/cadopt/internal/infra/progressbus"
)

// Input is the shared request every strategy runs against.
type Input struct {
	ToolName      string
	ProjectID     string
	TaskID        string // progress bus routing key
	InitialParams domain.ParamMap
	Targets       domain.TargetMetrics
	Budget        int
	Descriptors   []domain.Descriptor
	Mode          domain.InteractionMode
}

// Output is the shared result every strategy returns to the orchestrator.
type Output struct {
	Params     domain.ParamMap
	Iterations int
	Confidence float64
	Method     string
	Info       domain.StrategyInfo
}

// Runner is the shared strategy interface the orchestrator dispatches
// through.
type Runner interface {
	Name() string
	Run(ctx context.Context, in Input) (Output, error)
}

// objectiveScore is the synthetic, cheap fitness function strategies
// optimize against during search: Σ 1/(1+|params[m]−targets[m]|) over
// m ∈ targets ∩ params, matched purely by name against the candidate's
// own typed values. This is deliberately NOT the pluggable
// domain.Evaluator; the orchestrator invokes that only after a strategy
// returns, once on the initial params and once on the strategy's result,
// to produce the improvement figure and the final metrics.
func objectiveScore(params domain.ParamMap, targets domain.TargetMetrics) float64 {
	observed := make(map[string]float64, len(targets))
	for name := range targets {
		if v, ok := params[name]; ok {
			if f, ok := v.Float(); ok {
				observed[name] = f
			}
		}
	}
	return targets.Score(observed)
}

// randomVector draws a uniform point in [0,1]^dim.
func randomVector(rng *rand.Rand, dim int) []float64 {
	v := make([]float64, dim)
	for i := range v {
		v[i] = rng.Float64()
	}
	return v
}

// blendVectors returns a·x + (1-a)·y element-wise, clamped to [0,1].
func blendVectors(x, y []float64, a float64) []float64 {
	out := make([]float64, len(x))
	for i := range out {
		v := a*x[i] + (1-a)*y[i]
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		out[i] = v
	}
	return out
}

// blendNumeric blends two param maps field-by-field: numeric fields via
// a·current + (1-a)·other, non-numeric fields adopted from other
// verbatim. Used by Semi-Automatic and Manual's advisory blending.
func blendNumeric(current, other domain.ParamMap, a float64) domain.ParamMap {
	out := current.Clone()
	for name, ov := range other {
		cv, ok := out[name]
		if !ok {
			out[name] = ov
			continue
		}
		cf, cok := cv.Float()
		of, ook := ov.Float()
		if cok && ook {
			out[name] = blendedValue(cv, a*cf+(1-a)*of)
			continue
		}
		out[name] = ov
	}
	return out
}

// blendedValue preserves like's Kind (bool rounds at 0.5, int rounds to
// nearest whole number) while carrying the blended numeric value.
func blendedValue(like domain.Value, f float64) domain.Value {
	switch like.Kind {
	case domain.KindBool:
		return domain.BoolValue(f >= 0.5)
	case domain.KindInt:
		return domain.IntValue(int64(roundHalfAwayFromZero(f)))
	default:
		return domain.FloatValue(f)
	}
}

func roundHalfAwayFromZero(f float64) float64 {
	if f >= 0 {
		return float64(int64(f + 0.5))
	}
	return float64(int64(f - 0.5))
}

// publish emits a progress event for in.TaskID, defaulting Timestamp to
// now and ToolName/ProjectID to the strategy's own input.
func publish(bus *progressbus.Bus, in Input, stage string, progress float64, message string, metrics map[string]float64) {
	if bus == nil {
		return
	}
	bus.Publish(domain.ProgressEvent{
		TaskID:    in.TaskID,
		ToolName:  in.ToolName,
		ProjectID: in.ProjectID,
		Stage:     stage,
		Progress:  progress,
		Message:   message,
		Metrics:   metrics,
		Timestamp: time.Now(),
	})
}

func logf(component, format string, args ...any) {
	log.Printf("[%s] "+format, append([]any{component}, args...)...)
}

// hashScale is the deterministic hash-driven scale transfer learning
// uses to adapt a borrowed configuration to the current project:
// value·(1 + (hash(project_id) % 1000 / 1000 − 0.5)·0.2).
func hashScale(projectID string) float64 {
	h := fnv32(projectID)
	frac := float64(h%1000) / 1000.0
	return 1 + (frac-0.5)*0.2
}

func fnv32(s string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	hash := uint32(offset32)
	for i := 0; i < len(s); i++ {
		hash *= prime32
		hash ^= uint32(s[i])
	}
	return hash
}

// clampConfidence keeps every returned confidence_score in [0, 0.95].
func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 0.95 {
		return 0.95
	}
	return c
}
