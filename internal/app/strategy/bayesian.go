package strategy

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/holomesh/cadopt/internal/domain"
	"github.com/holomesh/cadopt/internal/infra/acquisition"
	"github.com/holomesh/cadopt/internal/infra/paramspace"
	"github.com/holomesh/cadopt/internal/infra/progressbus"
	"github.com/holomesh/cadopt/internal/infra/surrogate"
)

// Bayesian is the core strategy: initial random exploration of min(5,budget)
// samples, a GP fit, then an EI-search/evaluate/refit loop out to budget.
type Bayesian struct {
	Bus      *progressbus.Bus
	Rand     *rand.Rand
	GPConfig surrogate.Config
	EIConfig acquisition.Config
}

// NewBayesian constructs a Bayesian strategy with production defaults.
func NewBayesian(bus *progressbus.Bus) *Bayesian {
	return &Bayesian{
		Bus:      bus,
		Rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
		GPConfig: surrogate.DefaultConfig(),
		EIConfig: acquisition.DefaultConfig(),
	}
}

// Name implements Runner.
func (b *Bayesian) Name() string { return string(domain.StrategyBayesian) }

// Run implements Runner.
func (b *Bayesian) Run(ctx context.Context, in Input) (Output, error) {
	return b.run(ctx, in, b.Bus)
}

// run is factored out so Ensemble can drive a Bayesian slice against a
// shared bus without constructing a second strategy instance.
func (b *Bayesian) run(ctx context.Context, in Input, bus *progressbus.Bus) (Output, error) {
	if in.Budget <= 0 {
		return Output{}, domain.ErrEmptyBudget
	}
	dim := len(in.Descriptors)
	gp := surrogate.New(b.GPConfig)
	eiCfg := b.EIConfig
	eiCfg.Rand = b.Rand

	publish(bus, in, domain.StageOptimizationStarted, 0, "bayesian search started", nil)

	var samples []domain.Sample
	bestVec := paramspace.Normalize(in.InitialParams, in.Descriptors)
	bestParams := in.InitialParams
	bestScore := math.Inf(-1)

	evaluate := func(vec []float64) {
		params := paramspace.Denormalize(vec, in.Descriptors, in.InitialParams)
		score := objectiveScore(params, in.Targets)
		samples = append(samples, domain.Sample{Vector: vec, Fitness: score})
		if score > bestScore {
			bestScore = score
			bestVec = vec
			bestParams = params
			publish(bus, in, domain.StageBestConfigUpdate, float64(len(samples))/float64(in.Budget),
				"new best configuration found", map[string]float64{"best_score": score})
		}
	}

	seed := in.Budget
	if seed > 5 {
		seed = 5
	}
	for i := 0; i < seed; i++ {
		select {
		case <-ctx.Done():
			return Output{}, ctx.Err()
		default:
		}
		evaluate(randomVector(b.Rand, dim))
	}
	fitGP(gp, samples)

	iterations := seed
	for iterations < in.Budget {
		select {
		case <-ctx.Done():
			return Output{}, ctx.Err()
		default:
		}
		next := acquisition.Search(gp, dim, bestScore, bestVec, eiCfg)
		evaluate(next)
		fitGP(gp, samples)
		iterations++
		publish(bus, in, domain.StageOptimizationProgress, float64(iterations)/float64(in.Budget),
			"bayesian iteration complete", map[string]float64{"best_score": bestScore})
	}

	confidence := clampConfidence(math.Min(0.95, 0.7+0.01*float64(iterations)))
	publish(bus, in, domain.StageOptimizationCompleted, 1.0, "bayesian search complete",
		map[string]float64{"best_score": bestScore})

	return Output{
		Params:     bestParams,
		Iterations: iterations,
		Confidence: confidence,
		Method:     string(domain.StrategyBayesian),
		Info: domain.StrategyInfo{
			KernelUsed:     gp.Kernel().Kind.String(),
			FinalBestScore: bestScore,
		},
	}, nil
}

// fitGP refits gp on the full accumulated sample set. A numerically
// unstable fit (e.g. a near-singular kernel matrix before enough samples
// exist) is logged and skipped for this iteration rather than propagated;
// the loop falls back to random sampling until the next refit succeeds.
func fitGP(gp *surrogate.GP, samples []domain.Sample) {
	X := make([][]float64, len(samples))
	y := make([]float64, len(samples))
	for i, s := range samples {
		X[i] = s.Vector
		y[i] = s.Fitness
	}
	if err := gp.Fit(X, y); err != nil {
		logf("strategy", "GP fit failed, falling back to random sampling this iteration: %v", err)
	}
}

var _ Runner = (*Bayesian)(nil)
