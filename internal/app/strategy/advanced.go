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

// Advanced runs Bayesian search with an 8-or-budget/3 seed, a GP+NN
// co-fit, a 0.7/0.3 blend of the EI-selected point with the current
// vector per iteration, and adaptive kernel switching. The NN never
// proposes its own candidate point; it only biases the GP's predicted
// mean.
type Advanced struct {
	Bus       *progressbus.Bus
	Rand      *rand.Rand
	GPConfig  surrogate.Config
	NNConfig  surrogate.NNConfig
	EIConfig  acquisition.Config
	Adaptive  surrogate.AdaptiveConfig
	BlendBias float64 // weight given to the EI point vs. the current best vector (default 0.7)
}

// NewAdvanced constructs an Advanced Bayesian strategy with production
// defaults.
func NewAdvanced(bus *progressbus.Bus) *Advanced {
	return &Advanced{
		Bus:       bus,
		Rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		GPConfig:  surrogate.DefaultConfig(),
		NNConfig:  surrogate.DefaultNNConfig(),
		EIConfig:  acquisition.DefaultConfig(),
		Adaptive:  surrogate.DefaultAdaptiveConfig(),
		BlendBias: 0.7,
	}
}

// Name implements Runner.
func (a *Advanced) Name() string { return string(domain.StrategyAdvancedBayesian) }

// Run implements Runner.
func (a *Advanced) Run(ctx context.Context, in Input) (Output, error) {
	if in.Budget <= 0 {
		return Output{}, domain.ErrEmptyBudget
	}
	dim := len(in.Descriptors)
	gp := surrogate.New(a.GPConfig)
	nn := surrogate.NewNN(a.NNConfig)
	adaptive := surrogate.NewAdaptive(gp, a.Adaptive)
	eiCfg := a.EIConfig
	eiCfg.Rand = a.Rand

	publish(a.Bus, in, domain.StageOptimizationStarted, 0, "advanced bayesian search started", nil)

	var samples []domain.Sample
	bestVec := paramspace.Normalize(in.InitialParams, in.Descriptors)
	bestParams := in.InitialParams
	bestScore := math.Inf(-1)

	evaluate := func(vec []float64) {
		params := paramspace.Denormalize(vec, in.Descriptors, in.InitialParams)
		score := objectiveScore(params, in.Targets)
		samples = append(samples, domain.Sample{Vector: vec, Fitness: score})
		adaptive.Observe()
		if score > bestScore {
			bestScore = score
			bestVec = vec
			bestParams = params
			publish(a.Bus, in, domain.StageBestConfigUpdate, float64(len(samples))/float64(in.Budget),
				"new best configuration found", map[string]float64{"best_score": score})
		}
	}

	seed := in.Budget / 3
	if seed > 8 {
		seed = 8
	}
	if seed < 1 {
		seed = 1
	}
	if seed > in.Budget {
		seed = in.Budget
	}
	for i := 0; i < seed; i++ {
		select {
		case <-ctx.Done():
			return Output{}, ctx.Err()
		default:
		}
		evaluate(randomVector(a.Rand, dim))
	}
	fitGP(gp, samples)
	fitNN(nn, samples)

	lastKernel := gp.Kernel().Kind
	iterations := seed
	for iterations < in.Budget {
		select {
		case <-ctx.Done():
			return Output{}, ctx.Err()
		default:
		}

		predictor := biasedPredictor{gp: gp, nn: nn, weight: 0.3}
		eiPoint := acquisition.Search(predictor, dim, bestScore, bestVec, eiCfg)
		next := blendVectors(eiPoint, bestVec, a.BlendBias)
		evaluate(next)
		fitGP(gp, samples)
		if nn.ShouldRetrain(len(samples)) {
			fitNN(nn, samples)
		}
		iterations++

		if k := gp.Kernel().Kind; k != lastKernel {
			lastKernel = k
			publish(a.Bus, in, domain.StageKernelSwitched, float64(iterations)/float64(in.Budget),
				"adaptive kernel switched to "+k.String(), nil)
		}
		publish(a.Bus, in, domain.StageOptimizationProgress, float64(iterations)/float64(in.Budget),
			"advanced bayesian iteration complete", map[string]float64{"best_score": bestScore})
	}

	confidence := clampConfidence(math.Min(0.95, 0.7+0.01*float64(iterations)))
	publish(a.Bus, in, domain.StageOptimizationCompleted, 1.0, "advanced bayesian search complete",
		map[string]float64{"best_score": bestScore})

	return Output{
		Params:     bestParams,
		Iterations: iterations,
		Confidence: confidence,
		Method:     string(domain.StrategyAdvancedBayesian),
		Info: domain.StrategyInfo{
			KernelUsed:     gp.Kernel().Kind.String(),
			FinalBestScore: bestScore,
		},
	}, nil
}

// biasedPredictor wraps the GP's posterior with the NN co-surrogate's
// prediction as a bias correction to the mean, not a replacement for it.
// The GP's variance estimate passes through unchanged; an untrained NN
// contributes no correction.
type biasedPredictor struct {
	gp     *surrogate.GP
	nn     *surrogate.NN
	weight float64
}

func (p biasedPredictor) Predict(x []float64) (mean, std float64) {
	mean, std = p.gp.Predict(x)
	if p.nn.Trained() {
		nnVal, _ := p.nn.Predict(x)
		mean += p.weight * (nnVal - mean)
	}
	return mean, std
}

func fitNN(nn *surrogate.NN, samples []domain.Sample) {
	X := make([][]float64, len(samples))
	y := make([]float64, len(samples))
	for i, s := range samples {
		X[i] = s.Vector
		y[i] = s.Fitness
	}
	nn.Fit(X, y)
}

var _ Runner = (*Advanced)(nil)
