package strategy

import (
	"context"
	"math/rand"

	"github.com/holomesh/cadopt/internal/domain"
	"github.com/holomesh/cadopt/internal/infra/acquisition"
	"github.com/holomesh/cadopt/internal/infra/progressbus"
	"github.com/holomesh/cadopt/internal/infra/similarity"
	"github.com/holomesh/cadopt/internal/infra/surrogate"
)

// Ensemble runs Bayesian (weight 0.6) then Transfer
// Learning (weight 0.4), each against its own budget slice, and combines
// results by weighted mean over numeric fields (first result's value for
// non-numeric keys).
type Ensemble struct {
	Bus            *progressbus.Bus
	Bayesian       *Bayesian
	Transfer       *Transfer
	BayesianWeight float64
}

// NewEnsemble constructs an Ensemble strategy over a Bayesian/Transfer
// pair, sharing the bus and a single project database.
func NewEnsemble(bus *progressbus.Bus, db *similarity.DB, rng *rand.Rand) *Ensemble {
	eiCfg := acquisition.DefaultConfig()
	eiCfg.Rand = rng
	return &Ensemble{
		Bus:            bus,
		Bayesian:       &Bayesian{Bus: bus, Rand: rng, GPConfig: surrogate.DefaultConfig(), EIConfig: eiCfg},
		Transfer:       NewTransfer(bus, db),
		BayesianWeight: 0.6,
	}
}

// Name implements Runner.
func (e *Ensemble) Name() string { return string(domain.StrategyEnsemble) }

// Run implements Runner.
func (e *Ensemble) Run(ctx context.Context, in Input) (Output, error) {
	bayesianBudget := int(float64(in.Budget)*e.BayesianWeight + 0.5)
	if bayesianBudget < 1 {
		bayesianBudget = 1
	}
	transferBudget := in.Budget - bayesianBudget
	if transferBudget < 0 {
		transferBudget = 0
	}

	bIn := in
	bIn.Budget = bayesianBudget
	bayesianOut, err := e.Bayesian.run(ctx, bIn, e.Bus)
	if err != nil {
		return Output{}, err
	}

	tIn := in
	tIn.Budget = transferBudget
	transferOut, err := e.Transfer.run(ctx, tIn, e.Bus)
	if err != nil {
		return Output{}, err
	}

	combined := weightedMerge(bayesianOut.Params, transferOut.Params, e.BayesianWeight)

	publish(e.Bus, in, domain.StageOptimizationCompleted, 1.0, "ensemble search complete", nil)

	return Output{
		Params:     combined,
		Iterations: bayesianOut.Iterations,
		Confidence: clampConfidence(0.9),
		Method:     string(domain.StrategyEnsemble),
		Info: domain.StrategyInfo{
			KernelUsed:      bayesianOut.Info.KernelUsed,
			SimilarProjects: transferOut.Info.SimilarProjects,
			FinalBestScore:  bayesianOut.Info.FinalBestScore,
		},
	}, nil
}

// weightedMerge combines two configs by weighted mean over numeric
// fields, falling back to a's value for non-numeric keys.
func weightedMerge(a, b domain.ParamMap, weightA float64) domain.ParamMap {
	out := a.Clone()
	for name, bv := range b {
		av, ok := out[name]
		if !ok {
			out[name] = bv
			continue
		}
		af, aok := av.Float()
		bf, bok := bv.Float()
		if aok && bok {
			out[name] = blendedValue(av, weightA*af+(1-weightA)*bf)
		}
	}
	return out
}

var _ Runner = (*Ensemble)(nil)
