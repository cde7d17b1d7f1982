package strategy

import (
	"context"
	"math/rand"

	"github.com/holomesh/cadopt/internal/domain"
	"github.com/holomesh/cadopt/internal/infra/acquisition"
	"github.com/holomesh/cadopt/internal/infra/progressbus"
	"github.com/holomesh/cadopt/internal/infra/surrogate"
)

// SemiAutomatic blends the HoloMesh recommender's suggestion
// (0.7 current + 0.3 recommended on numeric fields, verbatim on
// non-numeric), then refines with a short 20-iteration Bayesian pass.
type SemiAutomatic struct {
	Bus          *progressbus.Bus
	Recommender  domain.Recommender
	RefineBudget int

	bayesianSeed *rand.Rand
}

// NewSemiAutomatic constructs a Semi-Automatic strategy consulting rec.
func NewSemiAutomatic(bus *progressbus.Bus, rec domain.Recommender, rng *rand.Rand) *SemiAutomatic {
	return &SemiAutomatic{Bus: bus, Recommender: rec, RefineBudget: 20, bayesianSeed: rng}
}

// Name implements Runner.
func (s *SemiAutomatic) Name() string { return string(domain.StrategySemiAutomatic) }

// Run implements Runner.
func (s *SemiAutomatic) Run(ctx context.Context, in Input) (Output, error) {
	publish(s.Bus, in, domain.StageOptimizationStarted, 0, "semi-automatic recommendation requested", nil)

	recommended, err := s.Recommender.GetRecommendations(ctx, in.ToolName, in.InitialParams, in.Targets, domain.ModeSemiAutomatic)
	if err != nil {
		logf("strategy", "holomesh recommendation call failed, continuing with current params: %v", err)
		recommended = in.InitialParams
	}
	blended := blendNumeric(in.InitialParams, recommended, 0.7)

	refineIn := in
	refineIn.InitialParams = blended
	refineIn.Budget = s.RefineBudget

	bayesian := &Bayesian{
		Bus:      s.Bus,
		Rand:     s.bayesianSeed,
		GPConfig: surrogate.DefaultConfig(),
		EIConfig: acquisition.DefaultConfig(),
	}
	bayesian.EIConfig.Rand = s.bayesianSeed

	refined, err := bayesian.run(ctx, refineIn, s.Bus)
	if err != nil {
		return Output{}, err
	}

	confidence := clampConfidence(0.8 + 0.05)
	return Output{
		Params:     refined.Params,
		Iterations: refined.Iterations,
		Confidence: confidence,
		Method:     string(domain.StrategySemiAutomatic),
		Info:       refined.Info,
	}, nil
}

var _ Runner = (*SemiAutomatic)(nil)
