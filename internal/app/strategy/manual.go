package strategy

import (
	"context"

	"github.com/holomesh/cadopt/internal/domain"
	"github.com/holomesh/cadopt/internal/infra/progressbus"
)

// Manual blends the tool-guidance provider's suggestion
// (0.9 current + 0.1 guidance on numeric fields, verbatim on non-numeric)
// with no further automated refinement. Confidentiality is recorded on
// the caller's result, not here; the orchestrator is the one place that
// knows whether to skip the similarity-database write.
type Manual struct {
	Bus      *progressbus.Bus
	Guidance domain.GuidanceProvider
}

// NewManual constructs a Manual strategy consulting guidance.
func NewManual(bus *progressbus.Bus, guidance domain.GuidanceProvider) *Manual {
	return &Manual{Bus: bus, Guidance: guidance}
}

// Name implements Runner.
func (m *Manual) Name() string { return string(domain.StrategyManual) }

// Run implements Runner.
func (m *Manual) Run(ctx context.Context, in Input) (Output, error) {
	publish(m.Bus, in, domain.StageOptimizationStarted, 0, "manual tool-guidance requested", nil)

	guidance, err := m.Guidance.GetToolGuidance(ctx, in.ToolName, in.InitialParams, in.Targets)
	if err != nil {
		logf("strategy", "tool-guidance call failed, continuing with current params: %v", err)
		guidance = in.InitialParams
	}
	blended := blendNumeric(in.InitialParams, guidance, 0.9)

	confidence := clampConfidence(0.75 + 0.03)
	publish(m.Bus, in, domain.StageOptimizationCompleted, 1.0, "manual guidance applied", nil)

	return Output{
		Params:     blended,
		Iterations: 0,
		Confidence: confidence,
		Method:     string(domain.StrategyManual),
	}, nil
}

var _ Runner = (*Manual)(nil)
