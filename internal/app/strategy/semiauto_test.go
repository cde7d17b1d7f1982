package strategy

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/holomesh/cadopt/internal/domain"
	"github.com/holomesh/cadopt/internal/infra/progressbus"
)

type stubRecommender struct {
	params domain.ParamMap
	err    error
}

func (s stubRecommender) GetRecommendations(ctx context.Context, toolName string, current domain.ParamMap, targets domain.TargetMetrics, mode domain.InteractionMode) (domain.ParamMap, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.params, nil
}

type stubGuidance struct {
	params domain.ParamMap
	err    error
}

func (s stubGuidance) GetToolGuidance(ctx context.Context, toolName string, current domain.ParamMap, targets domain.TargetMetrics) (domain.ParamMap, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.params, nil
}

func TestSemiAutomaticBlendsThenRefines(t *testing.T) {
	rec := stubRecommender{params: domain.ParamMap{"optimization_level": domain.IntValue(3)}}
	s := NewSemiAutomatic(progressbus.New(), rec, rand.New(rand.NewSource(5)))

	in := Input{
		ToolName:      "yosys",
		ProjectID:     "proj1",
		TaskID:        "task1",
		InitialParams: domain.ParamMap{"optimization_level": domain.IntValue(0)},
		Targets:       domain.TargetMetrics{"optimization_level": 3.0},
		Descriptors:   []domain.Descriptor{{Name: "optimization_level", Kind: domain.IntegerKind, Min: 0, Max: 3}},
	}

	out, err := s.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if out.Iterations != s.RefineBudget {
		t.Errorf("iterations = %d, want refine budget %d", out.Iterations, s.RefineBudget)
	}
	if out.Confidence != 0.85 {
		t.Errorf("confidence = %v, want 0.85", out.Confidence)
	}
}

func TestSemiAutomaticFallsBackOnRecommenderError(t *testing.T) {
	rec := stubRecommender{err: errors.New("holomesh unavailable")}
	s := NewSemiAutomatic(progressbus.New(), rec, rand.New(rand.NewSource(5)))

	in := Input{
		ToolName:      "yosys",
		InitialParams: domain.ParamMap{"optimization_level": domain.IntValue(2)},
		Targets:       domain.TargetMetrics{"optimization_level": 3.0},
		Descriptors:   []domain.Descriptor{{Name: "optimization_level", Kind: domain.IntegerKind, Min: 0, Max: 3}},
	}
	if _, err := s.Run(context.Background(), in); err != nil {
		t.Fatalf("expected fallback to current params on recommender error, got: %v", err)
	}
}

func TestManualBlendsGuidanceAndReportsConfidence(t *testing.T) {
	g := stubGuidance{params: domain.ParamMap{"optimization_level": domain.IntValue(3)}}
	m := NewManual(progressbus.New(), g)

	in := Input{
		ToolName:      "yosys",
		ProjectID:     "proj1",
		TaskID:        "task1",
		InitialParams: domain.ParamMap{"optimization_level": domain.IntValue(1)},
		Targets:       domain.TargetMetrics{"optimization_level": 3.0},
	}
	out, err := m.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if out.Confidence != 0.78 {
		t.Errorf("confidence = %v, want 0.78", out.Confidence)
	}
	// 0.9*1 + 0.1*3 = 1.2 -> rounds to 1
	if out.Params["optimization_level"].Num != 1 {
		t.Errorf("blended optimization_level = %v, want 1", out.Params["optimization_level"].Num)
	}
}

func TestManualFallsBackOnGuidanceError(t *testing.T) {
	g := stubGuidance{err: errors.New("guidance unavailable")}
	m := NewManual(progressbus.New(), g)

	in := Input{
		ToolName:      "yosys",
		InitialParams: domain.ParamMap{"optimization_level": domain.IntValue(2)},
		Targets:       domain.TargetMetrics{"optimization_level": 3.0},
	}
	out, err := m.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if out.Params["optimization_level"].Num != 2 {
		t.Errorf("expected unchanged params on fallback, got %v", out.Params["optimization_level"].Num)
	}
}
