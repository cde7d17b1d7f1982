package strategy

import (
	"context"
	"math/rand"
	"testing"

	"github.com/holomesh/cadopt/internal/domain"
)

func newTestAdvanced() *Advanced {
	a := NewAdvanced(nil)
	a.Rand = rand.New(rand.NewSource(7))
	return a
}

func TestAdvancedRespectsBudgetAndConfidenceBound(t *testing.T) {
	a := newTestAdvanced()
	in := Input{
		ToolName:      "yosys",
		ProjectID:     "proj1",
		TaskID:        "task1",
		InitialParams: domain.ParamMap{"optimization_level": domain.IntValue(1)},
		Targets:       domain.TargetMetrics{"optimization_level": 3.0},
		Budget:        12,
		Descriptors:   []domain.Descriptor{{Name: "optimization_level", Kind: domain.IntegerKind, Min: 0, Max: 3}},
	}

	out, err := a.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if out.Iterations != in.Budget {
		t.Errorf("iterations = %d, want %d", out.Iterations, in.Budget)
	}
	if out.Confidence < 0 || out.Confidence > 0.95 {
		t.Errorf("confidence = %v, want within [0, 0.95]", out.Confidence)
	}
	if out.Info.KernelUsed == "" {
		t.Error("expected KernelUsed to be reported")
	}
}

func TestAdvancedRejectsZeroBudget(t *testing.T) {
	a := newTestAdvanced()
	in := Input{
		InitialParams: domain.ParamMap{"optimization_level": domain.IntValue(1)},
		Targets:       domain.TargetMetrics{"optimization_level": 3.0},
		Budget:        0,
		Descriptors:   []domain.Descriptor{{Name: "optimization_level", Kind: domain.IntegerKind, Min: 0, Max: 3}},
	}
	if _, err := a.Run(context.Background(), in); err != domain.ErrEmptyBudget {
		t.Errorf("expected ErrEmptyBudget, got %v", err)
	}
}
