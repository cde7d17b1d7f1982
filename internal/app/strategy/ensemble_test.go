package strategy

import (
	"context"
	"math/rand"
	"testing"

	"github.com/holomesh/cadopt/internal/domain"
	"github.com/holomesh/cadopt/internal/infra/progressbus"
	"github.com/holomesh/cadopt/internal/infra/similarity"
)

func TestEnsembleSplitsBudgetAndBlendsWeighted(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	db := similarity.New(similarity.DefaultConfig())
	e := NewEnsemble(progressbus.New(), db, rng)

	in := Input{
		ToolName:      "yosys",
		ProjectID:     "proj1",
		TaskID:        "task1",
		InitialParams: domain.ParamMap{"optimization_level": domain.IntValue(1)},
		Targets:       domain.TargetMetrics{"optimization_level": 3.0},
		Budget:        10,
		Descriptors:   []domain.Descriptor{{Name: "optimization_level", Kind: domain.IntegerKind, Min: 0, Max: 3}},
	}

	out, err := e.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if out.Iterations != 6 {
		t.Errorf("bayesian iterations = %d, want 6 (60%% of budget 10)", out.Iterations)
	}
	if out.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", out.Confidence)
	}
	if _, ok := out.Params["optimization_level"]; !ok {
		t.Error("expected merged params to carry optimization_level")
	}
}
