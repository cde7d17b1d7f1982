package strategy

import (
	"context"
	"math/rand"
	"testing"

	"github.com/holomesh/cadopt/internal/domain"
	"github.com/holomesh/cadopt/internal/infra/progressbus"
	"github.com/holomesh/cadopt/internal/infra/similarity"
)

func TestTransferUsesSimilarProjectWhenAvailable(t *testing.T) {
	db := similarity.New(similarity.DefaultConfig())
	db.Record(similarity.Record{
		ProjectID:     "peer-1",
		ToolName:      "yosys",
		OptimalConfig: domain.ParamMap{"optimization_level": domain.IntValue(3)},
		Context:       map[string]string{"tool_name": "yosys"},
	})

	tr := NewTransfer(progressbus.New(), db)
	tr.Rand = rand.New(rand.NewSource(1))
	tr.FineTuneSigma = 0 // isolate the hash-scale step from perturbation noise

	in := Input{
		ToolName:      "yosys",
		ProjectID:     "current-project",
		TaskID:        "task1",
		InitialParams: domain.ParamMap{"optimization_level": domain.IntValue(1)},
		Targets:       domain.TargetMetrics{"optimization_level": 3.0},
	}

	out, err := tr.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if out.Info.SimilarProjects != 1 {
		t.Errorf("SimilarProjects = %d, want 1", out.Info.SimilarProjects)
	}
	if out.Confidence != 0.85 {
		t.Errorf("confidence = %v, want 0.85", out.Confidence)
	}
	if out.Iterations != 0 {
		t.Errorf("iterations = %d, want 0 (transfer does not iterate)", out.Iterations)
	}
}

func TestTransferFallsBackToHashAdaptWhenNoSimilarProject(t *testing.T) {
	db := similarity.New(similarity.DefaultConfig())
	tr := NewTransfer(progressbus.New(), db)
	tr.Rand = rand.New(rand.NewSource(1))
	tr.FineTuneSigma = 0

	in := Input{
		ToolName:      "yosys",
		ProjectID:     "lonely-project",
		InitialParams: domain.ParamMap{"placer_effort": domain.FloatValue(2)},
		Targets:       domain.TargetMetrics{"placer_effort": 3.0},
	}

	out, err := tr.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if out.Info.SimilarProjects != 0 {
		t.Errorf("SimilarProjects = %d, want 0", out.Info.SimilarProjects)
	}
	want := 2.0 * hashScale("lonely-project")
	got := out.Params["placer_effort"].Num
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("hash-adapted placer_effort = %v, want %v", got, want)
	}
}
