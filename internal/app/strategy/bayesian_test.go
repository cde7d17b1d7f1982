package strategy

import (
	"context"
	"math/rand"
	"testing"

	"github.com/holomesh/cadopt/internal/domain"
	"github.com/holomesh/cadopt/internal/infra/acquisition"
	"github.com/holomesh/cadopt/internal/infra/progressbus"
	"github.com/holomesh/cadopt/internal/infra/surrogate"
)

func newTestBayesian() *Bayesian {
	rng := rand.New(rand.NewSource(42))
	eiCfg := acquisition.DefaultConfig()
	eiCfg.Rand = rng
	return &Bayesian{
		Bus:      progressbus.New(),
		Rand:     rng,
		GPConfig: surrogate.DefaultConfig(),
		EIConfig: eiCfg,
	}
}

func TestBayesianConvergesTowardNamedTarget(t *testing.T) {
	b := newTestBayesian()
	in := Input{
		ToolName:      "yosys",
		ProjectID:     "proj1",
		TaskID:        "task1",
		InitialParams: domain.ParamMap{"optimization_level": domain.IntValue(1)},
		Targets:       domain.TargetMetrics{"optimization_level": 3.0},
		Budget:        20,
		Descriptors:   []domain.Descriptor{{Name: "optimization_level", Kind: domain.IntegerKind, Min: 0, Max: 3}},
	}

	out, err := b.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out.Iterations != in.Budget {
		t.Errorf("iterations = %d, want %d", out.Iterations, in.Budget)
	}
	got := out.Params["optimization_level"].Num
	if got < 2 {
		t.Errorf("optimization_level = %v, expected search to move toward target 3 from seed 1", got)
	}
	if out.Confidence < 0 || out.Confidence > 0.95 {
		t.Errorf("confidence = %v, want within [0, 0.95]", out.Confidence)
	}
}

func TestBayesianBestScoreNeverDecreases(t *testing.T) {
	b := newTestBayesian()
	in := Input{
		ToolName:      "yosys",
		ProjectID:     "proj1",
		TaskID:        "task1",
		InitialParams: domain.ParamMap{"optimization_level": domain.IntValue(1)},
		Targets:       domain.TargetMetrics{"optimization_level": 3.0},
		Budget:        8,
		Descriptors:   []domain.Descriptor{{Name: "optimization_level", Kind: domain.IntegerKind, Min: 0, Max: 3}},
	}

	ch, unsub := b.Bus.Subscribe("task1")
	defer unsub()

	out, err := b.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	var best float64 = -1
	sawUpdate := false
	for {
		select {
		case ev := <-ch:
			if ev.Stage == domain.StageBestConfigUpdate {
				sawUpdate = true
				score := ev.Metrics["best_score"]
				if score < best {
					t.Fatalf("best_score decreased: saw %v after %v", score, best)
				}
				best = score
			}
		default:
			goto done
		}
	}
done:
	if !sawUpdate {
		t.Error("expected at least one best_config_update event")
	}
	if out.Info.FinalBestScore < best {
		t.Errorf("final best score %v should be >= last observed update %v", out.Info.FinalBestScore, best)
	}
}

func TestBayesianRejectsZeroBudget(t *testing.T) {
	b := newTestBayesian()
	in := Input{
		ToolName:      "yosys",
		InitialParams: domain.ParamMap{"optimization_level": domain.IntValue(1)},
		Targets:       domain.TargetMetrics{"optimization_level": 3.0},
		Budget:        0,
		Descriptors:   []domain.Descriptor{{Name: "optimization_level", Kind: domain.IntegerKind, Min: 0, Max: 3}},
	}
	if _, err := b.Run(context.Background(), in); err != domain.ErrEmptyBudget {
		t.Errorf("expected ErrEmptyBudget, got %v", err)
	}
}
