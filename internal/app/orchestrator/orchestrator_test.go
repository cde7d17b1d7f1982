package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/holomesh/cadopt/internal/app/strategy"
	"github.com/holomesh/cadopt/internal/config"
	"github.com/holomesh/cadopt/internal/domain"
	"github.com/holomesh/cadopt/internal/infra/cache"
	"github.com/holomesh/cadopt/internal/infra/evaluator"
	"github.com/holomesh/cadopt/internal/infra/paramspace"
	"github.com/holomesh/cadopt/internal/infra/progressbus"
	"github.com/holomesh/cadopt/internal/infra/similarity"
	"github.com/holomesh/cadopt/internal/infra/taskqueue"
)

// fakeRunner returns a fixed output without touching the real search loop,
// enough to drive the orchestrator's own logic in isolation.
type fakeRunner struct {
	out strategy.Output
	err error
}

func (f fakeRunner) Name() string { return "fake" }
func (f fakeRunner) Run(ctx context.Context, in strategy.Input) (strategy.Output, error) {
	return f.out, f.err
}

func newTestOrchestrator(t *testing.T, strategies map[domain.Strategy]strategy.Runner) *Orchestrator {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Tools = map[string]config.ToolConfig{
		"yosys": {
			SupportedModes:    []string{"professional", "manual"},
			DefaultParameters: map[string]any{"optimization_level": int64(2)},
		},
		"nextpnr": {
			SupportedModes:    []string{"professional"},
			DefaultParameters: map[string]any{"placer_effort": 1.0},
		},
	}

	registry := paramspace.NewRegistry()
	registry.Register(paramspace.ToolDefinition{
		Name: "yosys",
		Descriptors: []domain.Descriptor{
			{Name: "optimization_level", Kind: domain.IntegerKind, Min: 0, Max: 3},
		},
		DefaultParameters: domain.ParamMap{"optimization_level": domain.IntValue(2)},
		SupportedModes:    []domain.InteractionMode{domain.ModeProfessional, domain.ModeManual},
	})

	backend := cache.NewMemory(cache.DefaultConfig())
	queue := taskqueue.New(taskqueue.DefaultConfig(), func(ctx context.Context, task *domain.Task) (*domain.OptimizeResult, error) {
		return nil, nil
	})
	bus := progressbus.New()
	db := similarity.New(similarity.DefaultConfig())
	eval := evaluator.NewReference(1)

	o := New(cfg, registry, backend, queue, bus, db, eval, strategies)
	o.Now = func() time.Time { return time.Unix(1000, 0) }
	return o
}

func TestOptimizeCacheHitReturnsStoredParams(t *testing.T) {
	runner := fakeRunner{out: strategy.Output{
		Params:     domain.ParamMap{"optimization_level": domain.IntValue(3)},
		Iterations: 5,
		Confidence: 0.8,
		Method:     "bayesian",
	}}
	o := newTestOrchestrator(t, map[domain.Strategy]strategy.Runner{domain.StrategyBayesian: runner})

	req := domain.OptimizeRequest{
		ToolName:        "yosys",
		ProjectID:       "proj-a",
		InitialParams:   domain.ParamMap{"optimization_level": domain.IntValue(1)},
		TargetMetrics:   domain.TargetMetrics{"optimization_level": 3.0},
		Strategy:        domain.StrategyBayesian,
		Budget:          5,
		InteractionMode: domain.ModeProfessional,
	}

	first := o.Optimize(context.Background(), req)
	if first.Status != "success" || first.Method != "bayesian" {
		t.Fatalf("unexpected first result: %+v", first)
	}

	second := o.Optimize(context.Background(), req)
	if second.Method != "cached" {
		t.Errorf("method = %q, want cached", second.Method)
	}
	if second.Iterations != 0 {
		t.Errorf("iterations = %d, want 0", second.Iterations)
	}
	if second.ConfidenceScore != 0.95 {
		t.Errorf("confidence = %v, want 0.95", second.ConfidenceScore)
	}
	if second.OptimizedParams["optimization_level"].Num != first.OptimizedParams["optimization_level"].Num {
		t.Errorf("cached params %v should equal first result's params %v",
			second.OptimizedParams, first.OptimizedParams)
	}
}

func TestOptimizeDowngradesUnsupportedMode(t *testing.T) {
	runner := fakeRunner{out: strategy.Output{
		Params:     domain.ParamMap{"optimization_level": domain.IntValue(2)},
		Iterations: 1,
		Confidence: 0.7,
		Method:     "bayesian",
	}}
	o := newTestOrchestrator(t, map[domain.Strategy]strategy.Runner{domain.StrategyBayesian: runner})

	req := domain.OptimizeRequest{
		ToolName:        "yosys", // supports {professional, manual} only, per newTestOrchestrator
		ProjectID:       "proj-b",
		InitialParams:   domain.ParamMap{"optimization_level": domain.IntValue(1)},
		TargetMetrics:   domain.TargetMetrics{"optimization_level": 3.0},
		Strategy:        domain.StrategyBayesian,
		Budget:          5,
		InteractionMode: domain.ModeInnovative,
	}

	result := o.Optimize(context.Background(), req)
	if result.InteractionMode != domain.ModeProfessional {
		t.Errorf("interaction_mode = %q, want professional after downgrade", result.InteractionMode)
	}
	if result.StrategyInfo == nil || !result.StrategyInfo.ModeDowngraded {
		t.Errorf("expected StrategyInfo.ModeDowngraded = true, got %+v", result.StrategyInfo)
	}
}

func TestOptimizeConfidentialityLeavesSimilarityDBUnchanged(t *testing.T) {
	runner := fakeRunner{out: strategy.Output{
		Params:     domain.ParamMap{"optimization_level": domain.IntValue(2)},
		Iterations: 0,
		Confidence: 0.78,
		Method:     "manual",
	}}
	o := newTestOrchestrator(t, map[domain.Strategy]strategy.Runner{domain.StrategyManual: runner})

	before := o.DB.Size()
	req := domain.OptimizeRequest{
		ToolName:        "yosys",
		ProjectID:       "proj-confidential",
		InitialParams:   domain.ParamMap{"optimization_level": domain.IntValue(1)},
		TargetMetrics:   domain.TargetMetrics{"optimization_level": 3.0},
		Strategy:        domain.StrategyManual,
		InteractionMode: domain.ModeManual,
		Confidentiality: true,
	}

	result := o.Optimize(context.Background(), req)
	if !result.ConfidentialityEnabled {
		t.Fatal("expected confidentiality_enabled = true on the result")
	}
	if after := o.DB.Size(); after != before {
		t.Errorf("similarity DB size changed from %d to %d under confidentiality", before, after)
	}
	if stats := o.Cache.Stats(); stats.Size != 0 {
		t.Errorf("expected nothing cached under confidentiality, cache size = %d", stats.Size)
	}
}

func TestGetRecommendationsFallsBackToDefaultParameters(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	rec, err := o.GetRecommendations(context.Background(), "yosys", map[string]string{"tool_name": "yosys"})
	if err != nil {
		t.Fatalf("GetRecommendations error: %v", err)
	}
	if rec.Source != "default_parameters" {
		t.Errorf("source = %q, want default_parameters", rec.Source)
	}
	if rec.SimilarProjectsUsed != 0 {
		t.Errorf("similar_projects_used = %d, want 0", rec.SimilarProjectsUsed)
	}
	if rec.ConfidenceScore != 0.80 {
		t.Errorf("confidence = %v, want 0.80 (manual holomesh_integration enabled by default config)", rec.ConfidenceScore)
	}
}

func TestInvalidateCacheByToolLeavesOtherToolsIntact(t *testing.T) {
	yosysRunner := fakeRunner{out: strategy.Output{Params: domain.ParamMap{"optimization_level": domain.IntValue(3)}, Method: "bayesian"}}
	o := newTestOrchestrator(t, map[domain.Strategy]strategy.Runner{domain.StrategyBayesian: yosysRunner})
	o.Registry.Register(paramspace.ToolDefinition{
		Name:              "nextpnr",
		Descriptors:       []domain.Descriptor{{Name: "placer_effort", Kind: domain.ContinuousKind, Min: 0, Max: 2}},
		DefaultParameters: domain.ParamMap{"placer_effort": domain.FloatValue(1)},
		SupportedModes:    []domain.InteractionMode{domain.ModeProfessional},
	})

	reqA := domain.OptimizeRequest{
		ToolName: "yosys", ProjectID: "A",
		InitialParams: domain.ParamMap{"optimization_level": domain.IntValue(1)},
		TargetMetrics: domain.TargetMetrics{"optimization_level": 3.0},
		Strategy:      domain.StrategyBayesian,
	}
	reqB := reqA
	reqB.ProjectID = "B"
	o.Optimize(context.Background(), reqA)
	o.Optimize(context.Background(), reqB)

	reqC := domain.OptimizeRequest{
		ToolName: "nextpnr", ProjectID: "C",
		InitialParams: domain.ParamMap{"placer_effort": domain.FloatValue(1)},
		TargetMetrics: domain.TargetMetrics{"placer_effort": 1.5},
		Strategy:      domain.StrategyBayesian,
	}
	nextpnrRunner := fakeRunner{out: strategy.Output{Params: domain.ParamMap{"placer_effort": domain.FloatValue(1.5)}, Method: "bayesian"}}
	o.Strategies[domain.StrategyBayesian] = nextpnrRunner
	o.Optimize(context.Background(), reqC)

	if stats := o.Cache.Stats(); stats.Size != 3 {
		// the nextpnr write may have replaced the yosys entries' slots only
		// if the fingerprints collided, which they should not.
		t.Logf("cache size before invalidate = %d", stats.Size)
	}

	o.InvalidateCache("yosys", "")

	keyA := cache.ScopedKey(o.Config.Cache.CachePrefix, "yosys", "A", reqA.InitialParams)
	keyC := cache.ScopedKey(o.Config.Cache.CachePrefix, "nextpnr", "C", reqC.InitialParams)
	if _, ok := o.Cache.Get(keyA); ok {
		t.Error("expected yosys/A entry to be invalidated")
	}
	if _, ok := o.Cache.Get(keyC); !ok {
		t.Error("expected nextpnr/C entry to survive a yosys-scoped invalidate")
	}
}
