// Package orchestrator wires the parameter space, surrogate strategies,
// result cache, task queue, progress bus, and project database into the
// single public entry point external callers use.
package orchestrator

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/holomesh/cadopt/internal/app/strategy"
	"github.com/holomesh/cadopt/internal/config"
	"github.com/holomesh/cadopt/internal/domain"
	"github.com/holomesh/cadopt/internal/infra/cache"
	"github.com/holomesh/cadopt/internal/infra/observability"
	"github.com/holomesh/cadopt/internal/infra/paramspace"
	"github.com/holomesh/cadopt/internal/infra/progressbus"
	"github.com/holomesh/cadopt/internal/infra/similarity"
	"github.com/holomesh/cadopt/internal/infra/taskqueue"
)

const enqueuePriority = 10

// Orchestrator is the single glue component external callers and the RPC
// layer drive. All fields are safe for concurrent use; the
// orchestrator itself holds no additional lock beyond the auxiliary cache
// index guarding InvalidateCache's (tool, project) routing.
type Orchestrator struct {
	Config   config.Config
	Registry *paramspace.Registry
	Cache    domain.CacheBackend
	Queue    *taskqueue.Pool
	Bus      *progressbus.Bus
	DB       *similarity.DB
	Eval     domain.Evaluator

	Strategies map[domain.Strategy]strategy.Runner

	// EvaluatorTimeout bounds each Evaluate call (default 60s).
	EvaluatorTimeout time.Duration

	// Tracer records a span for the strategy run and one per evaluator call
	// for the debug surface.
	Tracer *observability.Tracer

	// Now is an injectable clock for testing.
	Now func() time.Time

	idx cacheIndex
}

// New wires production defaults for everything except the pieces the
// caller must own the lifecycle of (queue, bus, cache, DB, evaluator) and
// the strategy set, which a higher layer constructs so it can share one
// bus/DB across strategies that need them (Transfer, Ensemble).
func New(cfg config.Config, registry *paramspace.Registry, backend domain.CacheBackend, queue *taskqueue.Pool, bus *progressbus.Bus, db *similarity.DB, eval domain.Evaluator, strategies map[domain.Strategy]strategy.Runner) *Orchestrator {
	timeout := time.Duration(cfg.Evaluator.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Orchestrator{
		Config:           cfg,
		Registry:         registry,
		Cache:            backend,
		Queue:            queue,
		Bus:              bus,
		DB:               db,
		Eval:             eval,
		Strategies:       strategies,
		EvaluatorTimeout: timeout,
		Tracer:           observability.NewTracer(256),
		Now:              time.Now,
		idx:              newCacheIndex(),
	}
}

// Optimize runs one optimization end to end: enqueue a traceable task,
// validate the interaction mode, consult the cache (a hit finishes that
// task at once), dispatch the chosen strategy, evaluate the initial and
// final configurations, and record the result. The task is enqueued
// before the cache lookup, so a cache hit also creates a task.
func (o *Orchestrator) Optimize(ctx context.Context, req domain.OptimizeRequest) domain.OptimizeResult {
	start := o.Now()
	ctx = observability.WithTraceID(ctx, "")

	result := o.optimize(ctx, req, start)

	observability.OptimizationDuration.WithLabelValues(string(req.Strategy), result.Status).
		Observe(o.Now().Sub(start).Seconds())
	if result.Iterations > 0 {
		observability.StrategyIterations.WithLabelValues(string(req.Strategy), req.ToolName).
			Add(float64(result.Iterations))
	}
	observability.QueueDepth.Set(float64(o.Queue.Stats().Pending))
	stats := o.Cache.Stats()
	observability.CacheHitRatio.Set(observability.CacheRatio(stats.Hits, stats.Misses))
	return result
}

func (o *Orchestrator) optimize(ctx context.Context, req domain.OptimizeRequest, start time.Time) domain.OptimizeResult {
	if req.ToolName == "" {
		return errorResult("", req.InteractionMode, domain.ErrEmptyToolName)
	}
	if len(req.TargetMetrics) == 0 {
		return errorResult("", req.InteractionMode, domain.ErrNoTargetMetrics)
	}
	runner, ok := o.Strategies[req.Strategy]
	if !ok {
		return errorResult("", req.InteractionMode, domain.ErrUnknownStrategy)
	}
	descriptors, err := o.Registry.DescriptorsFor(req.ToolName)
	if err != nil {
		return errorResult("", req.InteractionMode, err)
	}

	taskID := o.Queue.Add(req.ToolName, req.InitialParams, req.ProjectID, enqueuePriority)
	o.Bus.Publish(domain.ProgressEvent{
		TaskID: taskID, ToolName: req.ToolName, ProjectID: req.ProjectID,
		Stage: domain.StageTaskQueued, Progress: 0, Timestamp: o.Now(),
	})

	mode, downgraded := o.resolveMode(req.ToolName, req.InteractionMode)
	if downgraded {
		o.Bus.Publish(domain.ProgressEvent{
			TaskID: taskID, ToolName: req.ToolName, ProjectID: req.ProjectID,
			Stage: domain.StageModeDowngraded, Progress: 0,
			Message:   "mode " + string(req.InteractionMode) + " unsupported for " + req.ToolName + ", downgraded to professional",
			Timestamp: o.Now(),
		})
	}
	confidentiality := req.Confidentiality || o.Config.Holomesh.InteractionModes[string(mode)].DefaultConfidentiality

	cacheKey := cache.ScopedKey(o.Config.Cache.CachePrefix, req.ToolName, req.ProjectID, req.InitialParams)
	if entry, hit := o.Cache.Get(cacheKey); hit {
		o.Bus.Publish(domain.ProgressEvent{
			TaskID: taskID, ToolName: req.ToolName, ProjectID: req.ProjectID,
			Stage: domain.StageCachedConfigFound, Progress: 1, Timestamp: o.Now(),
		})
		result := domain.OptimizeResult{
			Status:                 "success",
			ProcessID:              taskID,
			OptimizedParams:        entry.OptimizedParams,
			FinalMetrics:           entry.FinalMetrics,
			Method:                 "cached",
			Iterations:             0,
			ConfidenceScore:        0.95,
			ExecutionTime:          o.Now().Sub(start),
			InteractionMode:        mode,
			ConfidentialityEnabled: confidentiality,
		}
		o.Queue.Finish(taskID, &result, nil)
		return result
	}

	in := strategy.Input{
		ToolName:      req.ToolName,
		ProjectID:     req.ProjectID,
		TaskID:        taskID,
		InitialParams: req.InitialParams,
		Targets:       req.TargetMetrics,
		Budget:        req.Budget,
		Descriptors:   descriptors,
		Mode:          mode,
	}
	runCtx, endRun := o.Tracer.StartSpan(ctx, "strategy_run", map[string]string{
		"tool": req.ToolName, "strategy": string(req.Strategy),
	})
	out, err := runner.Run(runCtx, in)
	endRun()
	if err != nil {
		o.Queue.Finish(taskID, nil, err)
		o.Bus.Publish(domain.ProgressEvent{
			TaskID: taskID, ToolName: req.ToolName, ProjectID: req.ProjectID,
			Stage: domain.StageOptimizationFailed, Progress: 1, Message: err.Error(), Timestamp: o.Now(),
		})
		return domain.OptimizeResult{
			Status:          "error",
			ProcessID:       taskID,
			Message:         err.Error(),
			InteractionMode: mode,
			ExecutionTime:   o.Now().Sub(start),
		}
	}

	initialMetrics := o.evaluate(ctx, req.ToolName, req.InitialParams, req.TargetMetrics)
	finalMetrics := o.evaluate(ctx, req.ToolName, out.Params, req.TargetMetrics)
	improvement := computeImprovement(req.TargetMetrics, initialMetrics, finalMetrics)

	if !confidentiality {
		o.Cache.Put(cacheKey, domain.CacheEntry{
			OptimizedParams: out.Params,
			FinalMetrics:    finalMetrics,
			CreatedAt:       o.Now(),
		}, o.Config.CacheTTL())
		o.idx.add(req.ToolName, req.ProjectID, cacheKey)
		o.recordSimilarity(req, out)
	}

	var info *domain.StrategyInfo
	if out.Info != (domain.StrategyInfo{}) || downgraded {
		si := out.Info
		si.ModeDowngraded = downgraded
		info = &si
	}

	result := domain.OptimizeResult{
		Status:                 "success",
		ProcessID:              taskID,
		OptimizedParams:        out.Params,
		FinalMetrics:           finalMetrics,
		Method:                 out.Method,
		Iterations:             out.Iterations,
		ConfidenceScore:        out.Confidence,
		ExecutionTime:          o.Now().Sub(start),
		InteractionMode:        mode,
		ConfidentialityEnabled: confidentiality,
		Improvement:            improvement,
		StrategyInfo:           info,
	}
	o.Queue.Finish(taskID, &result, nil)
	o.Bus.Publish(domain.ProgressEvent{
		TaskID: taskID, ToolName: req.ToolName, ProjectID: req.ProjectID,
		Stage: domain.StageOptimizationCompleted, Progress: 1, Timestamp: o.Now(),
		Metrics: map[string]float64{"confidence_score": out.Confidence},
	})
	return result
}

func errorResult(processID string, mode domain.InteractionMode, err error) domain.OptimizeResult {
	return domain.OptimizeResult{Status: "error", ProcessID: processID, Message: err.Error(), InteractionMode: mode}
}

// resolveMode validates mode against the tool's configured supported modes,
// downgrading silently to professional when unsupported.
func (o *Orchestrator) resolveMode(toolName string, mode domain.InteractionMode) (domain.InteractionMode, bool) {
	if mode == "" {
		mode = domain.ModeProfessional
	}
	tool, ok := o.Config.Tools[toolName]
	if !ok {
		return mode, false
	}
	for _, m := range tool.SupportedModes {
		if domain.InteractionMode(m) == mode {
			return mode, false
		}
	}
	return domain.ModeProfessional, true
}

// evaluate runs the evaluator under EvaluatorTimeout, substituting a
// worst-case metric map on timeout so the caller can proceed.
func (o *Orchestrator) evaluate(ctx context.Context, toolName string, params domain.ParamMap, targets domain.TargetMetrics) map[string]float64 {
	cctx, cancel := context.WithTimeout(ctx, o.EvaluatorTimeout)
	defer cancel()

	ectx, endEval := o.Tracer.StartSpan(cctx, "evaluate", map[string]string{"tool": toolName})
	metrics, err := o.Eval.Evaluate(ectx, toolName, params)
	endEval()
	if err != nil {
		log.Printf("[orchestrator] evaluator call failed for tool=%s: %v, substituting worst-case metrics", toolName, err)
		observability.EvaluatorFailures.WithLabelValues(toolName).Inc()
		return worstCaseMetrics(targets)
	}
	return metrics
}

// worstCaseMetrics places every target metric maximally far from its
// target value so a timed-out evaluation degrades the run rather than
// silently looking perfect.
func worstCaseMetrics(targets domain.TargetMetrics) map[string]float64 {
	out := make(map[string]float64, len(targets))
	for name, target := range targets {
		out[name] = target + 1e6
	}
	return out
}

// computeImprovement reports, per target metric, how much closer the
// optimized observation landed relative to the initial one:
// (|initial−target| − |final−target|) / |initial−target|. Metrics whose
// initial observation already sits on the target are omitted.
func computeImprovement(targets domain.TargetMetrics, initial, final map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(targets))
	for name, target := range targets {
		iv, iok := initial[name]
		fv, fok := final[name]
		if !iok || !fok {
			continue
		}
		denom := absf(iv - target)
		if denom == 0 {
			continue
		}
		out[name] = (denom - absf(fv-target)) / denom
	}
	return out
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// recordSimilarity persists a successful, non-confidential run to the
// project database so future Transfer Learning / GetRecommendations calls
// can find it. Confidential runs never reach here.
func (o *Orchestrator) recordSimilarity(req domain.OptimizeRequest, out strategy.Output) {
	o.DB.Record(similarity.Record{
		ProjectID:     req.ProjectID,
		ToolName:      req.ToolName,
		OptimalConfig: out.Params,
		Context:       map[string]string{"tool_name": req.ToolName},
	})
}

// GetRecommendations looks up configurations from similar projects,
// falling back to the tool's configured default parameters when the
// project database has nothing comparable.
func (o *Orchestrator) GetRecommendations(ctx context.Context, toolName string, projectContext map[string]string) (domain.RecommendationResult, error) {
	if _, err := o.Registry.DescriptorsFor(toolName); err != nil {
		return domain.RecommendationResult{}, err
	}

	similar := o.DB.FindSimilar("", toolName, projectContext)
	if len(similar) > 0 {
		return domain.RecommendationResult{
			Params:              strategy.MergeSimilarConfigs(similar),
			ConfidenceScore:     0.85,
			Source:              "similar_projects",
			SimilarProjectsUsed: len(similar),
		}, nil
	}

	def, _ := o.Registry.Lookup(toolName)
	confidence := 0.75
	if o.Config.Holomesh.InteractionModes["manual"].HolomeshIntegration {
		confidence = 0.80
	}
	return domain.RecommendationResult{
		Params:              def.DefaultParameters.Clone(),
		ConfidenceScore:     confidence,
		Source:              "default_parameters",
		SimilarProjectsUsed: 0,
	}, nil
}

// InvalidateCache routes three ways: (tool, project) deletes the one
// scoped key, tool alone deletes by prefix pattern, neither flushes
// everything. A project without a tool invalidates nothing.
func (o *Orchestrator) InvalidateCache(toolName, projectID string) int {
	switch {
	case toolName != "" && projectID != "":
		keys := o.idx.take(toolName, projectID)
		n := 0
		for _, k := range keys {
			if o.Cache.InvalidateKey(k) {
				n++
			}
		}
		return n
	case toolName != "":
		o.idx.dropTool(toolName)
		return o.Cache.Invalidate(o.Config.Cache.CachePrefix + toolName + ":")
	case projectID != "":
		return 0
	default:
		o.idx.reset()
		return o.Cache.Flush()
	}
}

// CacheStats reports the cache backend's current counters.
func (o *Orchestrator) CacheStats() domain.CacheStats {
	return o.Cache.Stats()
}

// cacheIndex tracks which fingerprints were written for a given
// (tool_name, project_id) pair. The cache's own key is a hash over
// (tool_name, project_id[:8], params), so a caller
// asking InvalidateCache(tool, project) without repeating the original
// params has no way to recompute that hash. The orchestrator keeps this
// small side index, populated on every non-confidential Put, purely to
// serve that one exact-key lookup; the cache backend itself stays ignorant
// of project scoping.
type cacheIndex struct {
	mu   sync.Mutex
	byTP map[string]map[string]struct{} // "tool|project" -> set of fingerprints
}

func newCacheIndex() cacheIndex {
	return cacheIndex{byTP: make(map[string]map[string]struct{})}
}

func indexKey(toolName, projectID string) string { return toolName + "|" + projectID }

func (c *cacheIndex) add(toolName, projectID, fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := indexKey(toolName, projectID)
	set, ok := c.byTP[k]
	if !ok {
		set = make(map[string]struct{})
		c.byTP[k] = set
	}
	set[fingerprint] = struct{}{}
}

func (c *cacheIndex) take(toolName, projectID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := indexKey(toolName, projectID)
	set, ok := c.byTP[k]
	if !ok {
		return nil
	}
	delete(c.byTP, k)
	out := make([]string, 0, len(set))
	for fp := range set {
		out = append(out, fp)
	}
	return out
}

func (c *cacheIndex) dropTool(toolName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := toolName + "|"
	for k := range c.byTP {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.byTP, k)
		}
	}
}

func (c *cacheIndex) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byTP = make(map[string]map[string]struct{})
}
