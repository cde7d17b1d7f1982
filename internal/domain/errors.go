package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure: no infrastructure dependency.

var (
	// Parameter space errors
	ErrUnknownTool       = errors.New("unknown tool")
	ErrUnknownParameter  = errors.New("parameter has no descriptor")
	ErrInvalidDescriptor = errors.New("invalid parameter descriptor")

	// Request validation errors
	ErrEmptyToolName   = errors.New("tool_name must not be empty")
	ErrNoTargetMetrics = errors.New("target_metrics must not be empty")
	ErrUnknownStrategy = errors.New("unknown optimization strategy")

	// Task queue errors
	ErrTaskNotFound   = errors.New("task not found")
	ErrTaskNotPending = errors.New("task is not pending, cannot cancel")
	ErrQueueClosed    = errors.New("task queue is shut down")

	// Cache errors
	ErrCacheMiss = errors.New("cache miss")

	// Strategy / surrogate errors
	ErrEmptyBudget        = errors.New("optimization budget must be > 0")
	ErrSurrogateNumerical = errors.New("surrogate model numerical failure")

	// Evaluator errors
	ErrEvaluatorTimeout = errors.New("evaluator call timed out")

	// Progress bus errors
	ErrUnknownSubscriber = errors.New("subscriber not found for task")
)
