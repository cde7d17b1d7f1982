package taskqueue

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/holomesh/cadopt/internal/domain"
)

// Handler runs one task to completion, producing the result the worker
// attaches before transitioning the task to completed/failed.
type Handler func(ctx context.Context, task *domain.Task) (*domain.OptimizeResult, error)

// Config controls the worker pool.
type Config struct {
	// Workers is the number of concurrent workers sharing the queue
	// (default: 5).
	Workers int

	Boost BoostConfig

	// Now is an injectable clock for testing.
	Now func() time.Time
}

// DefaultConfig returns production defaults: 5 workers, starvation boost
// disabled.
func DefaultConfig() Config {
	return Config{Workers: 5, Boost: DefaultBoostConfig(), Now: time.Now}
}

// Pool is the priority task queue plus its bounded worker pool: one heap,
// one task map, mutations serialized by a single mutex. Workers hold the
// mutex only during enqueue/dequeue, never during execution.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	cfg     Config
	h       *heap
	tasks   map[string]*domain.Task
	handler Handler
	stopped bool
	seq     uint64

	wg sync.WaitGroup

	completed int64
	failed    int64
	cancelled int64
}

// New constructs a worker pool. handler is invoked once per dequeued
// pending task.
func New(cfg Config, handler Handler) *Pool {
	p := &Pool{
		cfg:     cfg,
		h:       newHeap(cfg.Boost, cfg.Now),
		tasks:   make(map[string]*domain.Task),
		handler: handler,
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Start launches cfg.Workers worker goroutines.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

// Stop signals every worker to exit once the queue drains of pending work
// and waits for them to return. Workers already running a task finish it
// first. Cooperative stop, no sentinel value needed in the heap.
func (p *Pool) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}

// Add enqueues a new task and returns its id. Task IDs follow
// tool_name_millisecondTimestamp_last4ProjectID_seq; the trailing
// per-process counter keeps ids unique under same-millisecond bursts.
func (p *Pool) Add(toolName string, params domain.ParamMap, projectID string, priority int) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.cfg.Now()
	id := p.nextID(toolName, projectID, now)
	task := &domain.Task{
		ID:        id,
		ToolName:  toolName,
		Params:    params,
		ProjectID: projectID,
		Priority:  priority,
		CreatedAt: now,
		Status:    domain.TaskPending,
	}
	p.tasks[id] = task
	p.h.push(task)
	p.cond.Signal()
	return id
}

func (p *Pool) nextID(toolName, projectID string, now time.Time) string {
	suffix := projectID
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	seq := atomic.AddUint64(&p.seq, 1)
	return fmt.Sprintf("%s_%d_%s_%d", toolName, now.UnixMilli(), suffix, seq)
}

// Finish directly transitions a task to a terminal state without routing it
// through a worker's dequeue/handler call. The orchestrator uses this when
// it runs a strategy synchronously on the caller's own goroutine instead of
// waiting for a worker to pick up the traceable entry Add produced. If a
// worker later dequeues the same id it observes a non-pending status and
// skips it, the same path already used for cancellation.
func (p *Pool) Finish(taskID string, result *domain.OptimizeResult, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.tasks[taskID]
	if !ok || t.Status.Terminal() {
		return
	}
	if err != nil {
		t.Status = domain.TaskFailed
		t.Error = err.Error()
		p.failed++
		return
	}
	t.Status = domain.TaskCompleted
	t.Result = result
	p.completed++
}

// Status returns a read-only snapshot of a task, or false if unknown.
func (p *Pool) Status(taskID string) (domain.Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.tasks[taskID]
	if !ok {
		return domain.Snapshot{}, false
	}
	return t.ToSnapshot(), true
}

// List returns snapshots of every task, optionally filtered by status.
func (p *Pool) List(statusFilter string) []domain.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]domain.Snapshot, 0, len(p.tasks))
	for _, t := range p.tasks {
		if statusFilter != "" && string(t.Status) != statusFilter {
			continue
		}
		out = append(out, t.ToSnapshot())
	}
	return out
}

// Cancel cancels a pending task. Only pending tasks may be cancelled;
// the heap entry is left in place and skipped lazily when a worker
// dequeues it.
func (p *Pool) Cancel(taskID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.tasks[taskID]
	if !ok || t.Status != domain.TaskPending {
		return false
	}
	t.Status = domain.TaskCancelled
	p.cancelled++
	return true
}

// Stats reports lifetime pool counters.
type Stats struct {
	Pending   int
	Completed int64
	Failed    int64
	Cancelled int64
}

// Stats returns a snapshot of the pool's lifetime counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Pending:   p.h.len(),
		Completed: p.completed,
		Failed:    p.failed,
		Cancelled: p.cancelled,
	}
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		task := p.dequeue()
		if task == nil {
			return
		}
		if task.Status != domain.TaskPending {
			continue // cancelled while queued; skip silently
		}
		p.run(ctx, task)
	}
}

func (p *Pool) dequeue() *domain.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if t, ok := p.h.pop(); ok {
			return t
		}
		if p.stopped {
			return nil
		}
		p.cond.Wait()
	}
}

func (p *Pool) run(ctx context.Context, task *domain.Task) {
	p.mu.Lock()
	task.Status = domain.TaskRunning
	p.mu.Unlock()

	log.Printf("[taskqueue] running task %s tool=%s priority=%d", task.ID, task.ToolName, task.Priority)

	result, err := p.handler(ctx, task)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		task.Status = domain.TaskFailed
		task.Error = err.Error()
		p.failed++
		log.Printf("[taskqueue] task %s failed: %v", task.ID, err)
		return
	}
	task.Status = domain.TaskCompleted
	task.Result = result
	p.completed++
}
