package taskqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/holomesh/cadopt/internal/domain"
)

// Four tasks with priorities [1,5,3,5] and a single worker complete in
// order 5,5,3,1.
func TestPoolPriorityScheduling(t *testing.T) {
	var mu sync.Mutex
	var order []string
	release := make(chan struct{})

	handler := func(ctx context.Context, task *domain.Task) (*domain.OptimizeResult, error) {
		<-release
		mu.Lock()
		order = append(order, task.ID)
		mu.Unlock()
		return &domain.OptimizeResult{Status: "success"}, nil
	}

	cfg := DefaultConfig()
	cfg.Workers = 1
	pool := New(cfg, handler)

	idP1 := pool.Add("yosys", nil, "proj", 1)
	idP5a := pool.Add("yosys", nil, "proj", 5)
	idP3 := pool.Add("yosys", nil, "proj", 3)
	idP5b := pool.Add("yosys", nil, "proj", 5)

	pool.Start(context.Background())

	// Four tasks queued; release the handler four times, letting the
	// single worker drain them in priority order.
	for i := 0; i < 4; i++ {
		release <- struct{}{}
		time.Sleep(5 * time.Millisecond)
	}
	pool.Stop()

	want := []string{idP5a, idP5b, idP3, idP1}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != len(want) {
		t.Fatalf("completed %d tasks, want %d: %v", len(order), len(want), order)
	}
	for i, id := range want {
		if order[i] != id {
			t.Errorf("completion order[%d] = %s, want %s (full: %v)", i, order[i], id, order)
		}
	}
}

func TestPoolCancelOnlyAffectsPending(t *testing.T) {
	handler := func(ctx context.Context, task *domain.Task) (*domain.OptimizeResult, error) {
		return &domain.OptimizeResult{}, nil
	}
	cfg := DefaultConfig()
	cfg.Workers = 0 // no workers: tasks stay pending for this test
	pool := New(cfg, handler)

	id := pool.Add("yosys", nil, "proj", 1)
	if !pool.Cancel(id) {
		t.Fatal("expected cancel of pending task to succeed")
	}
	snap, ok := pool.Status(id)
	if !ok || snap.Status != domain.TaskCancelled {
		t.Errorf("expected cancelled status, got %+v ok=%v", snap, ok)
	}
	if pool.Cancel(id) {
		t.Error("expected second cancel of already-cancelled task to fail")
	}
}

func TestPoolTaskIDsAreUnique(t *testing.T) {
	handler := func(ctx context.Context, task *domain.Task) (*domain.OptimizeResult, error) {
		return &domain.OptimizeResult{}, nil
	}
	cfg := DefaultConfig()
	cfg.Workers = 0
	pool := New(cfg, handler)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := pool.Add("yosys", nil, "project-abcdefgh", 1)
		if seen[id] {
			t.Fatalf("duplicate task id generated: %s", id)
		}
		seen[id] = true
	}
}
