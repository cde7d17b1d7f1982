// Package progressbus multiplexes per-task progress events to subscribed
// clients: channel-per-client, drop-if-slow delivery, one hub per task,
// with the per-task lock the ordering invariant requires.
package progressbus

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/holomesh/cadopt/internal/domain"
)

// subscriberBufferSize bounds each subscriber's channel; publication to a
// full channel drops the message for that subscriber rather than blocking
// the publisher; publication never blocks on a subscriber send.
const subscriberBufferSize = 32

type taskHub struct {
	mu          sync.Mutex
	subscribers map[string]chan domain.ProgressEvent
	latest      *domain.ProgressEvent
}

// Bus is the progress bus: one taskHub per task_id, created lazily and
// never torn down automatically (callers may call Forget once a task
// reaches a terminal state and all interested subscribers have
// disconnected).
type Bus struct {
	mu   sync.Mutex
	hubs map[string]*taskHub

	// Now is an injectable clock for testing.
	Now func() time.Time
}

// New constructs an empty progress bus.
func New() *Bus {
	return &Bus{hubs: make(map[string]*taskHub), Now: time.Now}
}

func (b *Bus) hubFor(taskID string) *taskHub {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.hubs[taskID]
	if !ok {
		h = &taskHub{subscribers: make(map[string]chan domain.ProgressEvent)}
		b.hubs[taskID] = h
	}
	return h
}

// Subscribe registers a new subscriber for taskID and returns its event
// channel plus an unsubscribe function. The current latest(taskID) event
// is replayed as catch-up, or a synthetic {stage: connected, progress: 0}
// event if none has published yet.
func (b *Bus) Subscribe(taskID string) (<-chan domain.ProgressEvent, func()) {
	h := b.hubFor(taskID)
	id := uuid.NewString()
	ch := make(chan domain.ProgressEvent, subscriberBufferSize)

	h.mu.Lock()
	h.subscribers[id] = ch
	var catchUp domain.ProgressEvent
	if h.latest != nil {
		catchUp = *h.latest
	} else {
		catchUp = domain.ProgressEvent{
			TaskID:    taskID,
			Stage:     domain.StageConnected,
			Progress:  0,
			Timestamp: b.Now(),
		}
	}
	h.mu.Unlock()

	select {
	case ch <- catchUp:
	default:
	}

	unsub := func() {
		h.mu.Lock()
		if c, ok := h.subscribers[id]; ok {
			delete(h.subscribers, id)
			close(c)
		}
		h.mu.Unlock()
	}
	return ch, unsub
}

// Publish atomically updates latest(task_id) and forwards the event to
// every current subscriber. Delivery is best-effort: a subscriber whose
// channel is full is skipped for this event rather than blocking the
// publisher, and the skipped event is not redelivered to it.
func (b *Bus) Publish(event domain.ProgressEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = b.Now()
	}
	h := b.hubFor(event.TaskID)

	h.mu.Lock()
	defer h.mu.Unlock()
	latest := event
	h.latest = &latest
	for _, ch := range h.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// Latest returns the most recently published event for taskID, if any.
func (b *Bus) Latest(taskID string) (domain.ProgressEvent, bool) {
	h := b.hubFor(taskID)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest == nil {
		return domain.ProgressEvent{}, false
	}
	return *h.latest, true
}

// BroadcastSystem publishes a system-wide notice to every task currently
// known to the bus, tagged with severity in its message.
func (b *Bus) BroadcastSystem(message, severity string) {
	b.mu.Lock()
	taskIDs := make([]string, 0, len(b.hubs))
	for id := range b.hubs {
		taskIDs = append(taskIDs, id)
	}
	b.mu.Unlock()

	for _, id := range taskIDs {
		b.Publish(domain.ProgressEvent{
			TaskID:   id,
			Stage:    domain.StageSystemBroadcast,
			Progress: 0,
			Message:  severity + ": " + message,
		})
	}
}

// Forget drops a task's hub, closing every remaining subscriber channel.
// Callers should only do this after a task reaches a terminal state.
func (b *Bus) Forget(taskID string) {
	b.mu.Lock()
	h, ok := b.hubs[taskID]
	if ok {
		delete(b.hubs, taskID)
	}
	b.mu.Unlock()
	if !ok {
		return
	}
	h.mu.Lock()
	for id, ch := range h.subscribers {
		delete(h.subscribers, id)
		close(ch)
	}
	h.mu.Unlock()
}
