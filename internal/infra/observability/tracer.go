// Package observability provides a ring-buffer span tracer and the
// process's Prometheus metrics.
package observability

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type spanIDKey struct{}
type traceIDKey struct{}

// WithTraceID attaches a trace id to ctx, generating one if traceID is empty.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		traceID = uuid.NewString()
	}
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// TraceIDFrom reads the trace id attached to ctx, or "" if none.
func TraceIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}

// Span is one timed, tagged unit of work recorded by the tracer.
type Span struct {
	ID        string
	TraceID   string
	Name      string
	Tags      map[string]string
	StartedAt time.Time
	EndedAt   time.Time
}

// Duration reports the span's elapsed wall time, zero if still open.
func (s Span) Duration() time.Duration {
	if s.EndedAt.IsZero() {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// Tracer is a fixed-capacity ring buffer of completed spans, enough for a
// local debug endpoint or test assertions without pulling in a full
// tracing backend; everything stays in-process.
type Tracer struct {
	mu       sync.Mutex
	capacity int
	spans    []Span
	next     int
	filled   bool
}

// NewTracer constructs a ring-buffer tracer holding up to capacity spans.
func NewTracer(capacity int) *Tracer {
	if capacity <= 0 {
		capacity = 256
	}
	return &Tracer{capacity: capacity, spans: make([]Span, capacity)}
}

// StartSpan begins a span with name and tags, returning a context carrying
// its id and a finish func to record its end time.
func (t *Tracer) StartSpan(ctx context.Context, name string, tags map[string]string) (context.Context, func()) {
	span := Span{
		ID:        uuid.NewString(),
		TraceID:   TraceIDFrom(ctx),
		Name:      name,
		Tags:      tags,
		StartedAt: time.Now(),
	}
	sctx := context.WithValue(ctx, spanIDKey{}, span.ID)
	return sctx, func() {
		span.EndedAt = time.Now()
		t.record(span)
	}
}

func (t *Tracer) record(span Span) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spans[t.next] = span
	t.next = (t.next + 1) % t.capacity
	if t.next == 0 {
		t.filled = true
	}
}

// Spans returns every currently retained span, oldest first.
func (t *Tracer) Spans() []Span {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.filled {
		out := make([]Span, t.next)
		copy(out, t.spans[:t.next])
		return out
	}
	out := make([]Span, t.capacity)
	copy(out, t.spans[t.next:])
	copy(out[t.capacity-t.next:], t.spans[:t.next])
	return out
}

// SpanCount reports how many spans are currently retained.
func (t *Tracer) SpanCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.filled {
		return t.capacity
	}
	return t.next
}

// Reset discards every retained span.
func (t *Tracer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spans = make([]Span, t.capacity)
	t.next = 0
	t.filled = false
}
