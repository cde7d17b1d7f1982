package observability

import (
	"context"
	"testing"
)

func TestTracerRecordsSpanWithDuration(t *testing.T) {
	tr := NewTracer(4)
	ctx, end := tr.StartSpan(context.Background(), "optimize", map[string]string{"tool": "yosys"})
	_ = ctx
	end()

	if tr.SpanCount() != 1 {
		t.Fatalf("SpanCount() = %d, want 1", tr.SpanCount())
	}
	spans := tr.Spans()
	if spans[0].Name != "optimize" {
		t.Errorf("span name = %q, want optimize", spans[0].Name)
	}
	if spans[0].Tags["tool"] != "yosys" {
		t.Errorf("span tag tool = %q, want yosys", spans[0].Tags["tool"])
	}
}

func TestTracerWrapsAtCapacity(t *testing.T) {
	tr := NewTracer(2)
	for i := 0; i < 5; i++ {
		_, end := tr.StartSpan(context.Background(), "span", nil)
		end()
	}
	if tr.SpanCount() != 2 {
		t.Errorf("SpanCount() = %d, want 2 (capacity)", tr.SpanCount())
	}
	if len(tr.Spans()) != 2 {
		t.Errorf("len(Spans()) = %d, want 2", len(tr.Spans()))
	}
}

func TestTracerResetClearsSpans(t *testing.T) {
	tr := NewTracer(4)
	_, end := tr.StartSpan(context.Background(), "span", nil)
	end()
	tr.Reset()
	if tr.SpanCount() != 0 {
		t.Errorf("SpanCount() after Reset = %d, want 0", tr.SpanCount())
	}
}

func TestCacheRatioAvoidsDivideByZero(t *testing.T) {
	if r := CacheRatio(0, 0); r != 0 {
		t.Errorf("CacheRatio(0,0) = %v, want 0", r)
	}
	if r := CacheRatio(3, 1); r != 0.75 {
		t.Errorf("CacheRatio(3,1) = %v, want 0.75", r)
	}
}
