package metrics

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/sync/errgroup"
)

func spansNamed(spans []RecordedSpan, name string) []RecordedSpan {
	var out []RecordedSpan
	for _, s := range spans {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

func TestNoOpTracerKeepsContext(t *testing.T) {
	ctx := context.Background()
	got, end := NoOpTracer{}.StartSpan(ctx, SpanCompute)
	if got != ctx {
		t.Error("NoOpTracer should return the caller's context")
	}
	end(errors.New("weak value"))
}

func TestSimpleTracerComputeSpan(t *testing.T) {
	tracer := NewSimpleTracer()
	attrs := SpanAttributes{Operation: "compute", CacheHit: true, Slot: 17}

	_, end := tracer.StartSpan(context.Background(), SpanCompute, WithAttributes(attrs.ToMap()))
	end(nil)

	spans := tracer.Spans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name != SpanCompute || s.Kind != SpanKindInternal {
		t.Errorf("name/kind = %s/%v", s.Name, s.Kind)
	}
	if s.Attributes["dh.cache.slot"] != 17 || s.Attributes["dh.cache.hit"] != true {
		t.Errorf("attributes = %v", s.Attributes)
	}
	if s.TraceID == "" || s.SpanID == "" || s.ParentID != "" {
		t.Errorf("ids trace=%q span=%q parent=%q", s.TraceID, s.SpanID, s.ParentID)
	}
	if s.EndTime.Before(s.StartTime) || s.Duration < 0 {
		t.Error("span ended before it started")
	}
}

func TestSimpleTracerBatchNesting(t *testing.T) {
	tracer := NewSimpleTracer()

	ctx, endBatch := tracer.StartSpan(context.Background(), SpanPrecompute)
	for range 2 {
		_, endGen := tracer.StartSpan(ctx, SpanGenerate)
		endGen(nil)
	}
	endBatch(nil)

	spans := tracer.Spans()
	names := make([]string, len(spans))
	for i, s := range spans {
		names[i] = s.Name
	}
	if want := []string{SpanGenerate, SpanGenerate, SpanPrecompute}; !reflect.DeepEqual(names, want) {
		t.Fatalf("completion order = %v, want %v", names, want)
	}

	batch := spans[2]
	for _, gen := range spansNamed(spans, SpanGenerate) {
		if gen.ParentID != batch.SpanID || gen.TraceID != batch.TraceID {
			t.Errorf("generate span not parented to the batch: %+v", gen)
		}
	}
	if spans[0].SpanID == spans[1].SpanID {
		t.Error("sibling spans share an ID")
	}
}

func TestSimpleTracerRecordsFailure(t *testing.T) {
	tracer := NewSimpleTracer()
	weak := errors.New("weak value")

	_, end := tracer.StartSpan(context.Background(), SpanGenerate)
	end(weak)
	end(nil)

	spans := tracer.Spans()
	if len(spans) != 1 {
		t.Fatalf("span recorded %d times", len(spans))
	}
	if !errors.Is(spans[0].Error, weak) {
		t.Errorf("span error = %v", spans[0].Error)
	}
}

func TestSimpleTracerReset(t *testing.T) {
	tracer := NewSimpleTracer()
	for _, name := range []string{SpanInit, SpanSelfTest, SpanExchangeRound} {
		_, end := tracer.StartSpan(context.Background(), name)
		end(nil)
	}
	tracer.Reset()
	if n := len(tracer.Spans()); n != 0 {
		t.Errorf("%d spans left after Reset", n)
	}
}

func TestGlobalTracer(t *testing.T) {
	prev := GetTracer()
	t.Cleanup(func() { SetTracer(prev) })

	simple := NewSimpleTracer()
	SetTracer(simple)
	_, end := StartSpan(context.Background(), SpanKeyPoolFill)
	end(nil)
	if got := spansNamed(simple.Spans(), SpanKeyPoolFill); len(got) != 1 {
		t.Errorf("global StartSpan recorded %d fill spans", len(got))
	}

	SetTracer(nil)
	if _, ok := GetTracer().(NoOpTracer); !ok {
		t.Error("SetTracer(nil) should restore NoOpTracer")
	}
}

func TestSpanAttributesToMap(t *testing.T) {
	tests := []struct {
		name  string
		attrs SpanAttributes
		want  map[string]any
	}{
		{
			name:  "cache hit",
			attrs: SpanAttributes{Operation: "compute", CacheHit: true, Slot: 17},
			want:  map[string]any{"dh.operation": "compute", "dh.cache.slot": 17, "dh.cache.hit": true},
		},
		{
			name:  "cache miss in slot zero",
			attrs: SpanAttributes{Operation: "compute", Slot: 0},
			want:  map[string]any{"dh.operation": "compute", "dh.cache.slot": 0, "dh.cache.hit": false},
		},
		{
			name:  "generation",
			attrs: SpanAttributes{Operation: "generate", Slot: -1},
			want:  map[string]any{"dh.operation": "generate"},
		},
		{
			name:  "short batch",
			attrs: SpanAttributes{Slot: -1, BatchSize: 8, Produced: 6, Error: "precomputed 6 of 8 key pairs"},
			want: map[string]any{
				"dh.batch.requested": 8,
				"dh.batch.produced":  6,
				"error.message":      "precomputed 6 of 8 key pairs",
			},
		},
		{
			name:  "empty",
			attrs: SpanAttributes{Slot: -1},
			want:  map[string]any{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.attrs.ToMap(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ToMap() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSpanNames(t *testing.T) {
	names := []string{
		SpanInit,
		SpanGenerate,
		SpanCompute,
		SpanPrecompute,
		SpanKeyPoolFill,
		SpanSelfTest,
		SpanExchangeRound,
	}

	seen := map[string]bool{}
	for _, name := range names {
		if !strings.HasPrefix(name, "dh.") {
			t.Errorf("span name %q should be in the dh namespace", name)
		}
		if seen[name] {
			t.Errorf("duplicate span name %q", name)
		}
		seen[name] = true
	}
}

func TestOTelTracerWithoutProvider(t *testing.T) {
	tracer := NewOTelTracer("")
	ctx, end := tracer.StartSpan(context.Background(), SpanGenerate,
		WithSpanKind(SpanKindClient),
		WithAttributes(map[string]any{"dh.cache.slot": 3, "ok": true, "ratio": 0.5, "n": uint64(7)}))
	if ctx == nil {
		t.Fatal("expected non-nil context")
	}
	end(errors.New("boom"))
}

func TestSimpleTracerConcurrentExchanges(t *testing.T) {
	tracer := NewSimpleTracer()

	var g errgroup.Group
	for range 8 {
		g.Go(func() error {
			for range 50 {
				ctx, endRound := tracer.StartSpan(context.Background(), SpanExchangeRound)
				_, end := tracer.StartSpan(ctx, SpanCompute)
				end(nil)
				endRound(nil)
			}
			return nil
		})
	}
	_ = g.Wait()

	spans := tracer.Spans()
	if got := len(spansNamed(spans, SpanCompute)); got != 400 {
		t.Errorf("compute spans = %d, want 400", got)
	}
	if got := len(spansNamed(spans, SpanExchangeRound)); got != 400 {
		t.Errorf("exchange spans = %d, want 400", got)
	}
	ids := map[string]bool{}
	for _, s := range spans {
		if ids[s.SpanID] {
			t.Fatalf("duplicate span ID %s", s.SpanID)
		}
		ids[s.SpanID] = true
	}
}
