package metrics

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestObserver(t *testing.T) (*EngineObserver, *SimpleTracer, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	tracer := NewSimpleTracer()
	o := NewEngineObserver(EngineObserverConfig{
		Collector: NewCollector(nil),
		Tracer:    tracer,
		Logger:    TestLogger(&buf),
	})
	return o, tracer, &buf
}

func TestEngineObserverGenerate(t *testing.T) {
	o, tracer, _ := newTestObserver(t)

	_, done := o.OnGenerate(context.Background())
	done(nil)
	_, done = o.OnGenerate(context.Background())
	done(errors.New("weak"))

	snap := o.Collector().Snapshot()
	if snap.TotalDHGenerations != 1 || snap.FastPathOperations != 1 {
		t.Errorf("expected one successful generation, got %+v", snap)
	}
	if snap.FallbackOperations != 1 {
		t.Errorf("expected one fallback, got %d", snap.FallbackOperations)
	}

	spans := tracer.Spans()
	if len(spans) != 2 || spans[0].Name != SpanGenerate {
		t.Fatalf("unexpected spans %+v", spans)
	}
	if spans[1].Error == nil {
		t.Error("failed generation should mark its span")
	}
}

func TestEngineObserverCompute(t *testing.T) {
	tests := []struct {
		name    string
		outcome ComputeOutcome
		err     error
		check   func(Snapshot) bool
	}{
		{"hit", ComputeOutcome{CacheHit: true}, nil, func(s Snapshot) bool {
			return s.CachedResultsUsed == 1 && s.TotalDHGenerations == 0 && s.CacheMisses == 0
		}},
		{"miss", ComputeOutcome{}, nil, func(s Snapshot) bool {
			return s.CacheMisses == 1 && s.TotalDHGenerations == 1 && s.FastPathOperations == 1 && s.CacheEvictions == 0
		}},
		{"miss with eviction", ComputeOutcome{Evicted: true}, nil, func(s Snapshot) bool {
			return s.CacheMisses == 1 && s.CacheEvictions == 1
		}},
		{"error", ComputeOutcome{}, errors.New("weak"), func(s Snapshot) bool {
			return s.FallbackOperations == 1 && s.CacheMisses == 0 && s.CachedResultsUsed == 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, tracer, _ := newTestObserver(t)
			_, done := o.OnCompute(context.Background(), 42)
			done(tt.outcome, tt.err)

			if snap := o.Collector().Snapshot(); !tt.check(snap) {
				t.Errorf("unexpected counters %+v", snap)
			}
			spans := tracer.Spans()
			if len(spans) != 1 || spans[0].Attributes["dh.cache.slot"] != 42 {
				t.Errorf("expected compute span tagged with slot 42, got %+v", spans)
			}
		})
	}
}

func TestEngineObserverModExp(t *testing.T) {
	o, _, _ := newTestObserver(t)
	o.OnModExp(2 * time.Millisecond)

	snap := o.Collector().Snapshot()
	if snap.MontgomeryReductions != 1 {
		t.Errorf("expected 1 montgomery reduction, got %d", snap.MontgomeryReductions)
	}
	if snap.ModExpLatency.Count != 1 {
		t.Errorf("expected 1 latency sample, got %d", snap.ModExpLatency.Count)
	}
}

func TestEngineObserverPrecompute(t *testing.T) {
	o, tracer, _ := newTestObserver(t)

	_, done := o.OnPrecompute(context.Background(), 4)
	done(4)
	_, done = o.OnPrecompute(context.Background(), 4)
	done(3)

	spans := tracer.Spans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Error != nil {
		t.Error("full batch should not be marked failed")
	}
	if spans[1].Error == nil || !strings.Contains(spans[1].Error.Error(), "3 of 4") {
		t.Errorf("short batch should be marked failed, got %v", spans[1].Error)
	}
}

func TestEngineObserverLogging(t *testing.T) {
	o, _, buf := newTestObserver(t)

	_, done := o.OnInit(context.Background())
	done(nil)
	o.OnPrecomputedUsed()
	o.OnCleanup()

	out := buf.String()
	for _, want := range []string{"[dh] engine initialized", "engine stats", "precomputed=1", "engine cleaned up"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in log output:\n%s", want, out)
		}
	}
	if strings.Index(out, "engine stats") > strings.Index(out, "engine cleaned up") {
		t.Error("summary should be logged before the cleanup line")
	}
}

func TestEngineObserverSelfTest(t *testing.T) {
	o, tracer, buf := newTestObserver(t)

	ctx, doneInit := o.OnInit(context.Background())
	_, doneSelf := o.OnSelfTest(ctx)
	doneSelf(errors.New("pairwise: shared secrets differ"))
	doneInit(errors.New("init failed"))

	spans := tracer.Spans()
	if len(spans) != 2 || spans[0].Name != SpanSelfTest || spans[1].Name != SpanInit {
		t.Fatalf("unexpected spans %+v", spans)
	}
	if spans[0].ParentID != spans[1].SpanID {
		t.Error("self-test span should be a child of the init span")
	}
	if !strings.Contains(buf.String(), "self-test failed") {
		t.Errorf("expected self-test failure in log:\n%s", buf.String())
	}
	if o.Collector().Snapshot().FallbackOperations != 0 {
		t.Error("self-test must not touch the counters")
	}
}

func TestEngineObserverDefaults(t *testing.T) {
	o := NewEngineObserver(EngineObserverConfig{})
	if o.Collector() != Global() {
		t.Error("nil collector should default to Global()")
	}
	if o.Logger() == nil {
		t.Error("expected a logger")
	}
}
