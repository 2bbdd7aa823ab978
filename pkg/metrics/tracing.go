package metrics

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Tracer starts spans around engine operations. Implementations include
// NoOpTracer, SimpleTracer and OTelTracer.
type Tracer interface {
	// StartSpan returns a context carrying the new span and a function that
	// ends it. Pass the operation's error (or nil) to the ender.
	StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, SpanEnder)
}

// SpanEnder ends a span. A non-nil error marks the span as failed.
type SpanEnder func(err error)

// SpanOption configures a span.
type SpanOption func(*spanConfig)

type spanConfig struct {
	kind       SpanKind
	attributes map[string]any
}

func newSpanConfig(opts []SpanOption) *spanConfig {
	cfg := &spanConfig{kind: SpanKindInternal, attributes: map[string]any{}}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// SpanKind identifies the role of a span.
type SpanKind int

const (
	SpanKindInternal SpanKind = iota
	SpanKindServer
	SpanKindClient
)

// WithSpanKind sets the span kind.
func WithSpanKind(kind SpanKind) SpanOption {
	return func(c *spanConfig) { c.kind = kind }
}

// WithAttributes merges attrs into the span attributes.
func WithAttributes(attrs map[string]any) SpanOption {
	return func(c *spanConfig) {
		for k, v := range attrs {
			c.attributes[k] = v
		}
	}
}

// --- NoOp Tracer ---

// NoOpTracer discards all spans.
type NoOpTracer struct{}

func (NoOpTracer) StartSpan(ctx context.Context, _ string, _ ...SpanOption) (context.Context, SpanEnder) {
	return ctx, func(error) {}
}

// --- Simple Tracer ---

// SimpleTracer keeps finished spans in memory. Intended for tests and the
// CLI's debug output.
type SimpleTracer struct {
	mu    sync.Mutex
	spans []RecordedSpan
	ids   atomic.Uint64
}

// RecordedSpan is a finished span.
type RecordedSpan struct {
	Name       string
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Kind       SpanKind
	Attributes map[string]any
	Error      error
	TraceID    string
	SpanID     string
	ParentID   string
}

func NewSimpleTracer() *SimpleTracer {
	return &SimpleTracer{}
}

func (t *SimpleTracer) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, SpanEnder) {
	cfg := newSpanConfig(opts)

	span := &RecordedSpan{
		Name:       name,
		StartTime:  time.Now(),
		Kind:       cfg.kind,
		Attributes: cfg.attributes,
		SpanID:     t.nextID(),
	}
	if parent := spanFromContext(ctx); parent != nil {
		span.ParentID = parent.SpanID
		span.TraceID = parent.TraceID
	} else {
		span.TraceID = t.nextID()
	}

	var once sync.Once
	return contextWithSpan(ctx, span), func(err error) {
		once.Do(func() {
			span.EndTime = time.Now()
			span.Duration = span.EndTime.Sub(span.StartTime)
			span.Error = err

			t.mu.Lock()
			t.spans = append(t.spans, *span)
			t.mu.Unlock()
		})
	}
}

func (t *SimpleTracer) nextID() string {
	return fmt.Sprintf("%016x", t.ids.Add(1))
}

// Spans returns a copy of the finished spans in completion order.
func (t *SimpleTracer) Spans() []RecordedSpan {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]RecordedSpan(nil), t.spans...)
}

// Reset discards finished spans.
func (t *SimpleTracer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spans = nil
}

type spanContextKey struct{}

func contextWithSpan(ctx context.Context, span *RecordedSpan) context.Context {
	return context.WithValue(ctx, spanContextKey{}, span)
}

func spanFromContext(ctx context.Context) *RecordedSpan {
	span, _ := ctx.Value(spanContextKey{}).(*RecordedSpan)
	return span
}

// --- Global Tracer ---

type tracerHolder struct{ Tracer }

var globalTracer atomic.Pointer[tracerHolder]

func init() {
	globalTracer.Store(&tracerHolder{NoOpTracer{}})
}

// SetTracer replaces the process-wide tracer. nil restores NoOpTracer.
func SetTracer(t Tracer) {
	if t == nil {
		t = NoOpTracer{}
	}
	globalTracer.Store(&tracerHolder{t})
}

// GetTracer returns the process-wide tracer.
func GetTracer() Tracer {
	return globalTracer.Load().Tracer
}

// StartSpan starts a span on the process-wide tracer.
func StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, SpanEnder) {
	return GetTracer().StartSpan(ctx, name, opts...)
}

// Span names emitted by the engine.
const (
	SpanInit          = "dh.init"
	SpanGenerate      = "dh.generate"
	SpanCompute       = "dh.compute"
	SpanPrecompute    = "dh.precompute_batch"
	SpanKeyPoolFill   = "dh.keypool.fill"
	SpanSelfTest      = "dh.selftest"
	SpanExchangeRound = "dh.exchange"
)

// SpanAttributes are the attributes the engine attaches to its spans.
type SpanAttributes struct {
	Operation string
	CacheHit  bool
	Slot      int // -1 when not applicable
	BatchSize int
	Produced  int
	Error     string
}

// ToMap converts a to a tracer attribute map, omitting zero values.
func (a SpanAttributes) ToMap() map[string]any {
	m := map[string]any{}
	if a.Operation != "" {
		m["dh.operation"] = a.Operation
	}
	if a.Slot >= 0 {
		m["dh.cache.slot"] = a.Slot
		m["dh.cache.hit"] = a.CacheHit
	}
	if a.BatchSize > 0 {
		m["dh.batch.requested"] = a.BatchSize
		m["dh.batch.produced"] = a.Produced
	}
	if a.Error != "" {
		m["error.message"] = a.Error
	}
	return m
}
