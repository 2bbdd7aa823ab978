package metrics

import (
	"context"
	"strconv"
	"time"
)

// EngineObserver bundles the collector, tracer and logger a Diffie-Hellman
// engine reports to. Each On* hook starts a span and returns the function
// that records the outcome.
type EngineObserver struct {
	collector *Collector
	tracer    Tracer
	logger    *Logger
}

// EngineObserverConfig configures an EngineObserver. Nil fields fall back to
// the process-wide collector, tracer and logger.
type EngineObserverConfig struct {
	Collector *Collector
	Tracer    Tracer
	Logger    *Logger
	Name      string // logger name, "dh" when empty
}

// NewEngineObserver creates an observer.
func NewEngineObserver(cfg EngineObserverConfig) *EngineObserver {
	if cfg.Collector == nil {
		cfg.Collector = Global()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = GetTracer()
	}
	if cfg.Logger == nil {
		cfg.Logger = GetLogger()
	}
	if cfg.Name == "" {
		cfg.Name = "dh"
	}
	return &EngineObserver{
		collector: cfg.Collector,
		tracer:    cfg.Tracer,
		logger:    cfg.Logger.Named(cfg.Name),
	}
}

// Collector returns the underlying collector.
func (o *EngineObserver) Collector() *Collector { return o.collector }

// Logger returns the engine logger.
func (o *EngineObserver) Logger() *Logger { return o.logger }

// OnInit traces engine initialization and logs its outcome.
func (o *EngineObserver) OnInit(ctx context.Context) (context.Context, func(error)) {
	ctx, end := o.tracer.StartSpan(ctx, SpanInit)
	start := time.Now()
	return ctx, func(err error) {
		if err != nil {
			o.logger.Error("engine initialization failed", Fields{"error": err})
		} else {
			o.logger.Info("engine initialized", Fields{"duration": time.Since(start).String()})
		}
		end(err)
	}
}

// OnSelfTest traces the initialization self-tests.
func (o *EngineObserver) OnSelfTest(ctx context.Context) (context.Context, func(error)) {
	ctx, end := o.tracer.StartSpan(ctx, SpanSelfTest)
	return ctx, func(err error) {
		if err != nil {
			o.logger.Error("self-test failed", Fields{"error": err})
		} else {
			o.logger.Debug("self-test passed")
		}
		end(err)
	}
}

// OnCleanup logs a stats summary followed by the cleanup line.
func (o *EngineObserver) OnCleanup() {
	o.LogSummary()
	o.logger.Info("engine cleaned up")
}

// OnGenerate traces a key generation. A nil error counts one generation on
// the fast path; any error counts a fallback.
func (o *EngineObserver) OnGenerate(ctx context.Context) (context.Context, func(error)) {
	ctx, end := o.tracer.StartSpan(ctx, SpanGenerate,
		WithAttributes(SpanAttributes{Operation: "generate", Slot: -1}.ToMap()))
	return ctx, func(err error) {
		if err != nil {
			o.collector.RecordFallback()
		} else {
			o.collector.RecordGeneration()
		}
		end(err)
	}
}

// ComputeOutcome describes how a shared-secret computation was served.
type ComputeOutcome struct {
	CacheHit bool
	Evicted  bool
}

// OnCompute traces a shared-secret computation against cache slot slot.
func (o *EngineObserver) OnCompute(ctx context.Context, slot int) (context.Context, func(ComputeOutcome, error)) {
	ctx, end := o.tracer.StartSpan(ctx, SpanCompute,
		WithAttributes(SpanAttributes{Operation: "compute", Slot: slot}.ToMap()))
	return ctx, func(out ComputeOutcome, err error) {
		switch {
		case err != nil:
			o.collector.RecordFallback()
		case out.CacheHit:
			o.collector.RecordCacheHit()
		default:
			o.collector.RecordGeneration()
			o.collector.RecordCacheMiss()
			if out.Evicted {
				o.collector.RecordCacheEviction()
			}
		}
		end(err)
	}
}

// OnModExp records one completed modular exponentiation.
func (o *EngineObserver) OnModExp(d time.Duration) {
	o.collector.RecordMontgomeryReduction()
	o.collector.RecordModExpLatency(d)
}

// OnPrecompute traces a batch precomputation of requested pairs.
func (o *EngineObserver) OnPrecompute(ctx context.Context, requested int) (context.Context, func(produced int)) {
	ctx, end := o.tracer.StartSpan(ctx, SpanPrecompute)
	return ctx, func(produced int) {
		var err error
		if produced < requested {
			err = &shortBatchError{requested: requested, produced: produced}
			o.logger.Debug("batch precomputation fell short", Fields{
				"requested": requested,
				"produced":  produced,
			})
		}
		end(err)
	}
}

type shortBatchError struct{ requested, produced int }

func (e *shortBatchError) Error() string {
	return "precomputed " + strconv.Itoa(e.produced) + " of " + strconv.Itoa(e.requested) + " key pairs"
}

// OnPrecomputedUsed counts a key pair served from a precomputed pool.
func (o *EngineObserver) OnPrecomputedUsed() {
	o.collector.RecordPrecomputedUsed()
}

// LogSummary writes the current counters at info level.
func (o *EngineObserver) LogSummary() {
	s := o.collector.Snapshot()
	o.logger.Info("engine stats", Fields{
		"generations":     s.TotalDHGenerations,
		"fast_path":       s.FastPathOperations,
		"fallbacks":       s.FallbackOperations,
		"cache_hits":      s.CachedResultsUsed,
		"cache_misses":    s.CacheMisses,
		"cache_evictions": s.CacheEvictions,
		"precomputed":     s.PrecomputedValuesUsed,
		"montgomery":      s.MontgomeryReductions,
		"hit_ratio":       s.CacheHitRatio(),
	})
}
