package metrics

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// KeyPoolRefillBuckets are histogram bounds for one pool refill, in
// milliseconds.
var KeyPoolRefillBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

// KeyPoolMetricsObserver records key-pool activity. It satisfies the
// observer interface accepted by dh.KeyPool.
type KeyPoolMetricsObserver struct {
	size atomic.Int64

	getsTotal     atomic.Uint64
	getsFromPool  atomic.Uint64
	getsFresh     atomic.Uint64
	pairsAdded    atomic.Uint64
	pairsDrained  atomic.Uint64
	refillsTotal  atomic.Uint64
	refillsFailed atomic.Uint64

	refillLatency *Histogram

	logger   *Logger
	poolName string
}

// KeyPoolMetricsObserverConfig configures a KeyPoolMetricsObserver.
type KeyPoolMetricsObserverConfig struct {
	Logger   *Logger
	PoolName string
}

// NewKeyPoolMetricsObserver creates an observer.
func NewKeyPoolMetricsObserver(cfg KeyPoolMetricsObserverConfig) *KeyPoolMetricsObserver {
	if cfg.Logger == nil {
		cfg.Logger = GetLogger()
	}
	if cfg.PoolName == "" {
		cfg.PoolName = "default"
	}
	return &KeyPoolMetricsObserver{
		refillLatency: NewHistogram(KeyPoolRefillBuckets),
		logger:        cfg.Logger.Named("keypool").With(Fields{"pool": cfg.PoolName}),
		poolName:      cfg.PoolName,
	}
}

// OnGet records a Get. fromPool is false when the pool was empty and a fresh
// pair was generated instead.
func (o *KeyPoolMetricsObserver) OnGet(fromPool bool) {
	o.getsTotal.Add(1)
	if fromPool {
		o.getsFromPool.Add(1)
		o.size.Add(-1)
		return
	}
	o.getsFresh.Add(1)
}

// OnRefill records a Fill that asked for requested pairs and stored added.
func (o *KeyPoolMetricsObserver) OnRefill(requested, added int, d time.Duration) {
	o.refillsTotal.Add(1)
	o.pairsAdded.Add(uint64(added))
	o.size.Add(int64(added))
	o.refillLatency.Observe(float64(d.Milliseconds()))

	if added < requested {
		o.refillsFailed.Add(1)
		o.logger.Warn("refill fell short", Fields{"requested": requested, "added": added})
		return
	}
	o.logger.Debug("refilled", Fields{"added": added, "duration_ms": d.Milliseconds()})
}

// OnDrain records pairs discarded and wiped by Drain.
func (o *KeyPoolMetricsObserver) OnDrain(discarded int) {
	o.pairsDrained.Add(uint64(discarded))
	o.size.Add(-int64(discarded))
	if discarded > 0 {
		o.logger.Info("drained", Fields{"discarded": discarded})
	}
}

// KeyPoolMetricsSnapshot is a point-in-time copy of the observer state.
type KeyPoolMetricsSnapshot struct {
	Size int64

	GetsTotal     uint64
	GetsFromPool  uint64
	GetsFresh     uint64
	PairsAdded    uint64
	PairsDrained  uint64
	RefillsTotal  uint64
	RefillsFailed uint64

	RefillLatency HistogramSummary

	PoolName string
}

// Snapshot returns the current state.
func (o *KeyPoolMetricsObserver) Snapshot() KeyPoolMetricsSnapshot {
	return KeyPoolMetricsSnapshot{
		Size:          o.size.Load(),
		GetsTotal:     o.getsTotal.Load(),
		GetsFromPool:  o.getsFromPool.Load(),
		GetsFresh:     o.getsFresh.Load(),
		PairsAdded:    o.pairsAdded.Load(),
		PairsDrained:  o.pairsDrained.Load(),
		RefillsTotal:  o.refillsTotal.Load(),
		RefillsFailed: o.refillsFailed.Load(),
		RefillLatency: o.refillLatency.Summary(),
		PoolName:      o.poolName,
	}
}

// Reset clears all counters (useful for testing).
func (o *KeyPoolMetricsObserver) Reset() {
	o.size.Store(0)
	o.getsTotal.Store(0)
	o.getsFromPool.Store(0)
	o.getsFresh.Store(0)
	o.pairsAdded.Store(0)
	o.pairsDrained.Store(0)
	o.refillsTotal.Store(0)
	o.refillsFailed.Store(0)
	o.refillLatency.Reset()
}

// WriteMetrics appends the pool series to a Prometheus exposition.
func (o *KeyPoolMetricsObserver) WriteMetrics(w io.Writer, namespace string) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	s := o.Snapshot()
	label := fmt.Sprintf(`pool="%s"`, escapePromValue(s.PoolName))

	series := []struct {
		name, help, typ string
		value           float64
	}{
		{"keypool_size", "Precomputed key pairs currently pooled", "gauge", float64(s.Size)},
		{"keypool_gets_total", "Key pairs requested from the pool", "counter", float64(s.GetsTotal)},
		{"keypool_gets_fresh_total", "Requests served by fresh generation because the pool was empty", "counter", float64(s.GetsFresh)},
		{"keypool_refills_failed_total", "Refills that stored fewer pairs than requested", "counter", float64(s.RefillsFailed)},
	}
	for _, m := range series {
		full := namespace + "_" + m.name
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s{%s} %s\n", full, m.help, full, m.typ, full, label, formatFloat(m.value))
	}
}
