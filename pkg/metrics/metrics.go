// Package metrics provides observability primitives for the dhaccel engine.
//
// The package includes:
//   - Collector: monotonic Diffie-Hellman counters and a latency histogram
//   - Prometheus-compatible metrics export
//   - OpenTelemetry tracing support
//   - Structured logging with levels
//   - Health check functionality
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector aggregates engine statistics. All counters are monotonic between
// Resets and safe for concurrent use.
type Collector struct {
	// Precomputation
	precomputedValuesUsed atomic.Uint64

	// Exponentiation paths
	fastPathOperations   atomic.Uint64
	fallbackOperations   atomic.Uint64
	totalDHGenerations   atomic.Uint64
	montgomeryReductions atomic.Uint64

	// Result cache
	cachedResultsUsed atomic.Uint64
	cacheMisses       atomic.Uint64
	cacheEvictions    atomic.Uint64

	// Exponentiation latency (microseconds)
	modExpLatency *Histogram

	createdAt time.Time
	labels    Labels
}

// Labels represents key-value pairs for metric labeling.
type Labels map[string]string

// NewCollector creates a new metrics collector.
func NewCollector(labels Labels) *Collector {
	if labels == nil {
		labels = make(Labels)
	}

	return &Collector{
		modExpLatency: NewHistogram(ModExpLatencyBuckets),
		createdAt:     time.Now(),
		labels:        labels,
	}
}

// ModExpLatencyBuckets are histogram bounds for a single 2048-bit modular
// exponentiation, in microseconds.
var ModExpLatencyBuckets = []float64{250, 500, 1000, 2000, 4000, 8000, 16000, 32000}

// RecordPrecomputedUsed counts a key pair handed out from a precomputed pool.
func (c *Collector) RecordPrecomputedUsed() {
	c.precomputedValuesUsed.Add(1)
}

// RecordGeneration counts a successful exponentiation-backed generation. Each
// one is a fast-path completion that ran exactly one Montgomery exponentiation.
func (c *Collector) RecordGeneration() {
	c.totalDHGenerations.Add(1)
	c.fastPathOperations.Add(1)
}

// RecordMontgomeryReduction counts a modular exponentiation over the odd prime
// modulus, which math/big carries out in Montgomery form.
func (c *Collector) RecordMontgomeryReduction() {
	c.montgomeryReductions.Add(1)
}

// RecordFallback counts an operation that failed and returned an error.
func (c *Collector) RecordFallback() {
	c.fallbackOperations.Add(1)
}

// RecordCacheHit counts a shared secret served from the result cache.
func (c *Collector) RecordCacheHit() {
	c.cachedResultsUsed.Add(1)
}

// RecordCacheMiss counts a cache lookup that forced an exponentiation.
func (c *Collector) RecordCacheMiss() {
	c.cacheMisses.Add(1)
}

// RecordCacheEviction counts an insert that displaced a different key.
func (c *Collector) RecordCacheEviction() {
	c.cacheEvictions.Add(1)
}

// RecordModExpLatency records the duration of one modular exponentiation.
func (c *Collector) RecordModExpLatency(d time.Duration) {
	c.modExpLatency.Observe(float64(d.Microseconds()))
}

// Snapshot is a point-in-time, read-only copy of all counters.
type Snapshot struct {
	// Timestamp of the snapshot
	Timestamp time.Time

	// Uptime since collector creation
	Uptime time.Duration

	PrecomputedValuesUsed uint64
	FastPathOperations    uint64
	FallbackOperations    uint64
	TotalDHGenerations    uint64
	CachedResultsUsed     uint64
	MontgomeryReductions  uint64

	CacheMisses    uint64
	CacheEvictions uint64

	ModExpLatency HistogramSummary

	Labels Labels
}

// CacheHitRatio returns hits / (hits + misses), or 0 before any lookup.
func (s Snapshot) CacheHitRatio() float64 {
	total := s.CachedResultsUsed + s.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.CachedResultsUsed) / float64(total)
}

// FallbackRate returns failed operations over all completed operations.
func (s Snapshot) FallbackRate() float64 {
	total := s.FastPathOperations + s.CachedResultsUsed + s.FallbackOperations
	if total == 0 {
		return 0
	}
	return float64(s.FallbackOperations) / float64(total)
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		Timestamp:             time.Now(),
		Uptime:                time.Since(c.createdAt),
		PrecomputedValuesUsed: c.precomputedValuesUsed.Load(),
		FastPathOperations:    c.fastPathOperations.Load(),
		FallbackOperations:    c.fallbackOperations.Load(),
		TotalDHGenerations:    c.totalDHGenerations.Load(),
		CachedResultsUsed:     c.cachedResultsUsed.Load(),
		MontgomeryReductions:  c.montgomeryReductions.Load(),
		CacheMisses:           c.cacheMisses.Load(),
		CacheEvictions:        c.cacheEvictions.Load(),
		ModExpLatency:         c.modExpLatency.Summary(),
		Labels:                c.labels,
	}
}

// Reset clears all metrics (useful for testing).
func (c *Collector) Reset() {
	c.precomputedValuesUsed.Store(0)
	c.fastPathOperations.Store(0)
	c.fallbackOperations.Store(0)
	c.totalDHGenerations.Store(0)
	c.cachedResultsUsed.Store(0)
	c.montgomeryReductions.Store(0)
	c.cacheMisses.Store(0)
	c.cacheEvictions.Store(0)
	c.modExpLatency.Reset()
	c.createdAt = time.Now()
}

// --- Global Collector ---

var (
	globalCollector     *Collector
	globalCollectorOnce sync.Once
	globalCollectorMu   sync.RWMutex
)

// Global returns the process-wide collector, creating it on first use.
func Global() *Collector {
	globalCollectorOnce.Do(func() {
		globalCollectorMu.Lock()
		if globalCollector == nil {
			globalCollector = NewCollector(Labels{"instance": "default"})
		}
		globalCollectorMu.Unlock()
	})
	globalCollectorMu.RLock()
	defer globalCollectorMu.RUnlock()
	return globalCollector
}

// SetGlobal replaces the process-wide collector. Call it during start-up,
// before any engine records into Global().
func SetGlobal(c *Collector) {
	globalCollectorOnce.Do(func() {})
	globalCollectorMu.Lock()
	defer globalCollectorMu.Unlock()
	globalCollector = c
}
