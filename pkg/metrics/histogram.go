package metrics

import (
	"math"
	"slices"
	"sort"
	"sync"
)

// Histogram records a distribution over fixed upper bounds plus one overflow
// bucket. It is safe for concurrent use.
type Histogram struct {
	mu     sync.RWMutex
	bounds []float64
	counts []uint64 // len(bounds)+1, last is +Inf
	sum    float64
	n      uint64
	lo, hi float64
}

// NewHistogram creates a histogram over the given bounds. The bounds are
// copied and sorted.
func NewHistogram(bounds []float64) *Histogram {
	b := slices.Clone(bounds)
	slices.Sort(b)
	h := &Histogram{
		bounds: b,
		counts: make([]uint64, len(b)+1),
	}
	h.resetLocked()
	return h
}

func (h *Histogram) resetLocked() {
	clear(h.counts)
	h.sum = 0
	h.n = 0
	h.lo = math.MaxFloat64
	h.hi = -math.MaxFloat64
}

// Observe adds v to the distribution.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.counts[sort.SearchFloat64s(h.bounds, v)]++
	h.sum += v
	h.n++
	h.lo = min(h.lo, v)
	h.hi = max(h.hi, v)
}

// HistogramSummary is an immutable view of a Histogram.
type HistogramSummary struct {
	Count       uint64              `json:"count"`
	Sum         float64             `json:"sum"`
	Min         float64             `json:"min"`
	Max         float64             `json:"max"`
	Mean        float64             `json:"mean"`
	Buckets     []BucketCount       `json:"buckets"`
	Percentiles map[float64]float64 `json:"percentiles,omitempty"`
}

// BucketCount is one cumulative bucket. UpperBound is +Inf for the overflow
// bucket.
type BucketCount struct {
	UpperBound float64 `json:"le"`
	Count      uint64  `json:"count"`
}

// SummaryPercentiles are the quantiles reported by Summary.
var SummaryPercentiles = []float64{0.5, 0.9, 0.95, 0.99}

// Summary returns cumulative buckets and estimated percentiles.
func (h *Histogram) Summary() HistogramSummary {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.n == 0 {
		return HistogramSummary{
			Buckets:     []BucketCount{},
			Percentiles: map[float64]float64{},
		}
	}

	buckets := make([]BucketCount, len(h.counts))
	var running uint64
	for i, c := range h.counts {
		running += c
		bound := math.Inf(1)
		if i < len(h.bounds) {
			bound = h.bounds[i]
		}
		buckets[i] = BucketCount{UpperBound: bound, Count: running}
	}

	pct := make(map[float64]float64, len(SummaryPercentiles))
	for _, q := range SummaryPercentiles {
		pct[q] = h.quantileLocked(q)
	}

	return HistogramSummary{
		Count:       h.n,
		Sum:         h.sum,
		Min:         h.lo,
		Max:         h.hi,
		Mean:        h.sum / float64(h.n),
		Buckets:     buckets,
		Percentiles: pct,
	}
}

// Quantile estimates the q-th quantile (0 < q <= 1) by linear interpolation
// inside the bucket that holds the target rank.
func (h *Histogram) Quantile(q float64) float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.n == 0 {
		return 0
	}
	return h.quantileLocked(q)
}

func (h *Histogram) quantileLocked(q float64) float64 {
	rank := q * float64(h.n)
	var running uint64
	for i, c := range h.counts {
		prev := running
		running += c
		if float64(running) < rank {
			continue
		}
		switch {
		case i >= len(h.bounds):
			return h.hi
		case i == 0:
			return h.bounds[0] / 2
		default:
			lower, upper := h.bounds[i-1], h.bounds[i]
			return lower + (rank-float64(prev))/float64(c)*(upper-lower)
		}
	}
	return h.hi
}

// Reset clears all observations.
func (h *Histogram) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resetLocked()
}

// Count returns the number of observations.
func (h *Histogram) Count() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.n
}

// Mean returns the arithmetic mean, or 0 when empty.
func (h *Histogram) Mean() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.n == 0 {
		return 0
	}
	return h.sum / float64(h.n)
}
