package metrics

import (
	"fmt"
	"io"
	"maps"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// DefaultNamespace prefixes every exported metric name.
const DefaultNamespace = "dhaccel"

// PrometheusExporter renders a Collector in the Prometheus text exposition
// format (version 0.0.4).
type PrometheusExporter struct {
	collector *Collector
	namespace string

	mu    sync.Mutex
	extra []func(io.Writer)
}

// NewPrometheusExporter creates an exporter. An empty namespace means
// DefaultNamespace.
func NewPrometheusExporter(c *Collector, namespace string) *PrometheusExporter {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &PrometheusExporter{collector: c, namespace: namespace}
}

// Handler serves the exposition on every request.
func (e *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		e.WriteMetrics(w)
	})
}

// Register appends fn's output to every exposition, after the collector
// series.
func (e *PrometheusExporter) Register(fn func(io.Writer)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.extra = append(e.extra, fn)
}

type promScalar struct {
	name  string
	help  string
	typ   string
	value func(Snapshot) float64
}

var promScalars = []promScalar{
	{"generations_total", "Modular exponentiations run for key generation or cache misses", "counter",
		func(s Snapshot) float64 { return float64(s.TotalDHGenerations) }},
	{"fast_path_operations_total", "Operations completed on the exponentiation fast path", "counter",
		func(s Snapshot) float64 { return float64(s.FastPathOperations) }},
	{"fallback_operations_total", "Operations that returned an error", "counter",
		func(s Snapshot) float64 { return float64(s.FallbackOperations) }},
	{"montgomery_reductions_total", "Montgomery-form modular exponentiations", "counter",
		func(s Snapshot) float64 { return float64(s.MontgomeryReductions) }},
	{"precomputed_values_used_total", "Precomputed key pairs handed out", "counter",
		func(s Snapshot) float64 { return float64(s.PrecomputedValuesUsed) }},
	{"cache_hits_total", "Shared secrets served from the result cache", "counter",
		func(s Snapshot) float64 { return float64(s.CachedResultsUsed) }},
	{"cache_misses_total", "Result cache lookups that missed", "counter",
		func(s Snapshot) float64 { return float64(s.CacheMisses) }},
	{"cache_evictions_total", "Cache inserts that displaced a different key", "counter",
		func(s Snapshot) float64 { return float64(s.CacheEvictions) }},
	{"cache_hit_ratio", "Hits over hits plus misses", "gauge",
		func(s Snapshot) float64 { return s.CacheHitRatio() }},
	{"uptime_seconds", "Time since the collector was created", "gauge",
		func(s Snapshot) float64 { return s.Uptime.Seconds() }},
}

// WriteMetrics writes the full exposition to w.
func (e *PrometheusExporter) WriteMetrics(w io.Writer) {
	snap := e.collector.Snapshot()
	labels := formatLabels(snap.Labels)

	for _, m := range promScalars {
		e.writeHeader(w, m.name, m.help, m.typ)
		fmt.Fprintf(w, "%s%s %s\n", e.fqName(m.name), wrapLabels(labels), formatFloat(m.value(snap)))
	}

	e.writeHistogram(w, "modexp_duration_microseconds",
		"Duration of one 2048-bit modular exponentiation in microseconds", labels, snap.ModExpLatency)

	e.mu.Lock()
	extra := slices.Clone(e.extra)
	e.mu.Unlock()
	for _, fn := range extra {
		fn(w)
	}
}

// Namespace returns the metric name prefix.
func (e *PrometheusExporter) Namespace() string {
	return e.namespace
}

func (e *PrometheusExporter) fqName(name string) string {
	return e.namespace + "_" + name
}

func (e *PrometheusExporter) writeHeader(w io.Writer, name, help, typ string) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", e.fqName(name), help, e.fqName(name), typ)
}

func (e *PrometheusExporter) writeHistogram(w io.Writer, name, help, labels string, h HistogramSummary) {
	e.writeHeader(w, name, help, "histogram")
	full := e.fqName(name)

	for _, b := range h.Buckets {
		le := "+Inf"
		if !math.IsInf(b.UpperBound, 1) {
			le = formatFloat(b.UpperBound)
		}
		fmt.Fprintf(w, "%s_bucket%s %d\n", full, wrapLabels(joinLabels(labels, `le="`+le+`"`)), b.Count)
	}
	fmt.Fprintf(w, "%s_sum%s %s\n", full, wrapLabels(labels), formatFloat(h.Sum))
	fmt.Fprintf(w, "%s_count%s %d\n", full, wrapLabels(labels), h.Count)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func wrapLabels(labels string) string {
	if labels == "" {
		return ""
	}
	return "{" + labels + "}"
}

func joinLabels(a, b string) string {
	if a == "" {
		return b
	}
	return a + "," + b
}

// formatLabels renders labels sorted by key.
func formatLabels(labels Labels) string {
	keys := slices.Sorted(maps.Keys(labels))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + `="` + escapePromValue(labels[k]) + `"`
	}
	return strings.Join(parts, ",")
}

var promEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func escapePromValue(s string) string {
	return promEscaper.Replace(s)
}
