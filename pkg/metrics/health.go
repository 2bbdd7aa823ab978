package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net"
	"net/http"
	"runtime"
	"sync"
	"time"
)

// HealthStatus is the aggregate state reported by a HealthCheck.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// DefaultFallbackThreshold is the fallback rate above which the service
// reports itself degraded.
const DefaultFallbackThreshold = 0.01

// CheckFunc returns nil when the checked component is healthy.
type CheckFunc func() error

// HealthCheck runs named checks and folds collector counters into the result.
type HealthCheck struct {
	mu                sync.RWMutex
	checks            map[string]CheckFunc
	collector         *Collector
	startTime         time.Time
	version           string
	fallbackThreshold float64
}

// HealthResponse is the JSON body of /health.
type HealthResponse struct {
	Status    HealthStatus           `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Version   string                 `json:"version,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Metrics   *HealthMetrics         `json:"metrics,omitempty"`
}

// CheckResult is the outcome of one named check.
type CheckResult struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
	Latency string       `json:"latency,omitempty"`
}

// HealthMetrics summarizes engine counters.
type HealthMetrics struct {
	Generations   uint64  `json:"generations"`
	CacheHits     uint64  `json:"cache_hits"`
	CacheMisses   uint64  `json:"cache_misses"`
	CacheHitRatio float64 `json:"cache_hit_ratio"`
	Fallbacks     uint64  `json:"fallbacks"`
	FallbackRate  float64 `json:"fallback_rate"`
}

// NewHealthCheck creates a HealthCheck. collector may be nil.
func NewHealthCheck(collector *Collector, version string) *HealthCheck {
	return &HealthCheck{
		checks:            make(map[string]CheckFunc),
		collector:         collector,
		startTime:         time.Now(),
		version:           version,
		fallbackThreshold: DefaultFallbackThreshold,
	}
}

// SetFallbackThreshold changes the degradation threshold.
func (h *HealthCheck) SetFallbackThreshold(rate float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fallbackThreshold = rate
}

// AddCheck registers or replaces a named check.
func (h *HealthCheck) AddCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// RemoveCheck unregisters a named check.
func (h *HealthCheck) RemoveCheck(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.checks, name)
}

// Check runs every registered check. A failing check makes the result
// unhealthy; a fallback rate above the threshold makes it degraded.
func (h *HealthCheck) Check() HealthResponse {
	h.mu.RLock()
	checks := maps.Clone(h.checks)
	threshold := h.fallbackThreshold
	h.mu.RUnlock()

	resp := HealthResponse{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now(),
		Uptime:    formatDuration(time.Since(h.startTime)),
		Version:   h.version,
		Checks:    make(map[string]CheckResult, len(checks)),
	}

	unhealthy, degraded := false, false
	for name, check := range checks {
		start := time.Now()
		err := check()
		res := CheckResult{Status: HealthStatusHealthy, Latency: time.Since(start).String()}
		if err != nil {
			res.Status = HealthStatusUnhealthy
			res.Message = err.Error()
			unhealthy = true
		}
		resp.Checks[name] = res
	}

	if h.collector != nil {
		snap := h.collector.Snapshot()
		resp.Metrics = &HealthMetrics{
			Generations:   snap.TotalDHGenerations,
			CacheHits:     snap.CachedResultsUsed,
			CacheMisses:   snap.CacheMisses,
			CacheHitRatio: snap.CacheHitRatio(),
			Fallbacks:     snap.FallbackOperations,
			FallbackRate:  snap.FallbackRate(),
		}
		if resp.Metrics.FallbackRate > threshold {
			degraded = true
		}
	}

	switch {
	case unhealthy:
		resp.Status = HealthStatusUnhealthy
	case degraded:
		resp.Status = HealthStatusDegraded
	}
	return resp
}

// Handler serves the full HealthResponse. Unhealthy maps to 503.
func (h *HealthCheck) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := h.Check()
		code := http.StatusOK
		if resp.Status == HealthStatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	})
}

// LivenessHandler always answers 200 while the process runs.
func (h *HealthCheck) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})
}

// ReadinessHandler answers 200 unless a check fails.
func (h *HealthCheck) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := h.Check()
		ready := resp.Status != HealthStatusUnhealthy
		code := http.StatusOK
		if !ready {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]any{"status": resp.Status, "ready": ready})
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// formatDuration renders d as e.g. "3d4h5m", "2h3m4s" or "7s".
func formatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	seconds := (d - minutes*time.Minute) / time.Second

	switch {
	case days > 0:
		return fmt.Sprintf("%dd%dh%dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// --- Common Health Checks ---

// MemoryCheck fails when the Go heap exceeds threshold bytes.
func MemoryCheck(threshold uint64) CheckFunc {
	return func() error {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		if ms.HeapAlloc > threshold {
			return fmt.Errorf("heap %d bytes exceeds %d", ms.HeapAlloc, threshold)
		}
		return nil
	}
}

// --- Server ---

// Server exposes /metrics, /health, /healthz and /readyz.
type Server struct {
	mux        *http.ServeMux
	collector  *Collector
	health     *HealthCheck
	prometheus *PrometheusExporter

	mu       sync.Mutex
	srv      *http.Server
	shutdown bool
}

// ServerConfig configures a Server.
type ServerConfig struct {
	Collector        *Collector
	Version          string
	Namespace        string
	EnablePrometheus bool
	EnableHealth     bool
}

// NewServer builds the mux. A nil Collector means Global().
func NewServer(cfg ServerConfig) *Server {
	if cfg.Collector == nil {
		cfg.Collector = Global()
	}

	s := &Server{mux: http.NewServeMux(), collector: cfg.Collector}

	if cfg.EnablePrometheus {
		s.prometheus = NewPrometheusExporter(cfg.Collector, cfg.Namespace)
		s.mux.Handle("GET /metrics", s.prometheus.Handler())
	}
	if cfg.EnableHealth {
		s.health = NewHealthCheck(cfg.Collector, cfg.Version)
		s.mux.Handle("GET /health", s.health.Handler())
		s.mux.Handle("GET /healthz", s.health.LivenessHandler())
		s.mux.Handle("GET /readyz", s.health.ReadinessHandler())
	}
	return s
}

// Handler returns the server mux.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Health returns the health checker, or nil when health endpoints are off.
func (s *Server) Health() *HealthCheck {
	return s.health
}

// RegisterMetrics adds extra series to /metrics. fn receives the exporter
// namespace. It is a no-op when Prometheus export is off.
func (s *Server) RegisterMetrics(fn func(w io.Writer, namespace string)) {
	if s.prometheus == nil {
		return
	}
	ns := s.prometheus.Namespace()
	s.prometheus.Register(func(w io.Writer) { fn(w, ns) })
}

// AddHealthCheck registers a check when health endpoints are enabled.
func (s *Server) AddHealthCheck(name string, check CheckFunc) {
	if s.health != nil {
		s.health.AddCheck(name, check)
	}
}

// ListenAndServe listens on addr and blocks until the server stops.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln. It returns nil after Shutdown, including
// a Shutdown that happened before Serve was called.
func (s *Server) Serve(ln net.Listener) error {
	srv := newHTTPServer(ln.Addr().String(), s.mux)
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	s.srv = srv
	s.mu.Unlock()

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops a running server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.shutdown = true
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
