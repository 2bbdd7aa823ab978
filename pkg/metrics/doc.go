// # Overview
//
// Every dh.Engine reports through an EngineObserver, which combines a
// Collector (counters and the exponentiation latency histogram), a Tracer
// and a Logger. Engines use the process-wide tracer and logger, and a
// collector of their own:
//
//	metrics.SetLogger(metrics.ProductionLogger(os.Stderr))
//	metrics.SetTracer(metrics.NewOTelTracer("dhaccel"))
//
//	eng, err := dh.New(dh.WithCollector(metrics.Global()))
//
// Without dh.WithCollector each engine's Stats cover only that engine.
//
// # Counters
//
//	snap := collector.Snapshot()
//	snap.TotalDHGenerations // exponentiations for generation or cache miss
//	snap.CachedResultsUsed  // shared secrets served from the cache
//	snap.FallbackOperations // operations that returned an error
//	snap.CacheHitRatio()
//
// # Prometheus Export
//
//	exporter := metrics.NewPrometheusExporter(collector, "dhaccel")
//	http.Handle("/metrics", exporter.Handler())
//
// # Tracing
//
// Spans are named dh.generate, dh.compute, dh.precompute_batch and so on.
// SimpleTracer keeps them in memory; OTelTracer forwards them to the
// OpenTelemetry provider installed with otel.SetTracerProvider.
//
// # Observability Server
//
//	server := metrics.NewServer(metrics.ServerConfig{
//		Collector:        collector,
//		Version:          version.String(),
//		EnablePrometheus: true,
//		EnableHealth:     true,
//	})
//	server.AddHealthCheck("engine", eng.Ready)
//	go server.ListenAndServe(":9090")
//
// This provides:
//   - /metrics - Prometheus metrics
//   - /health  - Detailed health status
//   - /healthz - Liveness probe
//   - /readyz  - Readiness probe
package metrics
