package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pzverkov/dhaccel/pkg/dh"
	"github.com/pzverkov/dhaccel/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

type serveConfig struct {
	addr     string
	poolSize int
	refill   time.Duration
	summary  time.Duration
	selfTest bool
}

func runServe(obs observability, cfg serveConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.addr, err)
	}
	fmt.Printf("✓ Observability server on %s (metrics: /metrics, health: /health)\n", ln.Addr())
	fmt.Println("Press Ctrl+C to stop")

	return serve(ctx, ln, obs, cfg)
}

// serve runs the engine, its key pool and the HTTP server on ln until ctx is
// done, then shuts everything down.
func serve(ctx context.Context, ln net.Listener, obs observability, cfg serveConfig) error {
	logger := obs.logger.Named("serve")

	eng := dh.NewEngine(obs.engineOptions(cfg.selfTest)...)

	poolObs := metrics.NewKeyPoolMetricsObserver(metrics.KeyPoolMetricsObserverConfig{
		Logger:   obs.logger,
		PoolName: "default",
	})
	pool := dh.NewKeyPool(eng, cfg.poolSize, poolObs)

	server := metrics.NewServer(metrics.ServerConfig{
		Collector:        obs.collector,
		Version:          getVersion(),
		EnablePrometheus: true,
		EnableHealth:     true,
	})
	server.AddHealthCheck("engine", eng.Ready)
	server.RegisterMetrics(poolObs.WriteMetrics)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Serve(ln)
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	// /readyz reports the engine check as failing until Init returns.
	if err := eng.InitContext(ctx); err != nil {
		g.Go(func() error { return err })
		return g.Wait()
	}
	defer eng.Cleanup()
	defer pool.Close()

	g.Go(func() error {
		refillPool(ctx, pool, cfg.refill, logger)
		return nil
	})

	if cfg.summary > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(cfg.summary)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					eng.LogSummary()
				}
			}
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

// refillPool tops the pool up immediately and then on every tick.
func refillPool(ctx context.Context, pool *dh.KeyPool, interval time.Duration, logger *metrics.Logger) {
	fill := func() {
		added, err := pool.Fill(ctx, 0)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("key pool refill failed", metrics.Fields{"error": err})
			return
		}
		if added > 0 {
			logger.Debug("key pool refilled", metrics.Fields{"added": added, "size": pool.Len()})
		}
	}

	fill()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fill()
		}
	}
}
