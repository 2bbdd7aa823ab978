package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pzverkov/dhaccel/pkg/dh"
	"github.com/pzverkov/dhaccel/pkg/metrics"
)

type benchConfig struct {
	ops        int
	workers    int
	reuse      float64 // fraction of ops that repeat a hot (peer, exponent) pair
	precompute int
	selfTest   bool
}

func (c *benchConfig) validate() error {
	switch {
	case c.ops <= 0:
		return errors.New("--ops must be positive")
	case c.workers <= 0:
		return errors.New("--workers must be positive")
	case c.reuse < 0 || c.reuse > 1:
		return errors.New("--reuse must be between 0 and 1")
	case c.precompute < 0:
		return errors.New("--precompute must not be negative")
	}
	if c.precompute == 0 {
		c.precompute = c.workers * 4
	}
	return nil
}

type benchResult struct {
	ops     uint64
	hot     uint64
	fresh   uint64
	elapsed time.Duration
	latency metrics.HistogramSummary
}

func runBench(w io.Writer, obs observability, cfg benchConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	fmt.Fprintf(w, "Benchmarking %d exchanges on %d workers (reuse %.0f%%)\n", cfg.ops, cfg.workers, cfg.reuse*100)
	fmt.Fprintln(w, strings.Repeat("─", 60))

	eng, err := dh.New(obs.engineOptions(cfg.selfTest)...)
	if err != nil {
		return err
	}
	defer eng.Cleanup()

	res, err := benchExchanges(context.Background(), eng, cfg)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "\nResults:")
	fmt.Fprintf(w, "  Computations:      %d (%d hot, %d fresh)\n", res.ops, res.hot, res.fresh)
	fmt.Fprintf(w, "  Total time:        %v\n", res.elapsed)
	fmt.Fprintf(w, "  Throughput:        %.1f ops/sec\n", float64(res.ops)/res.elapsed.Seconds())
	fmt.Fprintf(w, "  Latency mean:      %.0fµs\n", res.latency.Mean)
	fmt.Fprintf(w, "  Latency p50/p99:   %.0fµs / %.0fµs\n",
		res.latency.Percentiles[0.5], res.latency.Percentiles[0.99])

	printStats(w, eng.Stats())
	printSpans(w, obs.tracer)
	return nil
}

// benchExchanges runs cfg.ops shared-secret computations. Hot operations
// repeat one of a few (peer, exponent) pairs computed up front; fresh
// operations draw a new exponent from a key pool.
func benchExchanges(ctx context.Context, eng *dh.Engine, cfg benchConfig) (benchResult, error) {
	peers, n := eng.PrecomputeBatchContext(ctx, cfg.precompute)
	if n < 2 {
		return benchResult{}, fmt.Errorf("precomputed only %d key pairs", n)
	}
	hot := peers[:min(n, 8)]

	pool := dh.NewKeyPool(eng, cfg.precompute, nil)
	defer pool.Close()
	if _, err := pool.Fill(ctx, 0); err != nil {
		return benchResult{}, err
	}

	latency := metrics.NewHistogram(metrics.ModExpLatencyBuckets)
	var next, hotOps, freshOps atomic.Uint64

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for worker := range cfg.workers {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(uint64(worker), 0x64686163))
			for next.Add(1) <= uint64(cfg.ops) {
				if err := ctx.Err(); err != nil {
					return err
				}

				peer := peers[rng.IntN(n)].Public
				var own dh.PrivateExponent
				if rng.Float64() < cfg.reuse {
					i := rng.IntN(len(hot))
					peer = hot[(i+1)%len(hot)].Public
					own = hot[i].Private
					hotOps.Add(1)
				} else {
					kp, err := pool.GetContext(ctx)
					if err != nil {
						return err
					}
					own = kp.Private
					freshOps.Add(1)
				}

				t := time.Now()
				secret, err := eng.ComputeSharedSecretContext(ctx, peer, own)
				if err != nil {
					return err
				}
				latency.Observe(float64(time.Since(t).Microseconds()))
				secret.Zeroize()
				own.Zeroize()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return benchResult{}, err
	}

	for i := range peers {
		peers[i].Zeroize()
	}
	return benchResult{
		ops:     hotOps.Load() + freshOps.Load(),
		hot:     hotOps.Load(),
		fresh:   freshOps.Load(),
		elapsed: time.Since(start),
		latency: latency.Summary(),
	}, nil
}
