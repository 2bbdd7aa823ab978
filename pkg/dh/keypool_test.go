package dh_test

import (
	"context"
	"errors"
	"testing"

	qerrors "github.com/pzverkov/dhaccel/internal/errors"
	"github.com/pzverkov/dhaccel/pkg/dh"
	"github.com/pzverkov/dhaccel/pkg/metrics"
)

func newTestPool(t *testing.T, capacity int) (*dh.KeyPool, *metrics.Collector, *metrics.KeyPoolMetricsObserver) {
	t.Helper()
	e, col := newTestEngine(t)
	obs := metrics.NewKeyPoolMetricsObserver(metrics.KeyPoolMetricsObserverConfig{
		Logger:   metrics.NullLogger(),
		PoolName: "test",
	})
	return dh.NewKeyPool(e, capacity, obs), col, obs
}

func TestKeyPoolFillAndGet(t *testing.T) {
	pool, col, obs := newTestPool(t, 3)
	if pool.Cap() != 3 || pool.Len() != 0 {
		t.Fatalf("new pool: len %d cap %d", pool.Len(), pool.Cap())
	}

	added, err := pool.Fill(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if added != 3 || pool.Len() != 3 {
		t.Fatalf("added %d, len %d", added, pool.Len())
	}

	if added, _ := pool.Fill(context.Background(), 5); added != 0 {
		t.Errorf("full pool accepted %d more", added)
	}

	seen := map[dh.PublicValue]bool{}
	for range 3 {
		kp, err := pool.Get()
		if err != nil {
			t.Fatal(err)
		}
		if seen[kp.Public] {
			t.Error("pair handed out twice")
		}
		seen[kp.Public] = true
	}
	if got := col.Snapshot().PrecomputedValuesUsed; got != 3 {
		t.Errorf("PrecomputedValuesUsed = %d, want 3", got)
	}

	// Empty pool falls back to a fresh generation.
	if _, err := pool.Get(); err != nil {
		t.Fatal(err)
	}
	snap := obs.Snapshot()
	if snap.GetsFromPool != 3 || snap.GetsFresh != 1 || snap.PairsAdded != 3 {
		t.Errorf("unexpected pool metrics %+v", snap)
	}
	if col.Snapshot().PrecomputedValuesUsed != 3 {
		t.Error("fresh pair counted as precomputed")
	}
}

func TestKeyPoolPartialFill(t *testing.T) {
	pool, _, _ := newTestPool(t, 4)
	added, err := pool.Fill(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if added != 2 || pool.Len() != 2 {
		t.Errorf("added %d, len %d", added, pool.Len())
	}
}

func TestKeyPoolDrainAndClose(t *testing.T) {
	pool, _, obs := newTestPool(t, 2)
	if _, err := pool.Fill(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	if n := pool.Drain(); n != 2 {
		t.Errorf("Drain discarded %d, want 2", n)
	}
	if pool.Len() != 0 {
		t.Error("pool not empty after Drain")
	}
	if obs.Snapshot().PairsDrained != 2 {
		t.Errorf("PairsDrained = %d", obs.Snapshot().PairsDrained)
	}

	if _, err := pool.Fill(context.Background(), 1); err != nil {
		t.Fatalf("pool should stay usable after Drain: %v", err)
	}

	pool.Close()
	pool.Close()
	if pool.Len() != 0 {
		t.Error("Close should drain")
	}
	if _, err := pool.Get(); !errors.Is(err, qerrors.ErrPoolClosed) {
		t.Errorf("Get after Close = %v", err)
	}
	if _, err := pool.Fill(context.Background(), 1); !errors.Is(err, qerrors.ErrPoolClosed) {
		t.Errorf("Fill after Close = %v", err)
	}
}

func TestKeyPoolFillCancelled(t *testing.T) {
	pool, _, _ := newTestPool(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	added, err := pool.Fill(ctx, 0)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if added != 0 {
		t.Errorf("cancelled fill added %d", added)
	}
}

func TestKeyPoolDefaultCapacity(t *testing.T) {
	e, _ := newTestEngine(t)
	pool := dh.NewKeyPool(e, 0, nil)
	if pool.Cap() != 64 {
		t.Errorf("default capacity = %d", pool.Cap())
	}
}

func TestKeyPoolFillUninitialized(t *testing.T) {
	e := dh.NewEngine(dh.WithCollector(metrics.NewCollector(nil)), dh.WithLogger(metrics.NullLogger()))
	pool := dh.NewKeyPool(e, 4, nil)

	added, err := pool.Fill(context.Background(), 0)
	if !errors.Is(err, qerrors.ErrNotInitialized) {
		t.Errorf("Fill before Init = %v", err)
	}
	if added != 0 || pool.Len() != 0 {
		t.Errorf("added %d, len %d", added, pool.Len())
	}

	if err := e.Init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(e.Cleanup)
	if added, err := pool.Fill(context.Background(), 2); err != nil || added != 2 {
		t.Errorf("Fill after Init = %d, %v", added, err)
	}
}
