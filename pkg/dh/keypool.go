package dh

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pzverkov/dhaccel/internal/constants"
	qerrors "github.com/pzverkov/dhaccel/internal/errors"
)

// KeyPoolObserver receives key pool events. metrics.KeyPoolMetricsObserver
// implements it.
type KeyPoolObserver interface {
	OnGet(fromPool bool)
	OnRefill(requested, added int, d time.Duration)
	OnDrain(discarded int)
}

type noopKeyPoolObserver struct{}

func (noopKeyPoolObserver) OnGet(bool)                       {}
func (noopKeyPoolObserver) OnRefill(int, int, time.Duration) {}
func (noopKeyPoolObserver) OnDrain(int)                      {}

// KeyPool holds key pairs precomputed off the hot path. Each pair is handed
// out at most once. When the pool is empty Get falls back to a fresh
// generation.
type KeyPool struct {
	engine   *Engine
	pairs    chan KeyPair
	observer KeyPoolObserver

	fillMu sync.Mutex // one Fill at a time
	closed atomic.Bool
}

// NewKeyPool creates an empty pool of the given capacity backed by engine.
// A capacity <= 0 means DefaultKeyPoolCapacity. observer may be nil.
func NewKeyPool(engine *Engine, capacity int, observer KeyPoolObserver) *KeyPool {
	if capacity <= 0 {
		capacity = constants.DefaultKeyPoolCapacity
	}
	if observer == nil {
		observer = noopKeyPoolObserver{}
	}
	return &KeyPool{
		engine:   engine,
		pairs:    make(chan KeyPair, capacity),
		observer: observer,
	}
}

// Get returns a precomputed pair, or a freshly generated one when the pool
// is empty.
func (p *KeyPool) Get() (KeyPair, error) {
	return p.GetContext(context.Background())
}

// GetContext is Get with a parent context for tracing.
func (p *KeyPool) GetContext(ctx context.Context) (KeyPair, error) {
	if p.closed.Load() {
		return KeyPair{}, qerrors.NewCryptoError("dh.KeyPool.Get", qerrors.ErrPoolClosed)
	}

	select {
	case kp := <-p.pairs:
		p.observer.OnGet(true)
		p.engine.obs.OnPrecomputedUsed()
		return kp, nil
	default:
	}

	pub, priv, err := p.engine.GeneratePublicContext(ctx)
	if err != nil {
		return KeyPair{}, err
	}
	p.observer.OnGet(false)
	return KeyPair{Public: pub, Private: priv}, nil
}

// Fill tops the pool up by at most n pairs, bounded by free capacity, and
// returns how many were added. n <= 0 means fill to capacity. Filling a pool
// whose engine is not initialized fails with ErrNotInitialized.
func (p *KeyPool) Fill(ctx context.Context, n int) (int, error) {
	p.fillMu.Lock()
	defer p.fillMu.Unlock()

	if p.closed.Load() {
		return 0, qerrors.NewCryptoError("dh.KeyPool.Fill", qerrors.ErrPoolClosed)
	}
	if !p.engine.Initialized() {
		return 0, qerrors.NewCryptoError("dh.KeyPool.Fill", qerrors.ErrNotInitialized)
	}

	free := cap(p.pairs) - len(p.pairs)
	if n <= 0 || n > free {
		n = free
	}
	if n == 0 {
		return 0, nil
	}

	start := time.Now()
	pairs, _ := p.engine.PrecomputeBatchContext(ctx, n)

	added := 0
	for i := range pairs {
		select {
		case p.pairs <- pairs[i]:
			added++
		default:
			pairs[i].Zeroize()
		}
	}
	p.observer.OnRefill(n, added, time.Since(start))

	if err := ctx.Err(); err != nil {
		return added, err
	}
	return added, nil
}

// Len returns the number of pairs waiting in the pool.
func (p *KeyPool) Len() int {
	return len(p.pairs)
}

// Cap returns the pool capacity.
func (p *KeyPool) Cap() int {
	return cap(p.pairs)
}

// Drain discards every pooled pair, zeroizing its exponent, and returns how
// many were discarded. The pool stays usable.
func (p *KeyPool) Drain() int {
	n := 0
	for {
		select {
		case kp := <-p.pairs:
			kp.Zeroize()
			n++
		default:
			p.observer.OnDrain(n)
			return n
		}
	}
}

// Close drains the pool and makes later Get and Fill calls fail with
// ErrPoolClosed.
func (p *KeyPool) Close() {
	p.fillMu.Lock()
	defer p.fillMu.Unlock()

	if p.closed.Swap(true) {
		return
	}
	p.Drain()
}
