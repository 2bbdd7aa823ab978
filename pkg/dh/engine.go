package dh

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	qerrors "github.com/pzverkov/dhaccel/internal/errors"
	"github.com/pzverkov/dhaccel/pkg/crypto"
	"github.com/pzverkov/dhaccel/pkg/metrics"
)

// engineState is everything Init builds and Cleanup discards. It is
// immutable once published.
type engineState struct {
	group   *Group
	cache   *ResultCache
	scratch *scratchPool
}

// Engine performs Diffie-Hellman key generation and shared-secret
// computation. Create one with New, or NewEngine followed by Init.
type Engine struct {
	mu    sync.Mutex // serializes Init and Cleanup
	state atomic.Pointer[engineState]

	obs      *metrics.EngineObserver
	random   io.Reader
	selfTest bool
	rngTest  crypto.ContinuousRNGTest
}

// NewEngine returns an engine that still needs Init.
func NewEngine(opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.collector == nil {
		cfg.collector = metrics.NewCollector(nil)
	}
	return &Engine{
		obs: metrics.NewEngineObserver(metrics.EngineObserverConfig{
			Collector: cfg.collector,
			Tracer:    cfg.tracer,
			Logger:    cfg.logger,
		}),
		random:   cfg.random,
		selfTest: cfg.selfTest,
	}
}

// New returns an initialized engine.
func New(opts ...Option) (*Engine, error) {
	e := NewEngine(opts...)
	if err := e.Init(); err != nil {
		return nil, err
	}
	return e, nil
}

// Init parses the group and allocates an empty cache. It is a no-op on an
// initialized engine. On failure nothing is retained and Init may be
// retried.
func (e *Engine) Init() error {
	return e.InitContext(context.Background())
}

// InitContext is Init with a parent context for tracing.
func (e *Engine) InitContext(ctx context.Context) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Load() != nil {
		return nil
	}

	ctx, done := e.obs.OnInit(ctx)
	defer func() { done(err) }()

	grp, err := NewGroup()
	if err != nil {
		return err
	}
	st := &engineState{
		group:   grp,
		cache:   NewResultCache(),
		scratch: newScratchPool(),
	}

	if e.selfTest {
		if err := e.runSelfTest(ctx, st); err != nil {
			return qerrors.NewCryptoError("dh.Init", qerrors.Wrap(qerrors.ErrInitialization, err))
		}
	}

	e.rngTest.Reset()
	e.state.Store(st)
	return nil
}

// Cleanup drops the cache and group, logs a final stats summary and returns
// the engine to the uninitialized state. Calling it on an uninitialized
// engine does nothing.
func (e *Engine) Cleanup() {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.state.Swap(nil)
	if st == nil {
		return
	}
	st.cache.Reset()
	e.rngTest.Reset()
	e.obs.OnCleanup()
}

// Initialized reports whether the engine is ready for use.
func (e *Engine) Initialized() bool {
	return e.state.Load() != nil
}

// Ready returns ErrNotInitialized until Init succeeds. It fits
// metrics.CheckFunc.
func (e *Engine) Ready() error {
	if !e.Initialized() {
		return qerrors.ErrNotInitialized
	}
	return nil
}

// GeneratePublic draws a fresh private exponent and returns g^a mod p with it.
func (e *Engine) GeneratePublic() (PublicValue, PrivateExponent, error) {
	return e.GeneratePublicContext(context.Background())
}

// GeneratePublicContext is GeneratePublic with a parent context for tracing.
// The exponentiation itself is not interruptible.
func (e *Engine) GeneratePublicContext(ctx context.Context) (pub PublicValue, priv PrivateExponent, err error) {
	const op = "dh.GeneratePublic"

	_, done := e.obs.OnGenerate(ctx)
	defer func() { done(err) }()

	st := e.state.Load()
	if st == nil {
		return pub, priv, qerrors.NewCryptoError(op, qerrors.ErrNotInitialized)
	}

	if err := crypto.ReadRandom(e.random, priv[:]); err != nil {
		return pub, priv, qerrors.NewCryptoError(op, qerrors.Wrap(qerrors.ErrComputation, err))
	}
	if e.selfTest {
		if err := e.rngTest.Check(priv[:]); err != nil {
			priv.Zeroize()
			return pub, priv, qerrors.NewCryptoError(op, qerrors.Wrap(qerrors.ErrComputation, err))
		}
	}
	if !Validate((*[ValueSize]byte)(&priv)) {
		priv.Zeroize()
		return pub, priv, qerrors.NewCryptoError(op, qerrors.ErrWeakValue)
	}

	s := st.scratch.get()
	defer st.scratch.put(s)

	start := time.Now()
	if err := st.group.expGenerator(s, (*[ValueSize]byte)(&priv), (*[ValueSize]byte)(&pub)); err != nil {
		priv.Zeroize()
		return PublicValue{}, priv, qerrors.NewCryptoError(op, err)
	}
	e.obs.OnModExp(time.Since(start))

	return pub, priv, nil
}

// ComputeSharedSecret returns peer^own mod p, serving it from the result
// cache when the same pair was computed before.
func (e *Engine) ComputeSharedSecret(peer PublicValue, own PrivateExponent) (SharedSecret, error) {
	return e.ComputeSharedSecretContext(context.Background(), peer, own)
}

// ComputeSharedSecretContext is ComputeSharedSecret with a parent context
// for tracing.
func (e *Engine) ComputeSharedSecretContext(ctx context.Context, peer PublicValue, own PrivateExponent) (secret SharedSecret, err error) {
	const op = "dh.ComputeSharedSecret"

	base := (*[ValueSize]byte)(&peer)
	exponent := (*[ValueSize]byte)(&own)
	defer own.Zeroize()

	hash := hashKey(base, exponent)
	var outcome metrics.ComputeOutcome
	_, done := e.obs.OnCompute(ctx, slotFor(hash))
	defer func() { done(outcome, err) }()

	st := e.state.Load()
	if st == nil {
		return secret, qerrors.NewCryptoError(op, qerrors.ErrNotInitialized)
	}
	if !Validate(base) {
		return secret, qerrors.NewCryptoError(op, qerrors.ErrWeakValue)
	}

	digest := crypto.ExponentDigest(exponent[:])
	if cached, ok := st.cache.lookup(hash, base, &digest); ok {
		outcome.CacheHit = true
		return SharedSecret(cached), nil
	}

	s := st.scratch.get()
	defer st.scratch.put(s)

	start := time.Now()
	if err := st.group.exp(s, base, exponent, (*[ValueSize]byte)(&secret)); err != nil {
		return SharedSecret{}, qerrors.NewCryptoError(op, err)
	}
	e.obs.OnModExp(time.Since(start))

	outcome.Evicted = st.cache.insert(hash, base, &digest, (*[ValueSize]byte)(&secret))
	return secret, nil
}

// Stats returns a copy of the engine's counters.
func (e *Engine) Stats() metrics.Snapshot {
	return e.obs.Collector().Snapshot()
}

// LogSummary logs the current counters at info level.
func (e *Engine) LogSummary() {
	e.obs.LogSummary()
}

// CacheLen returns the number of occupied cache slots, or 0 when the engine
// is not initialized.
func (e *Engine) CacheLen() int {
	st := e.state.Load()
	if st == nil {
		return 0
	}
	return st.cache.Len()
}
