package dh

import (
	"context"
	"errors"

	"github.com/pzverkov/dhaccel/internal/constants"
	qerrors "github.com/pzverkov/dhaccel/internal/errors"
)

// PrecomputeBatch runs GeneratePublic count times and returns the pairs that
// succeeded together with their number. A failed generation is counted as a
// fallback and skipped; compare the result with count to detect a partial
// batch. On an engine that is not initialized the batch stops after the
// first failure. The caller owns the returned exponents.
func (e *Engine) PrecomputeBatch(count int) ([]KeyPair, int) {
	return e.PrecomputeBatchContext(context.Background(), count)
}

// PrecomputeBatchContext is PrecomputeBatch that also stops between
// generations once ctx is done.
func (e *Engine) PrecomputeBatchContext(ctx context.Context, count int) ([]KeyPair, int) {
	if count <= 0 {
		return nil, 0
	}

	ctx, done := e.obs.OnPrecompute(ctx, count)
	pairs := make([]KeyPair, 0, min(count, constants.DefaultKeyPoolCapacity))
	defer func() { done(len(pairs)) }()

	for range count {
		if ctx.Err() != nil {
			break
		}
		pub, priv, err := e.GeneratePublicContext(ctx)
		if errors.Is(err, qerrors.ErrNotInitialized) {
			break
		}
		if err != nil {
			continue
		}
		pairs = append(pairs, KeyPair{Public: pub, Private: priv})
	}
	return pairs, len(pairs)
}
