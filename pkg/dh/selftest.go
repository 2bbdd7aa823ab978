package dh

import (
	"context"
	"fmt"

	qerrors "github.com/pzverkov/dhaccel/internal/errors"
	"github.com/pzverkov/dhaccel/pkg/crypto"
)

// runSelfTest checks a freshly built state before Init publishes it:
//
//  1. Random source health: two samples, non-degenerate and distinct.
//  2. Known answers for the key derivation and digest primitives.
//  3. Known answer: 3^2 mod p = 9.
//  4. Pairwise consistency: two fresh key pairs agree on a shared secret.
//
// Nothing here touches the cache or the counters.
func (e *Engine) runSelfTest(ctx context.Context, st *engineState) (err error) {
	_, done := e.obs.OnSelfTest(ctx)
	defer func() { done(err) }()

	if err := crypto.RNGHealthCheck(e.random); err != nil {
		return qerrors.Wrap(qerrors.ErrSelfTest, err)
	}

	if err := crypto.RunSelfTest(); err != nil {
		return err
	}

	s := st.scratch.get()
	defer st.scratch.put(s)

	if err := knownAnswerTest(st.group, s); err != nil {
		return qerrors.Wrap(qerrors.ErrSelfTest, err)
	}
	if err := e.pairwiseTest(st.group, s); err != nil {
		return qerrors.Wrap(qerrors.ErrSelfTest, err)
	}
	return nil
}

func knownAnswerTest(grp *Group, s *scratch) error {
	var exponent, out [ValueSize]byte
	exponent[ValueSize-1] = 2

	if err := grp.expGenerator(s, &exponent, &out); err != nil {
		return fmt.Errorf("known answer: %w", err)
	}
	var want [ValueSize]byte
	want[ValueSize-1] = 9
	if out != want {
		return fmt.Errorf("known answer: g^2 mod p mismatch")
	}
	return nil
}

func (e *Engine) pairwiseTest(grp *Group, s *scratch) error {
	var a, b, pubA, pubB, s1, s2 [ValueSize]byte
	defer crypto.ZeroizeMultiple(a[:], b[:], s1[:], s2[:])

	for _, x := range []*[ValueSize]byte{&a, &b} {
		if err := crypto.ReadRandom(e.random, x[:]); err != nil {
			return fmt.Errorf("pairwise: %w", err)
		}
		if !Validate(x) {
			return fmt.Errorf("pairwise: %w", qerrors.ErrWeakValue)
		}
	}

	if err := grp.expGenerator(s, &a, &pubA); err != nil {
		return fmt.Errorf("pairwise: %w", err)
	}
	if err := grp.expGenerator(s, &b, &pubB); err != nil {
		return fmt.Errorf("pairwise: %w", err)
	}
	if err := grp.exp(s, &pubB, &a, &s1); err != nil {
		return fmt.Errorf("pairwise: %w", err)
	}
	if err := grp.exp(s, &pubA, &b, &s2); err != nil {
		return fmt.Errorf("pairwise: %w", err)
	}
	if !crypto.ConstantTimeCompare(s1[:], s2[:]) {
		return fmt.Errorf("pairwise: shared secrets differ")
	}
	return nil
}
