// health.go implements entropy-source health tests in the style of the
// FIPS 140-3 conditional self-tests:
//
//  1. Startup health check: two fresh samples must be non-degenerate (not all
//     zero, not a single repeated byte) and must differ from each other.
//
//  2. Continuous test: every draw is compared with the previous one and a
//     repeat is a failure. Only a one-way digest of the previous draw is kept.
package crypto

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/sha3"

	qerrors "github.com/pzverkov/dhaccel/internal/errors"
)

// rngSampleSize is the sample length used by RNGHealthCheck.
const rngSampleSize = 32

// RNGHealthCheck draws two samples from r (nil means Reader) and verifies
// they are non-degenerate and distinct.
func RNGHealthCheck(r io.Reader) error {
	var s1, s2 [rngSampleSize]byte
	defer Zeroize(s1[:])
	defer Zeroize(s2[:])

	if err := ReadRandom(r, s1[:]); err != nil {
		return qerrors.Wrap(qerrors.ErrRNGHealth, err)
	}
	if err := ReadRandom(r, s2[:]); err != nil {
		return qerrors.Wrap(qerrors.ErrRNGHealth, err)
	}

	for i, s := range [][]byte{s1[:], s2[:]} {
		if isDegenerate(s) {
			return qerrors.Wrap(qerrors.ErrRNGHealth, fmt.Errorf("sample %d has no variation", i+1))
		}
	}
	if bytes.Equal(s1[:], s2[:]) {
		return qerrors.Wrap(qerrors.ErrRNGHealth, fmt.Errorf("identical consecutive samples"))
	}
	return nil
}

// isDegenerate reports whether every byte of b equals b[0]. That covers the
// all-zero sample too.
func isDegenerate(b []byte) bool {
	for _, c := range b[1:] {
		if c != b[0] {
			return false
		}
	}
	return true
}

// ContinuousRNGTest remembers a digest of the last draw and fails when the
// next draw repeats it. The zero value is ready to use.
type ContinuousRNGTest struct {
	mu   sync.Mutex
	last [32]byte
	seen bool
}

// Check records output and reports ErrRNGHealth if it equals the previous
// output passed to Check.
func (c *ContinuousRNGTest) Check(output []byte) error {
	d := sha3.Sum256(output)

	c.mu.Lock()
	defer c.mu.Unlock()

	repeated := c.seen && d == c.last
	c.last, c.seen = d, true
	if repeated {
		return qerrors.Wrap(qerrors.ErrRNGHealth, fmt.Errorf("repeated output"))
	}
	return nil
}

// Reset forgets the previous draw.
func (c *ContinuousRNGTest) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last, c.seen = [32]byte{}, false
}
