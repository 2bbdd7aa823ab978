package dh_test

import (
	"errors"
	"testing"

	qerrors "github.com/pzverkov/dhaccel/internal/errors"
	"github.com/pzverkov/dhaccel/pkg/dh"
)

// FuzzComputeSharedSecret feeds arbitrary peer values to the engine. Weak
// values must be rejected, everything else must succeed and be reproducible.
func FuzzComputeSharedSecret(f *testing.F) {
	f.Add([]byte{0, 0, 0, 0, 0, 0, 0, 1})
	f.Add([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
	f.Add([]byte{1})

	e, _ := newTestEngine(f)
	_, priv, err := e.GeneratePublic()
	if err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(t *testing.T, b []byte) {
		var peer dh.PublicValue
		copy(peer[:], b)

		s1, err := e.ComputeSharedSecret(peer, priv)
		if dh.IsWeak(peer[:]) {
			if !errors.Is(err, qerrors.ErrWeakValue) {
				t.Fatalf("weak peer accepted: %v", err)
			}
			return
		}
		if err != nil {
			t.Fatalf("compute failed: %v", err)
		}
		s2, err := e.ComputeSharedSecret(peer, priv)
		if err != nil || s1 != s2 {
			t.Fatalf("second compute differs: %v", err)
		}
	})
}
