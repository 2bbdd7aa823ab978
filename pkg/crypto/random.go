// Package crypto provides the byte-level primitives shared by the dhaccel engine:
// CSPRNG reads, secret wiping, constant-time comparison and key derivation.
//
// Security Note: the default entropy source is crypto/rand, which reads from the
// operating system's CSPRNG. Tests may substitute a deterministic reader at the
// engine level; nothing in this package keeps global mutable state.
package crypto

import (
	"crypto/rand"
	"io"

	qerrors "github.com/pzverkov/dhaccel/internal/errors"
)

// Reader is the default source of cryptographically secure random bytes.
var Reader io.Reader = rand.Reader

// SecureRandom fills b from the operating system CSPRNG.
//
// An error here means the system random source failed and should be treated
// as a critical condition by the caller.
func SecureRandom(b []byte) error {
	return ReadRandom(Reader, b)
}

// ReadRandom fills b completely from r. A short read is an error; b is wiped
// before returning so partially filled secret material never escapes.
func ReadRandom(r io.Reader, b []byte) error {
	if r == nil {
		r = Reader
	}
	if _, err := io.ReadFull(r, b); err != nil {
		Zeroize(b)
		return qerrors.NewCryptoError("ReadRandom", err)
	}
	return nil
}

// ConstantTimeCompare reports whether a and b are equal without leaking the
// position of the first difference through timing.
func ConstantTimeCompare(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var result byte
	for i := range a {
		result |= a[i] ^ b[i]
	}
	return result == 0
}

// Zeroize overwrites b with zeros.
//
// Note: the Go runtime may already have copied the data, so this narrows rather
// than eliminates the exposure window.
func Zeroize(b []byte) {
	clear(b)
}

// ZeroizeMultiple wipes several slices.
func ZeroizeMultiple(slices ...[]byte) {
	for _, s := range slices {
		Zeroize(s)
	}
}
