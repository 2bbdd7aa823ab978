// kdf.go derives symmetric key material from a Diffie-Hellman shared secret
// using SHAKE-256 (FIPS 202).
//
// A raw DH output g^(ab) mod p is a group element, not a uniformly random key:
// its high bits are biased by the modulus. Callers must feed it through a KDF
// before using it as a cipher key.
//
// Construction:
//
//	K = SHAKE-256(len(domain) || domain || n || len(x1) || x1 || ... , L)
//
// Every length prefix is a 4-byte big-endian integer so that concatenations
// of different inputs can never collide.
package crypto

import (
	"encoding/binary"
	"io"

	"golang.org/x/crypto/sha3"

	"github.com/pzverkov/dhaccel/internal/constants"
	qerrors "github.com/pzverkov/dhaccel/internal/errors"
)

// DeriveKey derives outputLen bytes from a single input under a domain separator.
func DeriveKey(domain string, input []byte, outputLen int) ([]byte, error) {
	if outputLen <= 0 || outputLen > constants.MaxDerivedKeySize {
		return nil, qerrors.NewCryptoError("DeriveKey", qerrors.ErrInvalidKeySize)
	}

	h := sha3.NewShake256()
	writePrefixed(h, []byte(domain))
	writePrefixed(h, input)

	output := make([]byte, outputLen)
	_, _ = h.Read(output) // SHAKE256.Read never fails
	return output, nil
}

// DeriveKeyMultiple derives outputLen bytes from several inputs. The number of
// inputs is absorbed before the inputs themselves.
func DeriveKeyMultiple(domain string, inputs [][]byte, outputLen int) ([]byte, error) {
	if outputLen <= 0 || outputLen > constants.MaxDerivedKeySize {
		return nil, qerrors.NewCryptoError("DeriveKeyMultiple", qerrors.ErrInvalidKeySize)
	}

	h := sha3.NewShake256()
	writePrefixed(h, []byte(domain))

	var count [4]byte
	binary.BigEndian.PutUint32(count[:], uint32(len(inputs)))
	h.Write(count[:])

	for _, input := range inputs {
		writePrefixed(h, input)
	}

	output := make([]byte, outputLen)
	_, _ = h.Read(output)
	return output, nil
}

// DeriveSessionKeys splits a shared secret into two directional keys.
//
// Both public values are bound into the derivation so a secret reused across
// different exchanges still yields unrelated keys. The initiator encrypts with
// initiatorKey and the responder with responderKey.
func DeriveSessionKeys(sharedSecret, initiatorPublic, responderPublic []byte) (initiatorKey, responderKey []byte, err error) {
	material, err := DeriveKeyMultiple(
		constants.DomainSeparatorSession,
		[][]byte{sharedSecret, initiatorPublic, responderPublic},
		2*constants.SessionKeySize,
	)
	if err != nil {
		return nil, nil, err
	}
	return material[:constants.SessionKeySize], material[constants.SessionKeySize:], nil
}

// ExponentDigest returns a one-way 32-byte fingerprint of a private exponent.
// The result cache stores this digest so it can tell exponents apart without
// ever holding the exponent itself.
func ExponentDigest(exponent []byte) [constants.ExponentDigestSize]byte {
	h := sha3.New256()
	writePrefixed(h, []byte(constants.DomainSeparatorCacheExponent))
	h.Write(exponent)

	var out [constants.ExponentDigestSize]byte
	h.Sum(out[:0])
	return out
}

func writePrefixed(w io.Writer, b []byte) {
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(b)))
	w.Write(prefix[:])
	w.Write(b)
}
