package dh

import (
	"encoding/hex"

	"github.com/pzverkov/dhaccel/internal/constants"
	qerrors "github.com/pzverkov/dhaccel/internal/errors"
	"github.com/pzverkov/dhaccel/pkg/crypto"
)

// ValueSize is the length in bytes of every public value, private exponent
// and shared secret.
const ValueSize = constants.ValueSize

// PublicValue is g^a mod p, safe to send to a peer.
type PublicValue [ValueSize]byte

// PrivateExponent is a secret exponent a. It is owned by the caller, used
// for a single exchange and never cached.
type PrivateExponent [ValueSize]byte

// SharedSecret is g^(ab) mod p. Feed it through crypto.DeriveSessionKeys
// before using it as key material.
type SharedSecret [ValueSize]byte

// String returns the hex encoding of the public value.
func (v PublicValue) String() string {
	return hex.EncodeToString(v[:])
}

// Zeroize wipes the exponent.
func (x *PrivateExponent) Zeroize() {
	crypto.Zeroize(x[:])
}

// Zeroize wipes the secret.
func (s *SharedSecret) Zeroize() {
	crypto.Zeroize(s[:])
}

// Equal compares two secrets in constant time.
func (s *SharedSecret) Equal(other *SharedSecret) bool {
	return crypto.ConstantTimeCompare(s[:], other[:])
}

// PublicValueFromBytes copies b into a PublicValue. b must be exactly
// ValueSize bytes.
func PublicValueFromBytes(b []byte) (PublicValue, error) {
	var v PublicValue
	if len(b) != ValueSize {
		return v, qerrors.NewCryptoError("dh.PublicValueFromBytes", qerrors.ErrInvalidValueSize)
	}
	copy(v[:], b)
	return v, nil
}

// PublicValueFromHex decodes a hex-encoded public value.
func PublicValueFromHex(s string) (PublicValue, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return PublicValue{}, qerrors.NewCryptoError("dh.PublicValueFromHex", qerrors.Wrap(qerrors.ErrInvalidValueSize, err))
	}
	return PublicValueFromBytes(b)
}

// KeyPair is a public value together with the exponent that produced it.
type KeyPair struct {
	Public  PublicValue
	Private PrivateExponent
}

// Zeroize wipes the private half of the pair.
func (kp *KeyPair) Zeroize() {
	kp.Private.Zeroize()
}
