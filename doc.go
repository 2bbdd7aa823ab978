// Package dhaccel provides a cached finite-field Diffie-Hellman engine over the
// 2048-bit MODP group of RFC 3526 (group 14) with generator 3.
//
// # Quick Start
//
//	import "github.com/pzverkov/dhaccel/pkg/dh"
//
//	eng, _ := dh.New()
//	defer eng.Cleanup()
//
//	pub, priv, _ := eng.GeneratePublic()
//	// exchange pub for the peer's public value
//	secret, _ := eng.ComputeSharedSecret(peerPub, priv)
//	priv.Zeroize()
//
//	initKey, respKey, _ := crypto.DeriveSessionKeys(secret[:], initiatorPub[:], responderPub[:])
//
// Repeating a computation with the same peer value and exponent is served
// from a 512-slot direct-mapped result cache.
//
// # Package Structure
//
//   - pkg/dh: Engine, ResultCache, KeyPool, weak-value guard
//   - pkg/crypto: CSPRNG helpers, zeroization, SHAKE-256 key derivation, RNG health tests
//   - pkg/metrics: counters, histograms, logging, tracing, Prometheus and health endpoints
//   - pkg/version: release version
//   - internal/constants: group parameters, value sizes and cache geometry
//   - internal/errors: sentinel errors and CryptoError
//
// # Security Properties
//
//   - Group: 2048-bit safe-prime MODP group, roughly 112-bit classical security
//   - Weak-value guard: values whose first 8 bytes are all zero are rejected
//   - No exponent is ever stored: cache entries keep a SHA3-256 digest
//   - Secrets and exponents are wiped with Zeroize; scratch big.Int limbs are cleared after use
//
// The weak-value guard is a coarse heuristic. It does not reject values close
// to p or in small subgroups.
//
// # Testing
//
//	go test ./...                                    # All tests
//	go test -fuzz=FuzzComputeSharedSecret ./pkg/dh   # Fuzz tests
//	go test -bench=. ./pkg/dh                        # Benchmarks
//	go test -tags fips ./...                         # Self-tests on by default
//
// # References
//
//   - RFC 3526: More Modular Exponential (MODP) Diffie-Hellman groups
//   - NIST FIPS 202: SHA-3 Standard (SHAKE-256)
package dhaccel
