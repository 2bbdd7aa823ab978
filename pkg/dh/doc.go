// Package dh implements a cached finite-field Diffie-Hellman engine over the
// 2048-bit MODP group of RFC 3526 (group 14) with generator 3.
//
// # Overview
//
// An Engine owns the group parameters, a pool of exponentiation scratch
// contexts and a 512-slot direct-mapped ResultCache of shared secrets:
//
//	eng, err := dh.New(dh.WithCollector(collector))
//	if err != nil {
//		return err
//	}
//	defer eng.Cleanup()
//
//	pub, priv, err := eng.GeneratePublic()
//	// send pub, receive peerPub
//	secret, err := eng.ComputeSharedSecret(peerPub, priv)
//	priv.Zeroize()
//
// All values are fixed 256-byte big-endian buffers, left-padded with zeros.
//
// # Weak Values
//
// Every freshly drawn private exponent and every peer public value must
// pass Validate, which rejects a value whose first 8 bytes are all zero.
// The check is a coarse structural heuristic. It does not reject values
// close to p or in small subgroups.
//
// # Result Cache
//
// ComputeSharedSecret consults the cache before exponentiating. A slot is
// chosen by a djb2 hash of the peer value and the exponent; colliding keys
// evict each other. A cached result is returned only when the slot's hash,
// base and exponent digest all match, so the cache can miss spuriously but
// never returns a secret for a different key. The exponent itself is never
// stored; entries keep a SHA3-256 digest of it.
//
// # Concurrency
//
// Engine methods are safe for concurrent use. Each slot of the cache is an
// atomic pointer to an immutable entry. Scratch contexts are borrowed from a
// sync.Pool for the duration of one exponentiation and wiped on return.
// Cleanup may race with in-flight operations: those finish against the state
// they already loaded, and later calls fail with ErrNotInitialized.
package dh
