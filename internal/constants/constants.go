// Package constants defines the group parameters, value sizes and cache geometry
// used by the dhaccel Diffie-Hellman engine.
//
// Security Level: 2048-bit MODP group (RFC 3526 group 14), roughly 112-bit
// classical security. The group is fixed at compile time and never configurable.
package constants

// Group parameters
const (
	// PrimeBits is the bit length of the group modulus p
	PrimeBits = 2048

	// PrimeHex is the 2048-bit MODP prime from RFC 3526 section 3:
	//
	//	p = 2^2048 - 2^1984 - 1 + 2^64 * ( [2^1918 pi] + 124476 )
	PrimeHex = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1" +
		"29024E088A67CC74020BBEA63B139B22514A08798E3404DD" +
		"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245" +
		"E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
		"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3D" +
		"C2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F" +
		"83655D23DCA3AD961C62F356208552BB9ED529077096966D" +
		"670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
		"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9" +
		"DE2BCBF6955817183995497CEA956AE515D2261898FA0510" +
		"15728E5A8AACAA68FFFFFFFFFFFFFFFF"

	// Generator is the group generator g
	Generator = 3
)

// Value sizes. Every public value, private exponent and shared secret is a
// fixed-length big-endian buffer, left-padded with zeros.
const (
	// ValueSize is the size of a public value, private exponent or shared secret in bytes
	ValueSize = PrimeBits / 8

	// WeakPrefixSize is the number of leading bytes that must not all be zero
	WeakPrefixSize = 8

	// ExponentDigestSize is the size of the exponent digest stored in cache entries
	ExponentDigestSize = 32
)

// Result cache geometry
const (
	// CacheSlots is the number of direct-mapped cache slots (power of two)
	CacheSlots = 512

	// CacheSlotMask selects a slot from a 32-bit hash key
	CacheSlotMask = CacheSlots - 1

	// CacheHashSeed is the djb2 initial value
	CacheHashSeed uint32 = 5381

	// CacheHashMultiplier is the djb2 multiplier
	CacheHashMultiplier uint32 = 33
)

// Key pool parameters
const (
	// DefaultKeyPoolCapacity is the number of precomputed key pairs a pool holds by default
	DefaultKeyPoolCapacity = 64
)

// Key Derivation Parameters (SHAKE-256)
const (
	// SessionKeySize is the size of each derived directional session key in bytes
	SessionKeySize = 32

	// MaxDerivedKeySize bounds a single KDF output
	MaxDerivedKeySize = 1 << 20

	// DomainSeparatorSession is used when deriving session keys from a shared secret
	DomainSeparatorSession = "dhaccel-Session-Keys"

	// DomainSeparatorCacheExponent is used for the exponent digest kept in cache entries
	DomainSeparatorCacheExponent = "dhaccel-Cache-Exponent"
)
