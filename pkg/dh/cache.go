package dh

import (
	"sync/atomic"

	"github.com/pzverkov/dhaccel/internal/constants"
	"github.com/pzverkov/dhaccel/pkg/crypto"
)

// CacheSlots is the number of slots in a ResultCache.
const CacheSlots = constants.CacheSlots

type exponentDigest = [constants.ExponentDigestSize]byte

// cacheEntry is immutable once published in a slot.
type cacheEntry struct {
	hash   uint32
	base   [ValueSize]byte
	digest exponentDigest
	result [ValueSize]byte
}

func (e *cacheEntry) matches(hash uint32, base *[ValueSize]byte, digest *exponentDigest) bool {
	return e.hash == hash && e.base == *base && e.digest == *digest
}

// ResultCache is a fixed-size direct-mapped cache from (base, exponent) to
// a modular exponentiation result. Colliding keys evict each other. A
// lookup never returns a result stored under a different key.
//
// The zero value is an empty cache ready to use.
type ResultCache struct {
	slots [CacheSlots]atomic.Pointer[cacheEntry]
}

// NewResultCache returns an empty cache.
func NewResultCache() *ResultCache {
	return new(ResultCache)
}

// hashKey folds the base bytes and then, when exponent is non-nil, the
// exponent bytes with djb2: h = h*33 + b.
func hashKey(base, exponent *[ValueSize]byte) uint32 {
	h := constants.CacheHashSeed
	for _, b := range base {
		h = h*constants.CacheHashMultiplier + uint32(b)
	}
	if exponent != nil {
		for _, b := range exponent {
			h = h*constants.CacheHashMultiplier + uint32(b)
		}
	}
	return h
}

func slotFor(hash uint32) int {
	return int(hash & constants.CacheSlotMask)
}

// SlotFor returns the slot index a (base, exponent) pair maps to.
func SlotFor(base, exponent *[ValueSize]byte) int {
	return slotFor(hashKey(base, exponent))
}

// Lookup returns the cached result for (base, exponent).
func (c *ResultCache) Lookup(base, exponent *[ValueSize]byte) ([ValueSize]byte, bool) {
	d := crypto.ExponentDigest(exponent[:])
	return c.lookup(hashKey(base, exponent), base, &d)
}

func (c *ResultCache) lookup(hash uint32, base *[ValueSize]byte, digest *exponentDigest) ([ValueSize]byte, bool) {
	e := c.slots[slotFor(hash)].Load()
	if e == nil || !e.matches(hash, base, digest) {
		return [ValueSize]byte{}, false
	}
	return e.result, true
}

// Insert stores result for (base, exponent), overwriting whatever occupied
// the slot. It reports whether a different key was evicted.
func (c *ResultCache) Insert(base, exponent, result *[ValueSize]byte) (evicted bool) {
	d := crypto.ExponentDigest(exponent[:])
	return c.insert(hashKey(base, exponent), base, &d, result)
}

func (c *ResultCache) insert(hash uint32, base *[ValueSize]byte, digest *exponentDigest, result *[ValueSize]byte) bool {
	e := &cacheEntry{hash: hash, base: *base, digest: *digest, result: *result}
	old := c.slots[slotFor(hash)].Swap(e)
	return old != nil && !old.matches(hash, base, digest)
}

// Len returns the number of occupied slots.
func (c *ResultCache) Len() int {
	n := 0
	for i := range c.slots {
		if c.slots[i].Load() != nil {
			n++
		}
	}
	return n
}

// Reset empties every slot.
func (c *ResultCache) Reset() {
	for i := range c.slots {
		c.slots[i].Store(nil)
	}
}
