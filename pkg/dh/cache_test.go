package dh

import (
	"sync"
	"testing"

	"github.com/pzverkov/dhaccel/pkg/crypto"
)

func valueWith(seed byte) *[ValueSize]byte {
	var v [ValueSize]byte
	for i := range v {
		v[i] = seed + byte(i)
	}
	return &v
}

func TestHashKeyDeterministic(t *testing.T) {
	base, exp := valueWith(1), valueWith(2)
	h1 := hashKey(base, exp)
	h2 := hashKey(valueWith(1), valueWith(2))
	if h1 != h2 {
		t.Errorf("equal inputs hashed differently: %x vs %x", h1, h2)
	}
	if hashKey(base, exp) == hashKey(exp, base) {
		t.Error("hash should depend on argument order")
	}
	if SlotFor(base, exp) != int(h1&(CacheSlots-1)) {
		t.Error("SlotFor disagrees with hashKey")
	}
}

func TestHashKeyDJB2(t *testing.T) {
	var base [ValueSize]byte
	// djb2 over 256 zero bytes is 5381 * 33^256 mod 2^32.
	want := uint32(5381)
	for range ValueSize {
		want *= 33
	}
	if got := hashKey(&base, nil); got != want {
		t.Errorf("hashKey(zeros, nil) = %x, want %x", got, want)
	}

	base[ValueSize-1] = 7
	if got := hashKey(&base, nil); got != want+7 {
		t.Errorf("last byte should add directly: got %x, want %x", got, want+7)
	}
}

func TestResultCacheHitAndMiss(t *testing.T) {
	c := NewResultCache()
	base, exp, result := valueWith(1), valueWith(2), valueWith(3)

	if _, ok := c.Lookup(base, exp); ok {
		t.Fatal("empty cache reported a hit")
	}
	if evicted := c.Insert(base, exp, result); evicted {
		t.Error("insert into empty slot reported an eviction")
	}

	got, ok := c.Lookup(base, exp)
	if !ok {
		t.Fatal("expected hit after insert")
	}
	if got != *result {
		t.Error("cached result differs from inserted result")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}

	if c.Insert(base, exp, result) {
		t.Error("re-inserting the same key is not an eviction")
	}
}

func TestResultCacheRejectsMismatchedKey(t *testing.T) {
	c := NewResultCache()
	base, other := valueWith(1), valueWith(9)
	dA := crypto.ExponentDigest(valueWith(2)[:])
	dB := crypto.ExponentDigest(valueWith(4)[:])
	result := valueWith(3)

	const hash = 0xdeadbeef
	c.insert(hash, base, &dA, result)

	tests := []struct {
		name   string
		hash   uint32
		base   *[ValueSize]byte
		digest *exponentDigest
		hit    bool
	}{
		{"exact", hash, base, &dA, true},
		{"different exponent", hash, base, &dB, false},
		{"different base", hash, other, &dA, false},
		{"same slot different hash", hash ^ (1 << 20), base, &dA, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if slotFor(tt.hash) != slotFor(hash) {
				t.Fatal("test key must map to the same slot")
			}
			_, ok := c.lookup(tt.hash, tt.base, tt.digest)
			if ok != tt.hit {
				t.Errorf("hit = %v, want %v", ok, tt.hit)
			}
		})
	}
}

// collidingBases returns two distinct bases that share a slot for exponent.
func collidingBases(t *testing.T, exponent *[ValueSize]byte) (*[ValueSize]byte, *[ValueSize]byte) {
	t.Helper()
	seen := make(map[int]*[ValueSize]byte)
	for i := range 1 << 16 {
		b := new([ValueSize]byte)
		b[0] = 1
		b[ValueSize-2] = byte(i >> 8)
		b[ValueSize-1] = byte(i)
		slot := SlotFor(b, exponent)
		if prev, ok := seen[slot]; ok {
			return prev, b
		}
		seen[slot] = b
	}
	t.Fatal("no collision found")
	return nil, nil
}

func TestResultCacheEviction(t *testing.T) {
	c := NewResultCache()
	exp := valueWith(2)
	b1, b2 := collidingBases(t, exp)
	r1, r2 := valueWith(10), valueWith(20)

	c.Insert(b1, exp, r1)
	if !c.Insert(b2, exp, r2) {
		t.Error("colliding insert should report an eviction")
	}
	if _, ok := c.Lookup(b1, exp); ok {
		t.Error("evicted key still hits")
	}
	if got, ok := c.Lookup(b2, exp); !ok || got != *r2 {
		t.Error("newest key should hit with its own result")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestResultCacheReset(t *testing.T) {
	var c ResultCache // zero value is usable
	for i := range 10 {
		c.Insert(valueWith(byte(i)), valueWith(byte(100+i)), valueWith(0))
	}
	if c.Len() == 0 {
		t.Fatal("expected occupied slots")
	}
	c.Reset()
	if c.Len() != 0 {
		t.Errorf("Len after Reset = %d", c.Len())
	}
	if _, ok := c.Lookup(valueWith(0), valueWith(100)); ok {
		t.Error("hit after Reset")
	}
}

func TestResultCacheConcurrent(t *testing.T) {
	c := NewResultCache()
	exp := valueWith(2)
	b1, b2 := collidingBases(t, exp)
	r1, r2 := valueWith(10), valueWith(20)

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			base, result := b1, r1
			if g%2 == 1 {
				base, result = b2, r2
			}
			for range 500 {
				c.Insert(base, exp, result)
				if got, ok := c.Lookup(base, exp); ok && got != *result {
					t.Error("lookup returned a result stored under another key")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func FuzzHashKey(f *testing.F) {
	f.Add([]byte{1, 2, 3}, []byte{4, 5, 6})
	f.Fuzz(func(t *testing.T, a, b []byte) {
		var base, exp [ValueSize]byte
		copy(base[:], a)
		copy(exp[:], b)

		h := hashKey(&base, &exp)
		if h != hashKey(&base, &exp) {
			t.Fatal("hash is not deterministic")
		}
		if s := slotFor(h); s < 0 || s >= CacheSlots {
			t.Fatalf("slot %d out of range", s)
		}
	})
}
