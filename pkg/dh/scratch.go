package dh

import (
	"math/big"
	"sync"
)

// scratch holds the big.Int operands of one modular exponentiation. A
// goroutine borrows a scratch exclusively for the duration of one call, so
// the limb buffers are reused instead of reallocated on every exchange.
type scratch struct {
	base   big.Int
	exp    big.Int
	result big.Int
}

// wipe zeroes every limb, including spare capacity left by earlier, larger
// values, then resets the operands to zero.
func (s *scratch) wipe() {
	wipeInt(&s.base)
	wipeInt(&s.exp)
	wipeInt(&s.result)
}

func wipeInt(x *big.Int) {
	limbs := x.Bits()
	clear(limbs[:cap(limbs)])
	x.SetInt64(0)
}

// scratchPool hands out scratch contexts. Idle contexts are released by the
// garbage collector.
type scratchPool struct {
	pool sync.Pool
}

func newScratchPool() *scratchPool {
	return &scratchPool{
		pool: sync.Pool{
			New: func() any { return new(scratch) },
		},
	}
}

func (p *scratchPool) get() *scratch {
	return p.pool.Get().(*scratch)
}

// put wipes s and returns it to the pool. s must not be used afterwards.
func (p *scratchPool) put(s *scratch) {
	s.wipe()
	p.pool.Put(s)
}
