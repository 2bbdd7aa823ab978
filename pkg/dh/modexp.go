package dh

import (
	"math/big"

	"github.com/pzverkov/dhaccel/internal/constants"
	qerrors "github.com/pzverkov/dhaccel/internal/errors"
)

// expGenerator computes g^exponent mod p into out.
func (grp *Group) expGenerator(s *scratch, exponent *[ValueSize]byte, out *[ValueSize]byte) error {
	s.exp.SetBytes(exponent[:])
	s.result.Exp(grp.g, &s.exp, grp.p)
	return fillValue(out, &s.result)
}

// exp computes base^exponent mod p into out.
func (grp *Group) exp(s *scratch, base, exponent *[ValueSize]byte, out *[ValueSize]byte) error {
	s.base.SetBytes(base[:])
	s.exp.SetBytes(exponent[:])
	s.result.Exp(&s.base, &s.exp, grp.p)
	return fillValue(out, &s.result)
}

// fillValue writes x into out as a big-endian value left-padded with zeros.
// A result of exactly ValueSize bytes is written as is; a longer one is
// ErrOverflow and leaves out zeroed.
func fillValue(out *[ValueSize]byte, x *big.Int) error {
	switch {
	case x.Sign() < 0:
		clear(out[:])
		return qerrors.ErrComputation
	case x.BitLen() > constants.PrimeBits:
		clear(out[:])
		return qerrors.ErrOverflow
	}
	x.FillBytes(out[:])
	return nil
}
