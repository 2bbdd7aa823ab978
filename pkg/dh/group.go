package dh

import (
	"math/big"

	"github.com/pzverkov/dhaccel/internal/constants"
	qerrors "github.com/pzverkov/dhaccel/internal/errors"
)

// Group holds the immutable parameters p and g. The prime is assumed to be
// correct and is not tested for primality.
type Group struct {
	p *big.Int
	g *big.Int
}

// NewGroup parses the embedded 2048-bit prime.
func NewGroup() (*Group, error) {
	return parseGroup(constants.PrimeHex, constants.Generator)
}

func parseGroup(primeHex string, generator int64) (*Group, error) {
	p, ok := new(big.Int).SetString(primeHex, 16)
	if !ok {
		return nil, qerrors.NewCryptoError("dh.NewGroup", qerrors.ErrInitialization)
	}
	if p.BitLen() != constants.PrimeBits || p.Bit(0) == 0 {
		return nil, qerrors.NewCryptoError("dh.NewGroup", qerrors.ErrInitialization)
	}
	return &Group{p: p, g: big.NewInt(generator)}, nil
}

// Prime returns a copy of p.
func (grp *Group) Prime() *big.Int {
	return new(big.Int).Set(grp.p)
}

// Generator returns a copy of g.
func (grp *Group) Generator() *big.Int {
	return new(big.Int).Set(grp.g)
}
