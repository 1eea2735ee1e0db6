// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fixedmath

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

var (
	ErrLiquiditySub = errors.New("liquidity underflow")
	ErrLiquidityAdd = errors.New("liquidity overflow")
)

// LiquidityAddDelta applies a signed delta y to an unsigned 128-bit
// liquidity value x. Underflow and 128-bit overflow both fail.
func LiquidityAddDelta(x *uint256.Int, y *big.Int) (*uint256.Int, error) {
	if y.Sign() < 0 {
		abs, overflow := uint256.FromBig(new(big.Int).Neg(y))
		if overflow || x.Lt(abs) {
			return nil, ErrLiquiditySub
		}
		return new(uint256.Int).Sub(x, abs), nil
	}
	abs, overflow := uint256.FromBig(y)
	if overflow {
		return nil, ErrLiquidityAdd
	}
	z := new(uint256.Int).Add(x, abs)
	if z.Gt(MaxUint128) {
		return nil, ErrLiquidityAdd
	}
	return z, nil
}
