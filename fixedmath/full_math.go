// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fixedmath implements the Q64.96 / Q128.128 fixed-point primitives
// the pool core is built on: tick <-> sqrt price conversion, amount deltas
// along the price curve, and 512-bit-intermediate muldiv. All operations are
// deterministic integer math; nothing here touches floating point.
package fixedmath

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

// Shared fixed-point constants.
var (
	// Q96 = 2^96, the scale of sqrt prices.
	Q96 = new(uint256.Int).Lsh(uint256.NewInt(1), 96)

	// Q128 = 2^128, the scale of fee growth accumulators.
	Q128 = new(uint256.Int).Lsh(uint256.NewInt(1), 128)

	// MaxUint128 caps liquidity values.
	MaxUint128 = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 128), 1)

	// MaxUint160 caps sqrt prices.
	MaxUint160 = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 160), 1)

	// MaxUint256 is 2^256 - 1.
	MaxUint256 = new(uint256.Int).Not(uint256.NewInt(0))
)

var (
	ErrDivByZero      = errors.New("division by zero")
	ErrMulDivOverflow = errors.New("muldiv overflow")
)

// MulDiv computes floor(a * b / denominator) with a full 512-bit
// intermediate product. Fails if denominator is zero or the result does not
// fit in 256 bits.
func MulDiv(a, b, denominator *uint256.Int) (*uint256.Int, error) {
	if denominator.IsZero() {
		return nil, ErrDivByZero
	}
	product := new(big.Int).Mul(a.ToBig(), b.ToBig())
	product.Quo(product, denominator.ToBig())
	result, overflow := uint256.FromBig(product)
	if overflow {
		return nil, ErrMulDivOverflow
	}
	return result, nil
}

// MulDivRoundingUp computes ceil(a * b / denominator) with a full 512-bit
// intermediate product.
func MulDivRoundingUp(a, b, denominator *uint256.Int) (*uint256.Int, error) {
	if denominator.IsZero() {
		return nil, ErrDivByZero
	}
	product := new(big.Int).Mul(a.ToBig(), b.ToBig())
	quo, rem := new(big.Int).QuoRem(product, denominator.ToBig(), new(big.Int))
	if rem.Sign() != 0 {
		quo.Add(quo, bigOne)
	}
	result, overflow := uint256.FromBig(quo)
	if overflow {
		return nil, ErrMulDivOverflow
	}
	return result, nil
}

// DivRoundingUp computes ceil(a / denominator).
func DivRoundingUp(a, denominator *uint256.Int) (*uint256.Int, error) {
	if denominator.IsZero() {
		return nil, ErrDivByZero
	}
	quo := new(uint256.Int)
	rem := new(uint256.Int)
	quo.DivMod(a, denominator, rem)
	if !rem.IsZero() {
		quo.AddUint64(quo, 1)
	}
	return quo, nil
}

var bigOne = big.NewInt(1)
