// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fixedmath

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

var (
	ErrZeroPrice     = errors.New("sqrt price must be positive")
	ErrZeroLiquidity = errors.New("liquidity must be positive")
	ErrPriceOverflow = errors.New("sqrt price out of range for amount")
)

// GetAmount0Delta returns the amount0 required to move liquidity between two
// sqrt prices: liquidity * (sqrtB - sqrtA) / (sqrtA * sqrtB), in Q64.96.
// Rounding direction is explicit; the pool rounds up on amounts owed to it
// and down on amounts it pays out.
func GetAmount0Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	if sqrtRatioAX96.Gt(sqrtRatioBX96) {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	if sqrtRatioAX96.IsZero() {
		return nil, ErrZeroPrice
	}

	numerator1 := new(uint256.Int).Lsh(liquidity, 96)
	numerator2 := new(uint256.Int).Sub(sqrtRatioBX96, sqrtRatioAX96)

	if roundUp {
		inner, err := MulDivRoundingUp(numerator1, numerator2, sqrtRatioBX96)
		if err != nil {
			return nil, err
		}
		return DivRoundingUp(inner, sqrtRatioAX96)
	}
	inner, err := MulDiv(numerator1, numerator2, sqrtRatioBX96)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Div(inner, sqrtRatioAX96), nil
}

// GetAmount1Delta returns the amount1 required to move liquidity between two
// sqrt prices: liquidity * (sqrtB - sqrtA) / 2^96.
func GetAmount1Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	if sqrtRatioAX96.Gt(sqrtRatioBX96) {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	diff := new(uint256.Int).Sub(sqrtRatioBX96, sqrtRatioAX96)
	if roundUp {
		return MulDivRoundingUp(liquidity, diff, Q96)
	}
	return MulDiv(liquidity, diff, Q96)
}

// GetAmount0DeltaSigned is the signed variant used by mint/burn: negative
// liquidity yields the negated round-down amount, positive liquidity the
// round-up amount.
func GetAmount0DeltaSigned(sqrtRatioAX96, sqrtRatioBX96 *uint256.Int, liquidity *big.Int) (*big.Int, error) {
	if liquidity.Sign() < 0 {
		absLiq, _ := uint256.FromBig(new(big.Int).Neg(liquidity))
		amount, err := GetAmount0Delta(sqrtRatioAX96, sqrtRatioBX96, absLiq, false)
		if err != nil {
			return nil, err
		}
		return new(big.Int).Neg(amount.ToBig()), nil
	}
	absLiq, _ := uint256.FromBig(liquidity)
	amount, err := GetAmount0Delta(sqrtRatioAX96, sqrtRatioBX96, absLiq, true)
	if err != nil {
		return nil, err
	}
	return amount.ToBig(), nil
}

// GetAmount1DeltaSigned is the signed variant of GetAmount1Delta.
func GetAmount1DeltaSigned(sqrtRatioAX96, sqrtRatioBX96 *uint256.Int, liquidity *big.Int) (*big.Int, error) {
	if liquidity.Sign() < 0 {
		absLiq, _ := uint256.FromBig(new(big.Int).Neg(liquidity))
		amount, err := GetAmount1Delta(sqrtRatioAX96, sqrtRatioBX96, absLiq, false)
		if err != nil {
			return nil, err
		}
		return new(big.Int).Neg(amount.ToBig()), nil
	}
	absLiq, _ := uint256.FromBig(liquidity)
	amount, err := GetAmount1Delta(sqrtRatioAX96, sqrtRatioBX96, absLiq, true)
	if err != nil {
		return nil, err
	}
	return amount.ToBig(), nil
}

// GetNextSqrtPriceFromInput returns the sqrt price after spending amountIn of
// the input token, rounding so the pool never underestimates what it is owed.
func GetNextSqrtPriceFromInput(sqrtPX96, liquidity, amountIn *uint256.Int, zeroForOne bool) (*uint256.Int, error) {
	if sqrtPX96.IsZero() {
		return nil, ErrZeroPrice
	}
	if liquidity.IsZero() {
		return nil, ErrZeroLiquidity
	}
	if zeroForOne {
		return getNextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amountIn, true)
	}
	return getNextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amountIn, true)
}

// GetNextSqrtPriceFromOutput returns the sqrt price after paying out
// amountOut of the output token, rounding so the pool never overestimates
// what it pays.
func GetNextSqrtPriceFromOutput(sqrtPX96, liquidity, amountOut *uint256.Int, zeroForOne bool) (*uint256.Int, error) {
	if sqrtPX96.IsZero() {
		return nil, ErrZeroPrice
	}
	if liquidity.IsZero() {
		return nil, ErrZeroLiquidity
	}
	if zeroForOne {
		return getNextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amountOut, false)
	}
	return getNextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amountOut, false)
}

// getNextSqrtPriceFromAmount0RoundingUp computes
// liquidity * sqrtP / (liquidity +- amount * sqrtP), always rounding up.
func getNextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amount *uint256.Int, add bool) (*uint256.Int, error) {
	if amount.IsZero() {
		return new(uint256.Int).Set(sqrtPX96), nil
	}

	numerator1 := new(uint256.Int).Lsh(liquidity, 96)
	// uint256 multiplication wraps mod 2^256; the quotient check detects it.
	product := new(uint256.Int).Mul(amount, sqrtPX96)
	if add {
		if new(uint256.Int).Div(product, amount).Eq(sqrtPX96) {
			denominator := new(uint256.Int).Add(numerator1, product)
			if !denominator.Lt(numerator1) {
				return MulDivRoundingUp(numerator1, sqrtPX96, denominator)
			}
		}
		// Fallback form: liquidity / (liquidity/sqrtP + amount), exact
		// whenever the direct denominator overflows.
		denominator := new(uint256.Int).Div(numerator1, sqrtPX96)
		denominator.Add(denominator, amount)
		return DivRoundingUp(numerator1, denominator)
	}

	if !new(uint256.Int).Div(product, amount).Eq(sqrtPX96) || !numerator1.Gt(product) {
		return nil, ErrPriceOverflow
	}
	denominator := new(uint256.Int).Sub(numerator1, product)
	return MulDivRoundingUp(numerator1, sqrtPX96, denominator)
}

// getNextSqrtPriceFromAmount1RoundingDown computes
// sqrtP +- amount / liquidity in Q64.96, always rounding down.
func getNextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amount *uint256.Int, add bool) (*uint256.Int, error) {
	if add {
		var quotient *uint256.Int
		if !amount.Gt(MaxUint160) {
			quotient = new(uint256.Int).Lsh(amount, 96)
			quotient.Div(quotient, liquidity)
		} else {
			var err error
			quotient, err = MulDiv(amount, Q96, liquidity)
			if err != nil {
				return nil, err
			}
		}
		next := new(uint256.Int).Add(sqrtPX96, quotient)
		if next.Gt(MaxUint160) {
			return nil, ErrPriceOverflow
		}
		return next, nil
	}

	quotient, err := MulDivRoundingUp(amount, Q96, liquidity)
	if err != nil {
		return nil, err
	}
	if !sqrtPX96.Gt(quotient) {
		return nil, ErrPriceOverflow
	}
	return new(uint256.Int).Sub(sqrtPX96, quotient), nil
}
