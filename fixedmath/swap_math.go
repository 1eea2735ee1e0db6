// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fixedmath

import (
	"github.com/holiman/uint256"
)

// FeePipsDenominator is the fee unit: hundredths of a basis point.
const FeePipsDenominator uint32 = 1_000_000

// SwapStep is one iteration of the swap loop: how far the price moves toward
// target given the remaining budget, and what is paid and earned doing so.
type SwapStep struct {
	SqrtRatioNextX96 *uint256.Int
	AmountIn         *uint256.Int
	AmountOut        *uint256.Int
	FeeAmount        *uint256.Int
}

// ComputeSwapStep computes a single step along the curve from the current
// sqrt price toward the target. amountRemaining is the unsigned budget left;
// exactIn selects whether it is input (fee comes out of it) or output.
// The target is never overshot.
func ComputeSwapStep(
	sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity *uint256.Int,
	amountRemaining *uint256.Int,
	exactIn bool,
	feePips uint32,
) (SwapStep, error) {
	var (
		step       SwapStep
		err        error
		zeroForOne = !sqrtRatioCurrentX96.Lt(sqrtRatioTargetX96)
	)

	feeComplement := uint256.NewInt(uint64(FeePipsDenominator - feePips))
	feeDenom := uint256.NewInt(uint64(FeePipsDenominator))

	if exactIn {
		amountRemainingLessFee, e := MulDiv(amountRemaining, feeComplement, feeDenom)
		if e != nil {
			return step, e
		}
		if zeroForOne {
			step.AmountIn, err = GetAmount0Delta(sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, true)
		} else {
			step.AmountIn, err = GetAmount1Delta(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, true)
		}
		if err != nil {
			return step, err
		}
		if !amountRemainingLessFee.Lt(step.AmountIn) {
			step.SqrtRatioNextX96 = new(uint256.Int).Set(sqrtRatioTargetX96)
		} else {
			step.SqrtRatioNextX96, err = GetNextSqrtPriceFromInput(sqrtRatioCurrentX96, liquidity, amountRemainingLessFee, zeroForOne)
			if err != nil {
				return step, err
			}
		}
	} else {
		if zeroForOne {
			step.AmountOut, err = GetAmount1Delta(sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, false)
		} else {
			step.AmountOut, err = GetAmount0Delta(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, false)
		}
		if err != nil {
			return step, err
		}
		if !amountRemaining.Lt(step.AmountOut) {
			step.SqrtRatioNextX96 = new(uint256.Int).Set(sqrtRatioTargetX96)
		} else {
			step.SqrtRatioNextX96, err = GetNextSqrtPriceFromOutput(sqrtRatioCurrentX96, liquidity, amountRemaining, zeroForOne)
			if err != nil {
				return step, err
			}
		}
	}

	max := sqrtRatioTargetX96.Eq(step.SqrtRatioNextX96)

	if zeroForOne {
		if !(max && exactIn) {
			step.AmountIn, err = GetAmount0Delta(step.SqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, true)
			if err != nil {
				return step, err
			}
		}
		if !(max && !exactIn) {
			step.AmountOut, err = GetAmount1Delta(step.SqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, false)
			if err != nil {
				return step, err
			}
		}
	} else {
		if !(max && exactIn) {
			step.AmountIn, err = GetAmount1Delta(sqrtRatioCurrentX96, step.SqrtRatioNextX96, liquidity, true)
			if err != nil {
				return step, err
			}
		}
		if !(max && !exactIn) {
			step.AmountOut, err = GetAmount0Delta(sqrtRatioCurrentX96, step.SqrtRatioNextX96, liquidity, false)
			if err != nil {
				return step, err
			}
		}
	}

	// Exact output never receives more than requested.
	if !exactIn && step.AmountOut.Gt(amountRemaining) {
		step.AmountOut = new(uint256.Int).Set(amountRemaining)
	}

	if exactIn && !step.SqrtRatioNextX96.Eq(sqrtRatioTargetX96) {
		// The step exhausted the input: the whole residual is the fee.
		step.FeeAmount = new(uint256.Int).Sub(amountRemaining, step.AmountIn)
	} else {
		step.FeeAmount, err = MulDivRoundingUp(step.AmountIn, uint256.NewInt(uint64(feePips)), feeComplement)
		if err != nil {
			return step, err
		}
	}
	return step, nil
}
