// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fixedmath

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestComputeSwapStep_ExactIn_ReachesTarget(t *testing.T) {
	// Price 1 -> price 4 (one for zero), ample budget: the step completes
	// at the target. amountIn over [1,4] at L=1e18 is exactly 1e18 token1.
	budget := new(uint256.Int).Lsh(oneE18, 2)
	step, err := ComputeSwapStep(sqrtP1, sqrtP4, oneE18, budget, true, 3000)
	require.NoError(t, err)

	require.Equal(t, sqrtP4.String(), step.SqrtRatioNextX96.String())
	require.Equal(t, "1000000000000000000", step.AmountIn.Dec())
	require.Equal(t, "500000000000000000", step.AmountOut.Dec())

	// Fee on a completed step is ceil(amountIn * fee / (1e6 - fee)).
	wantFee, err := MulDivRoundingUp(step.AmountIn, uint256.NewInt(3000), uint256.NewInt(997000))
	require.NoError(t, err)
	require.Equal(t, wantFee.Dec(), step.FeeAmount.Dec())
}

func TestComputeSwapStep_ExactIn_Partial(t *testing.T) {
	// Budget too small to reach the target: the residual after amountIn is
	// taken entirely as fee.
	budget := uint256.NewInt(1_000_000_000_000_000) // 1e15
	step, err := ComputeSwapStep(sqrtP1, sqrtP4, oneE18, budget, true, 3000)
	require.NoError(t, err)

	require.True(t, step.SqrtRatioNextX96.Lt(sqrtP4))
	require.True(t, step.SqrtRatioNextX96.Gt(sqrtP1))

	spent := new(uint256.Int).Add(step.AmountIn, step.FeeAmount)
	require.Equal(t, budget.Dec(), spent.Dec(), "partial step consumes the whole budget")

	// The fee is at least the nominal rate on the input.
	minFee, err := MulDiv(budget, uint256.NewInt(3000), uint256.NewInt(1_000_000))
	require.NoError(t, err)
	require.True(t, !step.FeeAmount.Lt(minFee))
}

func TestComputeSwapStep_ExactOut_ReachesTarget(t *testing.T) {
	// Asking for more output than the interval provides stops at target.
	want := new(uint256.Int).Lsh(oneE18, 1)
	step, err := ComputeSwapStep(sqrtP1, sqrtP4, oneE18, want, false, 3000)
	require.NoError(t, err)

	require.Equal(t, sqrtP4.String(), step.SqrtRatioNextX96.String())
	require.Equal(t, "500000000000000000", step.AmountOut.Dec())
	require.Equal(t, "1000000000000000000", step.AmountIn.Dec())
}

func TestComputeSwapStep_ExactOut_Capped(t *testing.T) {
	// Output is capped at the request even when rounding would hand out a
	// little more.
	want := uint256.NewInt(250_000_000_000_000_000)
	step, err := ComputeSwapStep(sqrtP1, sqrtP4, oneE18, want, false, 3000)
	require.NoError(t, err)

	require.True(t, step.SqrtRatioNextX96.Lt(sqrtP4))
	require.True(t, !step.AmountOut.Gt(want))
}

func TestComputeSwapStep_ZeroForOneDirection(t *testing.T) {
	// Swapping token0 in moves the price down toward the target.
	target, err := GetSqrtRatioAtTick(-600)
	require.NoError(t, err)
	budget := uint256.NewInt(1_000_000_000_000_000)

	step, err := ComputeSwapStep(sqrtP1, target, oneE18, budget, true, 3000)
	require.NoError(t, err)
	require.True(t, step.SqrtRatioNextX96.Lt(sqrtP1))
	require.True(t, !step.SqrtRatioNextX96.Lt(target))
}

func TestComputeSwapStep_ZeroLiquidity(t *testing.T) {
	// With no liquidity the step jumps to target for free; the walk above
	// it keeps scanning words until the price limit.
	step, err := ComputeSwapStep(sqrtP1, sqrtP4, uint256.NewInt(0), oneE18, true, 3000)
	require.NoError(t, err)
	require.Equal(t, sqrtP4.String(), step.SqrtRatioNextX96.String())
	require.True(t, step.AmountIn.IsZero())
	require.True(t, step.AmountOut.IsZero())
	require.True(t, step.FeeAmount.IsZero())
}
