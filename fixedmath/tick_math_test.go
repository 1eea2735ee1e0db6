// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fixedmath

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestGetSqrtRatioAtTick_Bounds(t *testing.T) {
	_, err := GetSqrtRatioAtTick(MinTick - 1)
	require.ErrorIs(t, err, ErrInvalidTick)

	_, err = GetSqrtRatioAtTick(MaxTick + 1)
	require.ErrorIs(t, err, ErrInvalidTick)

	minRatio, err := GetSqrtRatioAtTick(MinTick)
	require.NoError(t, err)
	require.Equal(t, MinSqrtRatio.String(), minRatio.String())

	maxRatio, err := GetSqrtRatioAtTick(MaxTick)
	require.NoError(t, err)
	require.Equal(t, MaxSqrtRatio.String(), maxRatio.String())
}

func TestGetSqrtRatioAtTick_Zero(t *testing.T) {
	ratio, err := GetSqrtRatioAtTick(0)
	require.NoError(t, err)
	require.Equal(t, Q96.String(), ratio.String(), "tick 0 is price 1")
}

func TestGetSqrtRatioAtTick_Monotonic(t *testing.T) {
	ticks := []int32{
		MinTick, MinTick + 1, -887220, -600000, -123456, -60, -1,
		0, 1, 60, 123456, 600000, 887220, MaxTick - 1, MaxTick,
	}
	var prev *uint256.Int
	for _, tick := range ticks {
		ratio, err := GetSqrtRatioAtTick(tick)
		require.NoError(t, err)
		if prev != nil {
			require.True(t, ratio.Gt(prev), "ratio must be strictly increasing at tick %d", tick)
		}
		prev = ratio
	}
}

func TestGetSqrtRatioAtTick_Reciprocal(t *testing.T) {
	// ratio(t) * ratio(-t) is price 1 in Q192, up to rounding.
	for _, tick := range []int32{1, 60, 600, 6000, 60000, 600000} {
		pos, err := GetSqrtRatioAtTick(tick)
		require.NoError(t, err)
		neg, err := GetSqrtRatioAtTick(-tick)
		require.NoError(t, err)

		product := new(uint256.Int).Mul(pos, neg)
		product.Rsh(product, 96)
		diff := new(uint256.Int).Sub(product, Q96)
		if diff.Sign() != 0 && diff.Gt(Q96) {
			diff = new(uint256.Int).Sub(Q96, product)
		}
		// Tolerance scales with the magnitude of the rounding error in
		// the larger factor.
		bound := new(uint256.Int).Div(pos, uint256.NewInt(1_000_000_000))
		bound.AddUint64(bound, 16)
		require.True(t, diff.Lt(bound), "tick %d: product %s too far from Q96", tick, product.String())
	}
}

func TestGetTickAtSqrtRatio_RoundTrip(t *testing.T) {
	ticks := []int32{
		MinTick, MinTick + 1, -887220, -600000, -123456, -60, -2, -1,
		0, 1, 2, 60, 123456, 600000, 887220, MaxTick - 1,
	}
	for _, tick := range ticks {
		ratio, err := GetSqrtRatioAtTick(tick)
		require.NoError(t, err)
		got, err := GetTickAtSqrtRatio(ratio)
		require.NoError(t, err)
		require.Equal(t, tick, got, "round trip at tick %d", tick)
	}
}

func TestGetTickAtSqrtRatio_BoundaryConvention(t *testing.T) {
	// A price strictly between ratio(t) and ratio(t+1) resolves to t.
	ratioLo, err := GetSqrtRatioAtTick(60)
	require.NoError(t, err)
	ratioHi, err := GetSqrtRatioAtTick(61)
	require.NoError(t, err)

	mid := new(uint256.Int).Add(ratioLo, ratioHi)
	mid.Rsh(mid, 1)
	tick, err := GetTickAtSqrtRatio(mid)
	require.NoError(t, err)
	require.Equal(t, int32(60), tick)

	// One below the next tick's ratio still resolves to t.
	justBelow := new(uint256.Int).SubUint64(ratioHi, 1)
	tick, err = GetTickAtSqrtRatio(justBelow)
	require.NoError(t, err)
	require.Equal(t, int32(60), tick)
}

func TestGetTickAtSqrtRatio_Domain(t *testing.T) {
	_, err := GetTickAtSqrtRatio(new(uint256.Int).SubUint64(MinSqrtRatio, 1))
	require.ErrorIs(t, err, ErrInvalidSqrtRatio)

	// MaxSqrtRatio itself is excluded.
	_, err = GetTickAtSqrtRatio(MaxSqrtRatio)
	require.ErrorIs(t, err, ErrInvalidSqrtRatio)

	tick, err := GetTickAtSqrtRatio(new(uint256.Int).SubUint64(MaxSqrtRatio, 1))
	require.NoError(t, err)
	require.Equal(t, MaxTick-1, tick)

	tick, err = GetTickAtSqrtRatio(MinSqrtRatio)
	require.NoError(t, err)
	require.Equal(t, MinTick, tick)
}

func TestMaxLiquidityPerTick(t *testing.T) {
	tests := []struct {
		spacing  int32
		numTicks uint64
	}{
		{1, 1774545},
		{10, 177455},
		{60, 29575},
		{200, 8873},
	}
	for _, tt := range tests {
		want := new(uint256.Int).Div(MaxUint128, uint256.NewInt(tt.numTicks))
		require.Equal(t, want.String(), MaxLiquidityPerTick(tt.spacing).String(), "spacing %d", tt.spacing)
	}
}
