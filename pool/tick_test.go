// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/clmm/fixedmath"
)

func TestTickBook_UpdateFlips(t *testing.T) {
	tb := newTickBook()
	maxLiq := fixedmath.MaxLiquidityPerTick(60)
	zero := new(uint256.Int)

	flipped, err := tb.update(60, 0, big.NewInt(100), zero, zero, zero, 0, 1000, false, maxLiq)
	require.NoError(t, err)
	require.True(t, flipped, "first liquidity initializes the tick")

	flipped, err = tb.update(60, 0, big.NewInt(50), zero, zero, zero, 0, 1000, false, maxLiq)
	require.NoError(t, err)
	require.False(t, flipped)

	flipped, err = tb.update(60, 0, big.NewInt(-150), zero, zero, zero, 0, 1000, false, maxLiq)
	require.NoError(t, err)
	require.True(t, flipped, "returning to zero gross flips the tick off")
}

func TestTickBook_UpdateLiquidityNet(t *testing.T) {
	tb := newTickBook()
	maxLiq := fixedmath.MaxLiquidityPerTick(60)
	zero := new(uint256.Int)

	_, err := tb.update(-60, 0, big.NewInt(100), zero, zero, zero, 0, 0, false, maxLiq)
	require.NoError(t, err)
	_, err = tb.update(60, 0, big.NewInt(100), zero, zero, zero, 0, 0, true, maxLiq)
	require.NoError(t, err)

	require.Equal(t, "100", tb.get(-60).liquidityNet.String(), "lower bound adds on cross")
	require.Equal(t, "-100", tb.get(60).liquidityNet.String(), "upper bound subtracts on cross")
	require.Equal(t, "100", tb.get(60).liquidityGross.Dec())
}

func TestTickBook_UpdateCap(t *testing.T) {
	tb := newTickBook()
	maxLiq := uint256.NewInt(1000)
	zero := new(uint256.Int)

	_, err := tb.update(0, 0, big.NewInt(1001), zero, zero, zero, 0, 0, false, maxLiq)
	require.ErrorIs(t, err, ErrLiquidityPerTick)

	_, err = tb.update(0, 0, big.NewInt(1000), zero, zero, zero, 0, 0, false, maxLiq)
	require.NoError(t, err)
}

func TestTickBook_OutsideSeeding(t *testing.T) {
	tb := newTickBook()
	maxLiq := fixedmath.MaxLiquidityPerTick(60)
	fg0 := uint256.NewInt(1111)
	fg1 := uint256.NewInt(2222)
	spl := uint256.NewInt(333)

	// A tick at or below the current tick seeds outside from the globals.
	_, err := tb.update(-60, 0, big.NewInt(1), fg0, fg1, spl, 44, 55, false, maxLiq)
	require.NoError(t, err)
	below := tb.get(-60)
	require.Equal(t, "1111", below.feeGrowthOutside0X128.Dec())
	require.Equal(t, "2222", below.feeGrowthOutside1X128.Dec())
	require.Equal(t, "333", below.secondsPerLiquidityOutsideX128.Dec())
	require.Equal(t, int64(44), below.tickCumulativeOutside)
	require.Equal(t, uint32(55), below.secondsOutside)

	// A tick above the current tick starts with zero outside values.
	_, err = tb.update(60, 0, big.NewInt(1), fg0, fg1, spl, 44, 55, true, maxLiq)
	require.NoError(t, err)
	above := tb.get(60)
	require.True(t, above.feeGrowthOutside0X128.IsZero())
	require.True(t, above.secondsPerLiquidityOutsideX128.IsZero())
}

func TestTickBook_Cross(t *testing.T) {
	tb := newTickBook()
	maxLiq := fixedmath.MaxLiquidityPerTick(60)
	zero := new(uint256.Int)

	_, err := tb.update(-60, 0, big.NewInt(500), zero, zero, zero, 0, 0, false, maxLiq)
	require.NoError(t, err)

	fg0 := uint256.NewInt(9000)
	fg1 := uint256.NewInt(100)
	net := tb.cross(-60, fg0, fg1, uint256.NewInt(77), 88, 99)
	require.Equal(t, "500", net.String())

	info := tb.get(-60)
	require.Equal(t, "9000", info.feeGrowthOutside0X128.Dec(), "outside mirrors to global - outside")
	require.Equal(t, "100", info.feeGrowthOutside1X128.Dec())
	require.Equal(t, "77", info.secondsPerLiquidityOutsideX128.Dec())
	require.Equal(t, int64(88), info.tickCumulativeOutside)
	require.Equal(t, uint32(99), info.secondsOutside)

	// Crossing back restores the original outside values.
	tb.cross(-60, fg0, fg1, uint256.NewInt(77), 88, 99)
	require.True(t, tb.get(-60).feeGrowthOutside0X128.IsZero())
}

func TestTickBook_FeeGrowthInside(t *testing.T) {
	tb := newTickBook()
	maxLiq := fixedmath.MaxLiquidityPerTick(60)
	fg0 := uint256.NewInt(1000)
	fg1 := uint256.NewInt(2000)
	zero := new(uint256.Int)

	// Both ticks initialized while current is inside; the lower tick's
	// outside values are seeded at the then-current globals, the upper
	// tick (above current) starts at zero.
	_, err := tb.update(-60, 0, big.NewInt(1), fg0, fg1, zero, 0, 0, false, maxLiq)
	require.NoError(t, err)
	_, err = tb.update(60, 0, big.NewInt(1), fg0, fg1, zero, 0, 0, true, maxLiq)
	require.NoError(t, err)

	// No growth since: inside is zero.
	in0, in1 := tb.getFeeGrowthInside(-60, 60, 0, fg0, fg1)
	require.True(t, in0.IsZero())
	require.True(t, in1.IsZero())

	// Growth while in range shows up entirely inside.
	fg0b := uint256.NewInt(1500)
	in0, in1 = tb.getFeeGrowthInside(-60, 60, 0, fg0b, fg1)
	require.Equal(t, "500", in0.Dec())
	require.True(t, in1.IsZero())

	// Price exits below the range (crossing -60): the 500 earned while in
	// range stays attributed inside, and nothing further accrues.
	tb.cross(-60, fg0b, fg1, new(uint256.Int), 0, 0)
	in0, _ = tb.getFeeGrowthInside(-60, 60, -120, fg0b, fg1)
	require.Equal(t, "500", in0.Dec())

	// Growth while below the range stays outside.
	fg0c := uint256.NewInt(1900)
	in0, _ = tb.getFeeGrowthInside(-60, 60, -120, fg0c, fg1)
	require.Equal(t, "500", in0.Dec())
}

func TestTickBook_FeeGrowthInside_Wraps(t *testing.T) {
	tb := newTickBook()
	// Uninitialized bounds with current inside: inside = global - 0 - 0.
	in0, _ := tb.getFeeGrowthInside(-60, 60, 0, uint256.NewInt(42), new(uint256.Int))
	require.Equal(t, "42", in0.Dec())

	// The decomposition is modular: differences remain correct when the
	// subtraction wraps.
	fgWrapped := new(uint256.Int).Sub(new(uint256.Int), uint256.NewInt(1)) // 2^256 - 1
	tbw := newTickBook()
	maxLiq := fixedmath.MaxLiquidityPerTick(60)
	_, err := tbw.update(-60, 0, big.NewInt(1), fgWrapped, fgWrapped, new(uint256.Int), 0, 0, false, maxLiq)
	require.NoError(t, err)
	_, err = tbw.update(60, 0, big.NewInt(1), fgWrapped, fgWrapped, new(uint256.Int), 0, 0, true, maxLiq)
	require.NoError(t, err)

	// Global wrapped past zero; growth since init is 43.
	in0, _ = tbw.getFeeGrowthInside(-60, 60, 0, uint256.NewInt(42), new(uint256.Int))
	require.Equal(t, "43", in0.Dec())
}

func TestTickBook_Clear(t *testing.T) {
	tb := newTickBook()
	maxLiq := fixedmath.MaxLiquidityPerTick(60)
	zero := new(uint256.Int)

	_, err := tb.update(0, 0, big.NewInt(1), zero, zero, zero, 0, 0, false, maxLiq)
	require.NoError(t, err)
	require.Contains(t, tb, int24(0))
	tb.clear(0)
	require.NotContains(t, tb, int24(0))
}
