// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/luxfi/clmm/fixedmath"
)

// tickInfo is the state kept per initialized tick. The outside accumulators
// are relative values: each one holds the accumulator total for the side of
// the curve away from the current tick as of the last time the tick was
// touched, and flips to global - outside on every cross.
type tickInfo struct {
	// liquidityGross is the total position liquidity referencing this tick
	// as a bound. Zero means the tick is uninitialized.
	liquidityGross *uint256.Int
	// liquidityNet is added to in-range liquidity when the tick is crossed
	// left to right, subtracted right to left.
	liquidityNet *big.Int

	feeGrowthOutside0X128 *uint256.Int
	feeGrowthOutside1X128 *uint256.Int

	tickCumulativeOutside          int64
	secondsPerLiquidityOutsideX128 *uint256.Int
	secondsOutside                 uint32

	// initialized is equivalent to liquidityGross != 0, kept so a cross
	// never has to distinguish a fresh record from a cleared one.
	initialized bool
}

func newTickInfo() *tickInfo {
	return &tickInfo{
		liquidityGross:                 new(uint256.Int),
		liquidityNet:                   new(big.Int),
		feeGrowthOutside0X128:          new(uint256.Int),
		feeGrowthOutside1X128:          new(uint256.Int),
		secondsPerLiquidityOutsideX128: new(uint256.Int),
	}
}

// tickBook holds all initialized tick records, keyed by tick index.
type tickBook map[int24]*tickInfo

func newTickBook() tickBook {
	return make(tickBook)
}

func (tb tickBook) get(tick int24) *tickInfo {
	if info, ok := tb[tick]; ok {
		return info
	}
	info := newTickInfo()
	tb[tick] = info
	return info
}

// peek returns the tick record without materializing one, so read paths do
// not grow the book.
func (tb tickBook) peek(tick int24) *tickInfo {
	if info, ok := tb[tick]; ok {
		return info
	}
	return newTickInfo()
}

// update applies a liquidity delta to a tick bound and reports whether the
// tick flipped between initialized and uninitialized. On first
// initialization at or below the current tick, the outside accumulators are
// seeded from the globals: all growth before a tick existed is attributed to
// the side below it.
func (tb tickBook) update(
	tick, tickCurrent int24,
	liquidityDelta *big.Int,
	feeGrowthGlobal0X128, feeGrowthGlobal1X128 *uint256.Int,
	secondsPerLiquidityCumulativeX128 *uint256.Int,
	tickCumulative int64,
	time uint32,
	upper bool,
	maxLiquidity *uint256.Int,
) (flipped bool, err error) {
	info := tb.get(tick)

	liquidityGrossBefore := info.liquidityGross
	liquidityGrossAfter, err := fixedmath.LiquidityAddDelta(liquidityGrossBefore, liquidityDelta)
	if err != nil {
		return false, err
	}
	if liquidityGrossAfter.Gt(maxLiquidity) {
		return false, ErrLiquidityPerTick
	}

	flipped = liquidityGrossAfter.IsZero() != liquidityGrossBefore.IsZero()

	if liquidityGrossBefore.IsZero() {
		if tick <= tickCurrent {
			info.feeGrowthOutside0X128 = new(uint256.Int).Set(feeGrowthGlobal0X128)
			info.feeGrowthOutside1X128 = new(uint256.Int).Set(feeGrowthGlobal1X128)
			info.secondsPerLiquidityOutsideX128 = new(uint256.Int).Set(secondsPerLiquidityCumulativeX128)
			info.tickCumulativeOutside = tickCumulative
			info.secondsOutside = time
		}
		info.initialized = true
	}

	info.liquidityGross = liquidityGrossAfter

	if upper {
		info.liquidityNet = new(big.Int).Sub(info.liquidityNet, liquidityDelta)
	} else {
		info.liquidityNet = new(big.Int).Add(info.liquidityNet, liquidityDelta)
	}
	return flipped, nil
}

// clear erases a tick record entirely.
func (tb tickBook) clear(tick int24) {
	delete(tb, tick)
}

// cross mirrors every outside accumulator to global - outside and returns
// the net liquidity to apply. Fee growth subtraction wraps mod 2^256;
// differences between accumulators stay well defined.
func (tb tickBook) cross(
	tick int24,
	feeGrowthGlobal0X128, feeGrowthGlobal1X128 *uint256.Int,
	secondsPerLiquidityCumulativeX128 *uint256.Int,
	tickCumulative int64,
	time uint32,
) *big.Int {
	info := tb.get(tick)
	info.feeGrowthOutside0X128 = new(uint256.Int).Sub(feeGrowthGlobal0X128, info.feeGrowthOutside0X128)
	info.feeGrowthOutside1X128 = new(uint256.Int).Sub(feeGrowthGlobal1X128, info.feeGrowthOutside1X128)
	info.secondsPerLiquidityOutsideX128 = new(uint256.Int).Sub(secondsPerLiquidityCumulativeX128, info.secondsPerLiquidityOutsideX128)
	info.tickCumulativeOutside = tickCumulative - info.tickCumulativeOutside
	info.secondsOutside = time - info.secondsOutside
	return info.liquidityNet
}

// getFeeGrowthInside decomposes the global fee growth into below-range,
// above-range and in-range parts using only the outside counters of the two
// bounding ticks. All arithmetic wraps mod 2^256.
func (tb tickBook) getFeeGrowthInside(
	tickLower, tickUpper, tickCurrent int24,
	feeGrowthGlobal0X128, feeGrowthGlobal1X128 *uint256.Int,
) (feeGrowthInside0X128, feeGrowthInside1X128 *uint256.Int) {
	lower := tb.peek(tickLower)
	upper := tb.peek(tickUpper)

	var below0, below1 *uint256.Int
	if tickCurrent >= tickLower {
		below0 = new(uint256.Int).Set(lower.feeGrowthOutside0X128)
		below1 = new(uint256.Int).Set(lower.feeGrowthOutside1X128)
	} else {
		below0 = new(uint256.Int).Sub(feeGrowthGlobal0X128, lower.feeGrowthOutside0X128)
		below1 = new(uint256.Int).Sub(feeGrowthGlobal1X128, lower.feeGrowthOutside1X128)
	}

	var above0, above1 *uint256.Int
	if tickCurrent < tickUpper {
		above0 = new(uint256.Int).Set(upper.feeGrowthOutside0X128)
		above1 = new(uint256.Int).Set(upper.feeGrowthOutside1X128)
	} else {
		above0 = new(uint256.Int).Sub(feeGrowthGlobal0X128, upper.feeGrowthOutside0X128)
		above1 = new(uint256.Int).Sub(feeGrowthGlobal1X128, upper.feeGrowthOutside1X128)
	}

	feeGrowthInside0X128 = new(uint256.Int).Sub(feeGrowthGlobal0X128, below0)
	feeGrowthInside0X128.Sub(feeGrowthInside0X128, above0)
	feeGrowthInside1X128 = new(uint256.Int).Sub(feeGrowthGlobal1X128, below1)
	feeGrowthInside1X128.Sub(feeGrowthInside1X128, above1)
	return feeGrowthInside0X128, feeGrowthInside1X128
}
