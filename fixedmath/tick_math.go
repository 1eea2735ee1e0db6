// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fixedmath

import (
	"errors"

	"github.com/holiman/uint256"
)

// Tick domain. A tick i corresponds to sqrt(price) = 1.0001^(i/2).
const (
	MinTick int32 = -887272
	MaxTick int32 = 887272
)

var (
	// MinSqrtRatio is GetSqrtRatioAtTick(MinTick).
	MinSqrtRatio = uint256.NewInt(4295128739)

	// MaxSqrtRatio is GetSqrtRatioAtTick(MaxTick).
	MaxSqrtRatio = uint256.MustFromDecimal("1461446703485210103287273052203988822378723970342")

	ErrInvalidTick      = errors.New("tick out of bounds")
	ErrInvalidSqrtRatio = errors.New("sqrt ratio out of bounds")
)

// sqrtMagic[i] is sqrt(1.0001^-(2^(i+1))) in Q128 (tick bit i+1; bit 0 uses
// sqrtMagicBit0), used to assemble sqrt(1.0001^tick) one bit of the tick at
// a time.
var sqrtMagic = [19]*uint256.Int{
	uint256.MustFromHex("0xfff97272373d413259a46990580e213a"),
	uint256.MustFromHex("0xfff2e50f5f656932ef12357cf3c7fdcc"),
	uint256.MustFromHex("0xffe5caca7e10e4e61c3624eaa0941cd0"),
	uint256.MustFromHex("0xffcb9843d60f6159c9db58835c926644"),
	uint256.MustFromHex("0xff973b41fa98c081472e6896dfb254c0"),
	uint256.MustFromHex("0xff2ea16466c96a3843ec78b326b52861"),
	uint256.MustFromHex("0xfe5dee046a99a2a811c461f1969c3053"),
	uint256.MustFromHex("0xfcbe86c7900a88aedcffc83b479aa3a4"),
	uint256.MustFromHex("0xf987a7253ac413176f2b074cf7815e54"),
	uint256.MustFromHex("0xf3392b0822b70005940c7a398e4b70f3"),
	uint256.MustFromHex("0xe7159475a2c29b7443b29c7fa6e889d9"),
	uint256.MustFromHex("0xd097f3bdfd2022b8845ad8f792aa5825"),
	uint256.MustFromHex("0xa9f746462d870fdf8a65dc1f90e061e5"),
	uint256.MustFromHex("0x70d869a156d2a1b890bb3df62baf32f7"),
	uint256.MustFromHex("0x31be135f97d08fd981231505542fcfa6"),
	uint256.MustFromHex("0x9aa508b5b7a84e1c677de54f3e99bc9"),
	uint256.MustFromHex("0x5d6af8dedb81196699c329225ee604"),
	uint256.MustFromHex("0x2216e584f5fa1ea926041bedfe98"),
	uint256.MustFromHex("0x48a170391f7dc42444e8fa2"),
}

var (
	sqrtMagicBit0 = uint256.MustFromHex("0xfffcb933bd6fad37aa2d162d1a594001")
	oneQ128       = uint256.MustFromHex("0x100000000000000000000000000000000")
	mask32        = uint256.NewInt(0xffffffff)
)

// GetSqrtRatioAtTick returns sqrt(1.0001^tick) * 2^96 as a Q64.96 value.
func GetSqrtRatioAtTick(tick int32) (*uint256.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, ErrInvalidTick
	}

	absTick := tick
	if tick < 0 {
		absTick = -tick
	}

	ratio := new(uint256.Int)
	if absTick&0x1 != 0 {
		ratio.Set(sqrtMagicBit0)
	} else {
		ratio.Set(oneQ128)
	}
	for i, magic := range sqrtMagic {
		if absTick&(int32(1)<<(i+1)) != 0 {
			// Product of two sub-2^129 values fits in 256 bits.
			ratio.Mul(ratio, magic)
			ratio.Rsh(ratio, 128)
		}
	}

	if tick > 0 {
		ratio.Div(MaxUint256, ratio)
	}

	// Q128 -> Q96, rounding up so the result always round-trips through
	// GetTickAtSqrtRatio.
	rem := new(uint256.Int).And(ratio, mask32)
	ratio.Rsh(ratio, 32)
	if !rem.IsZero() {
		ratio.AddUint64(ratio, 1)
	}
	return ratio, nil
}

// GetTickAtSqrtRatio returns the greatest tick whose sqrt ratio is at most
// sqrtPriceX96. The input must lie in [MinSqrtRatio, MaxSqrtRatio).
func GetTickAtSqrtRatio(sqrtPriceX96 *uint256.Int) (int32, error) {
	if sqrtPriceX96.Lt(MinSqrtRatio) || !sqrtPriceX96.Lt(MaxSqrtRatio) {
		return 0, ErrInvalidSqrtRatio
	}

	// Binary search for the greatest tick t with ratio(t) <= sqrtPriceX96.
	lo, hi := MinTick, MaxTick
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		ratio, err := GetSqrtRatioAtTick(mid)
		if err != nil {
			return 0, err
		}
		if ratio.Gt(sqrtPriceX96) {
			hi = mid - 1
		} else {
			lo = mid
		}
	}
	return lo, nil
}

// MaxLiquidityPerTick returns the maximum liquidity a single tick may
// reference for the given spacing, floor(MaxUint128 / numUsableTicks).
func MaxLiquidityPerTick(tickSpacing int32) *uint256.Int {
	minUsable := MinTick / tickSpacing * tickSpacing
	maxUsable := MaxTick / tickSpacing * tickSpacing
	numTicks := uint64((maxUsable-minUsable)/tickSpacing) + 1
	return new(uint256.Int).Div(MaxUint128, uint256.NewInt(numTicks))
}
