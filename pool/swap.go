// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/clmm/fixedmath"
)

// swapCache holds values fixed for the whole swap.
type swapCache struct {
	liquidityStart *uint256.Int
	blockTimestamp uint32
	// feeProtocol is the input-side protocol fee denominator, 0 when off.
	feeProtocol uint8
	// Latest observation, computed lazily at the first tick cross.
	secondsPerLiquidityCumulativeX128 *uint256.Int
	tickCumulative                    int64
	computedLatestObservation         bool
}

// swapState is the running state of the swap loop; committed to the pool
// only after the loop finishes.
type swapState struct {
	amountSpecifiedRemaining *big.Int
	amountCalculated         *big.Int
	sqrtPriceX96             *uint256.Int
	tick                     int24
	feeGrowthGlobalX128      *uint256.Int
	protocolFee              *uint256.Int
	liquidity                *uint256.Int
}

// stepComputations is the per-iteration scratch state.
type stepComputations struct {
	sqrtPriceStartX96 *uint256.Int
	tickNext          int24
	initialized       bool
	sqrtPriceNextX96  *uint256.Int
}

// Swap trades token0 for token1 or vice versa along the price curve.
// amountSpecified is positive for exact input, negative for exact output.
// The price never passes sqrtPriceLimitX96. The returned deltas are from
// the pool's perspective: the positive one must be paid by the callback,
// the negative one is sent to recipient before the callback runs.
func (p *Pool) Swap(
	sender, recipient common.Address,
	zeroForOne bool,
	amountSpecified *big.Int,
	sqrtPriceLimitX96 *uint256.Int,
	callback SwapCallback,
	data []byte,
) (*big.Int, *big.Int, error) {
	if amountSpecified == nil || amountSpecified.Sign() == 0 {
		return nil, nil, ErrZeroAmount
	}

	if err := p.lock(); err != nil {
		return nil, nil, err
	}
	defer p.unlock()

	slot0Start := p.slot0

	if zeroForOne {
		if !sqrtPriceLimitX96.Lt(slot0Start.SqrtPriceX96) || !sqrtPriceLimitX96.Gt(fixedmath.MinSqrtRatio) {
			return nil, nil, ErrInvalidPriceLimit
		}
	} else {
		if !sqrtPriceLimitX96.Gt(slot0Start.SqrtPriceX96) || !sqrtPriceLimitX96.Lt(fixedmath.MaxSqrtRatio) {
			return nil, nil, ErrInvalidPriceLimit
		}
	}

	cache := swapCache{
		liquidityStart: p.liquidity,
		blockTimestamp: p.now(),
	}
	if zeroForOne {
		cache.feeProtocol = slot0Start.FeeProtocol % 16
	} else {
		cache.feeProtocol = slot0Start.FeeProtocol >> 4
	}

	exactInput := amountSpecified.Sign() > 0

	state := swapState{
		amountSpecifiedRemaining: new(big.Int).Set(amountSpecified),
		amountCalculated:         new(big.Int),
		sqrtPriceX96:             new(uint256.Int).Set(slot0Start.SqrtPriceX96),
		tick:                     slot0Start.Tick,
		protocolFee:              new(uint256.Int),
		liquidity:                new(uint256.Int).Set(cache.liquidityStart),
	}
	if zeroForOne {
		state.feeGrowthGlobalX128 = new(uint256.Int).Set(p.feeGrowthGlobal0X128)
	} else {
		state.feeGrowthGlobalX128 = new(uint256.Int).Set(p.feeGrowthGlobal1X128)
	}

	// Walk the curve tick to tick until the budget is spent or the price
	// limit is hit.
	for state.amountSpecifiedRemaining.Sign() != 0 && !state.sqrtPriceX96.Eq(sqrtPriceLimitX96) {
		var step stepComputations
		step.sqrtPriceStartX96 = new(uint256.Int).Set(state.sqrtPriceX96)

		step.tickNext, step.initialized = p.bitmap.nextInitializedTickWithinOneWord(state.tick, p.tickSpacing, zeroForOne)
		if step.tickNext < fixedmath.MinTick {
			step.tickNext = fixedmath.MinTick
		} else if step.tickNext > fixedmath.MaxTick {
			step.tickNext = fixedmath.MaxTick
		}

		var err error
		step.sqrtPriceNextX96, err = fixedmath.GetSqrtRatioAtTick(step.tickNext)
		if err != nil {
			return nil, nil, err
		}

		// The step stops at the nearer of the next tick and the limit.
		target := step.sqrtPriceNextX96
		if zeroForOne {
			if step.sqrtPriceNextX96.Lt(sqrtPriceLimitX96) {
				target = sqrtPriceLimitX96
			}
		} else {
			if step.sqrtPriceNextX96.Gt(sqrtPriceLimitX96) {
				target = sqrtPriceLimitX96
			}
		}

		remainingAbs, _ := uint256.FromBig(new(big.Int).Abs(state.amountSpecifiedRemaining))
		stepResult, err := fixedmath.ComputeSwapStep(
			state.sqrtPriceX96, target, state.liquidity, remainingAbs, exactInput, p.fee,
		)
		if err != nil {
			return nil, nil, err
		}
		state.sqrtPriceX96 = stepResult.SqrtRatioNextX96
		feeAmount := new(uint256.Int).Set(stepResult.FeeAmount)

		if exactInput {
			spent := new(uint256.Int).Add(stepResult.AmountIn, feeAmount)
			state.amountSpecifiedRemaining.Sub(state.amountSpecifiedRemaining, spent.ToBig())
			state.amountCalculated.Sub(state.amountCalculated, stepResult.AmountOut.ToBig())
		} else {
			state.amountSpecifiedRemaining.Add(state.amountSpecifiedRemaining, stepResult.AmountOut.ToBig())
			spent := new(uint256.Int).Add(stepResult.AmountIn, feeAmount)
			state.amountCalculated.Add(state.amountCalculated, spent.ToBig())
		}

		// The protocol takes its cut of the fee before it accrues to LPs.
		if cache.feeProtocol > 0 {
			delta := new(uint256.Int).Div(feeAmount, uint256.NewInt(uint64(cache.feeProtocol)))
			feeAmount.Sub(feeAmount, delta)
			state.protocolFee.Add(state.protocolFee, delta)
		}

		if !state.liquidity.IsZero() {
			growth, err := fixedmath.MulDiv(feeAmount, fixedmath.Q128, state.liquidity)
			if err != nil {
				return nil, nil, err
			}
			// Fee growth wraps mod 2^256 by design.
			state.feeGrowthGlobalX128.Add(state.feeGrowthGlobalX128, growth)
		}

		if state.sqrtPriceX96.Eq(step.sqrtPriceNextX96) {
			// Reached the next tick.
			if step.initialized {
				// The observation for this block is computed at most once
				// per swap, on the first cross.
				if !cache.computedLatestObservation {
					cache.tickCumulative, cache.secondsPerLiquidityCumulativeX128, err = p.observations.observeSingle(
						cache.blockTimestamp, 0,
						slot0Start.Tick, slot0Start.ObservationIndex,
						cache.liquidityStart, slot0Start.ObservationCardinality,
					)
					if err != nil {
						return nil, nil, err
					}
					cache.computedLatestObservation = true
				}

				var crossFee0, crossFee1 *uint256.Int
				if zeroForOne {
					crossFee0, crossFee1 = state.feeGrowthGlobalX128, p.feeGrowthGlobal1X128
				} else {
					crossFee0, crossFee1 = p.feeGrowthGlobal0X128, state.feeGrowthGlobalX128
				}
				liquidityNet := p.ticks.cross(
					step.tickNext,
					crossFee0, crossFee1,
					cache.secondsPerLiquidityCumulativeX128,
					cache.tickCumulative,
					cache.blockTimestamp,
				)
				if zeroForOne {
					liquidityNet = new(big.Int).Neg(liquidityNet)
				}
				state.liquidity, err = fixedmath.LiquidityAddDelta(state.liquidity, liquidityNet)
				if err != nil {
					return nil, nil, err
				}
			}

			if zeroForOne {
				state.tick = step.tickNext - 1
			} else {
				state.tick = step.tickNext
			}
		} else if !state.sqrtPriceX96.Eq(step.sqrtPriceStartX96) {
			// Ended between ticks: recompute the tick from the price.
			state.tick, err = fixedmath.GetTickAtSqrtRatio(state.sqrtPriceX96)
			if err != nil {
				return nil, nil, err
			}
		}
	}

	var amount0, amount1 *big.Int
	if zeroForOne == exactInput {
		amount0 = new(big.Int).Sub(amountSpecified, state.amountSpecifiedRemaining)
		amount1 = state.amountCalculated
	} else {
		amount0 = state.amountCalculated
		amount1 = new(big.Int).Sub(amountSpecified, state.amountSpecifiedRemaining)
	}

	// A walk that consumed nothing found no liquidity anywhere between the
	// starting price and the limit; abort without committing.
	if amount0.Sign() == 0 && amount1.Sign() == 0 {
		return nil, nil, ErrNoLiquidity
	}

	// Commit price, tick and oracle.
	if state.tick != slot0Start.Tick {
		observationIndex, observationCardinality := p.observations.write(
			slot0Start.ObservationIndex,
			cache.blockTimestamp,
			slot0Start.Tick,
			cache.liquidityStart,
			slot0Start.ObservationCardinality,
			slot0Start.ObservationCardinalityNext,
		)
		p.slot0.SqrtPriceX96 = state.sqrtPriceX96
		p.slot0.Tick = state.tick
		p.slot0.ObservationIndex = observationIndex
		p.slot0.ObservationCardinality = observationCardinality
	} else {
		p.slot0.SqrtPriceX96 = state.sqrtPriceX96
	}

	if !cache.liquidityStart.Eq(state.liquidity) {
		p.liquidity = state.liquidity
	}

	// Fee growth and protocol fees accrue on the input side only.
	if zeroForOne {
		p.feeGrowthGlobal0X128 = state.feeGrowthGlobalX128
		if !state.protocolFee.IsZero() {
			p.addProtocolFee0(state.protocolFee)
		}
	} else {
		p.feeGrowthGlobal1X128 = state.feeGrowthGlobalX128
		if !state.protocolFee.IsZero() {
			p.addProtocolFee1(state.protocolFee)
		}
	}

	// Pay out, then collect the input via the callback and verify it.
	if zeroForOne {
		if amount1.Sign() < 0 {
			out, _ := uint256.FromBig(new(big.Int).Neg(amount1))
			if err := p.reserves.Transfer1(recipient, out); err != nil {
				return nil, nil, err
			}
		}
		balance0Before := p.reserves.Balance0()
		if err := callback(amount0, amount1, data); err != nil {
			return nil, nil, err
		}
		owed, _ := uint256.FromBig(amount0)
		if p.reserves.Balance0().Lt(new(uint256.Int).Add(balance0Before, owed)) {
			return nil, nil, fmt.Errorf("%w: token0 swap", ErrInsufficientInput)
		}
	} else {
		if amount0.Sign() < 0 {
			out, _ := uint256.FromBig(new(big.Int).Neg(amount0))
			if err := p.reserves.Transfer0(recipient, out); err != nil {
				return nil, nil, err
			}
		}
		balance1Before := p.reserves.Balance1()
		if err := callback(amount0, amount1, data); err != nil {
			return nil, nil, err
		}
		owed, _ := uint256.FromBig(amount1)
		if p.reserves.Balance1().Lt(new(uint256.Int).Add(balance1Before, owed)) {
			return nil, nil, fmt.Errorf("%w: token1 swap", ErrInsufficientInput)
		}
	}

	p.emit(SwapEvent{
		Sender:       sender,
		Recipient:    recipient,
		Amount0:      amount0,
		Amount1:      amount1,
		SqrtPriceX96: new(uint256.Int).Set(state.sqrtPriceX96),
		Liquidity:    new(uint256.Int).Set(state.liquidity),
		Tick:         state.tick,
	})
	p.log.Debug("swap",
		"zeroForOne", zeroForOne,
		"amount0", amount0.String(),
		"amount1", amount1.String(),
		"tick", state.tick,
	)
	return amount0, amount1, nil
}
