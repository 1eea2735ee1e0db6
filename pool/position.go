// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/clmm/fixedmath"
)

// Position is a liquidity position owned by an address over a tick range.
// Positions persist across zero-liquidity states so accrued tokensOwed is
// never lost.
type Position struct {
	Liquidity *uint256.Int

	// Fee growth inside the range as of the last update, used to compute
	// the owed delta on the next touch.
	FeeGrowthInside0LastX128 *uint256.Int
	FeeGrowthInside1LastX128 *uint256.Int

	// Accrued, uncollected tokens. Accumulation wraps at 128 bits; the
	// owner has to collect before fees hit the ceiling.
	TokensOwed0 *uint256.Int
	TokensOwed1 *uint256.Int
}

func newPosition() *Position {
	return &Position{
		Liquidity:                new(uint256.Int),
		FeeGrowthInside0LastX128: new(uint256.Int),
		FeeGrowthInside1LastX128: new(uint256.Int),
		TokensOwed0:              new(uint256.Int),
		TokensOwed1:              new(uint256.Int),
	}
}

// positionBook holds all positions keyed by hash(owner, tickLower, tickUpper).
type positionBook map[common.Hash]*Position

func newPositionBook() positionBook {
	return make(positionBook)
}

func (pb positionBook) get(owner common.Address, tickLower, tickUpper int24) *Position {
	key := PositionKey(owner, tickLower, tickUpper)
	if pos, ok := pb[key]; ok {
		return pos
	}
	pos := newPosition()
	pb[key] = pos
	return pos
}

// update credits fees accrued since the last touch and applies the
// liquidity delta. A zero-delta poke of a position with no liquidity is
// rejected.
func (p *Position) update(
	liquidityDelta *big.Int,
	feeGrowthInside0X128, feeGrowthInside1X128 *uint256.Int,
) error {
	var liquidityNext *uint256.Int
	if liquidityDelta.Sign() == 0 {
		if p.Liquidity.IsZero() {
			return ErrNoPositionLiquidity
		}
		liquidityNext = p.Liquidity
	} else {
		var err error
		liquidityNext, err = fixedmath.LiquidityAddDelta(p.Liquidity, liquidityDelta)
		if err != nil {
			return err
		}
	}

	// Fee growth differences wrap mod 2^256 by design.
	delta0 := new(uint256.Int).Sub(feeGrowthInside0X128, p.FeeGrowthInside0LastX128)
	delta1 := new(uint256.Int).Sub(feeGrowthInside1X128, p.FeeGrowthInside1LastX128)
	tokensOwed0, err := fixedmath.MulDiv(delta0, p.Liquidity, fixedmath.Q128)
	if err != nil {
		return err
	}
	tokensOwed1, err := fixedmath.MulDiv(delta1, p.Liquidity, fixedmath.Q128)
	if err != nil {
		return err
	}

	if liquidityDelta.Sign() != 0 {
		p.Liquidity = liquidityNext
	}
	p.FeeGrowthInside0LastX128 = new(uint256.Int).Set(feeGrowthInside0X128)
	p.FeeGrowthInside1LastX128 = new(uint256.Int).Set(feeGrowthInside1X128)
	if !tokensOwed0.IsZero() || !tokensOwed1.IsZero() {
		// Wrapping add at 128 bits, matching the source's unchecked
		// accumulation.
		p.TokensOwed0.Add(p.TokensOwed0, tokensOwed0)
		p.TokensOwed0.And(p.TokensOwed0, fixedmath.MaxUint128)
		p.TokensOwed1.Add(p.TokensOwed1, tokensOwed1)
		p.TokensOwed1.And(p.TokensOwed1, fixedmath.MaxUint128)
	}
	return nil
}
