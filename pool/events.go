// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// Event is a typed record of a committed state transition. The pool appends
// every event to an internal journal in commit order; Events returns the
// journal for inspection.
type Event interface {
	eventName() string
}

// InitializeEvent records the one-shot pool initialization.
type InitializeEvent struct {
	SqrtPriceX96 *uint256.Int
	Tick         int24
}

// MintEvent records liquidity added to a range.
type MintEvent struct {
	Sender    common.Address
	Owner     common.Address
	TickLower int24
	TickUpper int24
	Amount    *uint256.Int
	Amount0   *uint256.Int
	Amount1   *uint256.Int
}

// BurnEvent records liquidity removed from a range.
type BurnEvent struct {
	Owner     common.Address
	TickLower int24
	TickUpper int24
	Amount    *uint256.Int
	Amount0   *uint256.Int
	Amount1   *uint256.Int
}

// CollectEvent records owed tokens withdrawn from a position.
type CollectEvent struct {
	Owner     common.Address
	Recipient common.Address
	TickLower int24
	TickUpper int24
	Amount0   *uint256.Int
	Amount1   *uint256.Int
}

// SwapEvent records a completed swap. Amounts are signed deltas from the
// pool's perspective: positive flows in, negative flows out.
type SwapEvent struct {
	Sender       common.Address
	Recipient    common.Address
	Amount0      *big.Int
	Amount1      *big.Int
	SqrtPriceX96 *uint256.Int
	Liquidity    *uint256.Int
	Tick         int24
}

// FlashEvent records a flash loan and the fees actually paid.
type FlashEvent struct {
	Sender    common.Address
	Recipient common.Address
	Amount0   *uint256.Int
	Amount1   *uint256.Int
	Paid0     *uint256.Int
	Paid1     *uint256.Int
}

// IncreaseObservationCardinalityNextEvent records oracle ring growth.
type IncreaseObservationCardinalityNextEvent struct {
	CardinalityNextOld uint16
	CardinalityNextNew uint16
}

// SetFeeProtocolEvent records a protocol fee change.
type SetFeeProtocolEvent struct {
	FeeProtocol0Old uint8
	FeeProtocol1Old uint8
	FeeProtocol0New uint8
	FeeProtocol1New uint8
}

// CollectProtocolEvent records protocol fees withdrawn by the owner.
type CollectProtocolEvent struct {
	Sender    common.Address
	Recipient common.Address
	Amount0   *uint256.Int
	Amount1   *uint256.Int
}

func (InitializeEvent) eventName() string { return "Initialize" }
func (MintEvent) eventName() string       { return "Mint" }
func (BurnEvent) eventName() string       { return "Burn" }
func (CollectEvent) eventName() string    { return "Collect" }
func (SwapEvent) eventName() string       { return "Swap" }
func (FlashEvent) eventName() string      { return "Flash" }
func (IncreaseObservationCardinalityNextEvent) eventName() string {
	return "IncreaseObservationCardinalityNext"
}
func (SetFeeProtocolEvent) eventName() string  { return "SetFeeProtocol" }
func (CollectProtocolEvent) eventName() string { return "CollectProtocol" }
