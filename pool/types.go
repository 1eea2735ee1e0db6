// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pool implements a single concentrated-liquidity constant-product
// pool: the tick-indexed liquidity book, the swap loop that walks the price
// curve, position-based fee accounting, and a circular price/liquidity
// oracle. One Pool instance owns all of its state; every mutating operation
// runs to completion atomically behind a reentrancy flag.
package pool

import (
	"encoding/binary"
	"errors"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// uint24 type alias for fees
type uint24 = uint32

// int24 type alias for ticks
type int24 = int32

// Fee tiers (hundredths of a basis point) and their canonical tick spacings.
const (
	Fee001 uint24 = 100   // 0.01% - stablecoins
	Fee005 uint24 = 500   // 0.05% - stable pairs
	Fee030 uint24 = 3000  // 0.30% - standard
	Fee100 uint24 = 10000 // 1.00% - exotic pairs

	TickSpacing001 int24 = 1
	TickSpacing005 int24 = 10
	TickSpacing030 int24 = 60
	TickSpacing100 int24 = 200
)

// MaxObservationCardinality is the capacity of the oracle ring buffer.
const MaxObservationCardinality = 65535

// Slot0 is the packed mutable root state of the pool.
type Slot0 struct {
	// SqrtPriceX96 is the current sqrt(token1/token0) price in Q64.96.
	SqrtPriceX96 *uint256.Int
	// Tick is the current tick, the greatest tick whose ratio is at most
	// SqrtPriceX96, except after a zeroForOne swap that stops exactly on a
	// tick's ratio: Tick is then that tick minus one.
	Tick int24
	// ObservationIndex is the index of the most recent oracle observation.
	ObservationIndex uint16
	// ObservationCardinality is the number of live oracle slots.
	ObservationCardinality uint16
	// ObservationCardinalityNext is the cardinality the ring will grow to
	// on the next eligible write.
	ObservationCardinalityNext uint16
	// FeeProtocol packs the protocol fee denominators as two nibbles
	// (low = token0, high = token1); each is 0 or in [4, 10].
	FeeProtocol uint8
	// Unlocked is the reentrancy flag.
	Unlocked bool
}

// ProtocolFees are the accrued, uncollected protocol fees per token.
type ProtocolFees struct {
	Token0 *uint256.Int
	Token1 *uint256.Int
}

// Errors - input validation
var (
	ErrPoolAlreadyInitialized = errors.New("pool already initialized")
	ErrPoolNotInitialized     = errors.New("pool not initialized")
	ErrInvalidTickRange       = errors.New("invalid tick range")
	ErrTickOutOfRange         = errors.New("tick out of range")
	ErrTickNotSpaced          = errors.New("tick not a multiple of spacing")
	ErrZeroAmount             = errors.New("amount must be positive")
	ErrInvalidFeeProtocol     = errors.New("invalid protocol fee")
	ErrInvalidPriceLimit      = errors.New("invalid sqrt price limit")
	ErrInvalidSqrtPrice       = errors.New("invalid sqrt price")
)

// Errors - invariants
var (
	ErrLiquidityPerTick    = errors.New("liquidity per tick exceeded")
	ErrNoPositionLiquidity = errors.New("cannot poke a position with zero liquidity")
	ErrOracleOld           = errors.New("observation older than oldest recorded")
	ErrOracleUninitialized = errors.New("oracle not initialized")
)

// Errors - protocol
var (
	ErrReentrant         = errors.New("reentrancy detected")
	ErrInsufficientInput = errors.New("insufficient input amount paid")
	ErrNoLiquidity       = errors.New("no liquidity in pool")
	ErrUnauthorized      = errors.New("unauthorized")
)

// PositionKey computes the unique identifier of a position owned by owner
// over [tickLower, tickUpper].
func PositionKey(owner common.Address, tickLower, tickUpper int24) common.Hash {
	h := blake3.New()
	h.Write(owner.Bytes())

	var tickBytes [8]byte
	binary.BigEndian.PutUint32(tickBytes[:4], uint32(tickLower))
	binary.BigEndian.PutUint32(tickBytes[4:], uint32(tickUpper))
	h.Write(tickBytes[:])

	var key common.Hash
	h.Digest().Read(key[:])
	return key
}
