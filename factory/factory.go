// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package factory deploys and indexes pools. It owns the fee tier table,
// enforces canonical token ordering, and is the owner oracle the pools
// consult for protocol-fee authority.
package factory

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"

	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"
	"github.com/zeebo/blake3"

	"github.com/luxfi/clmm/pool"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrIdenticalTokens    = errors.New("identical tokens")
	ErrZeroToken          = errors.New("zero token address")
	ErrFeeNotEnabled      = errors.New("fee tier not enabled")
	ErrPoolExists         = errors.New("pool already exists")
	ErrInvalidTickSpacing = errors.New("invalid tick spacing")
	ErrFeeTooLarge        = errors.New("fee too large")
	ErrFeeAmountTaken     = errors.New("fee amount already enabled")
)

// PoolKey identifies a pool by its sorted token pair and fee tier.
type PoolKey struct {
	Token0 common.Address
	Token1 common.Address
	Fee    uint32
}

// ID computes the unique pool identifier.
func (pk PoolKey) ID() [32]byte {
	h := blake3.New()
	h.Write(pk.Token0.Bytes())
	h.Write(pk.Token1.Bytes())

	var feeBytes [4]byte
	binary.BigEndian.PutUint32(feeBytes[:], pk.Fee)
	h.Write(feeBytes[1:]) // uint24

	var id [32]byte
	h.Digest().Read(id[:])
	return id
}

// Address derives the deterministic pool address from the key.
func (pk PoolKey) Address() common.Address {
	id := pk.ID()
	return common.BytesToAddress(id[:20])
}

// Factory creates pools and answers Owner for protocol-fee authority.
type Factory struct {
	mu  sync.Mutex
	log log.Logger

	owner common.Address

	// feeAmountTickSpacing maps enabled fee tiers to their tick spacing.
	feeAmountTickSpacing map[uint32]int32

	// pools by ID, plus insertion order for deterministic iteration.
	pools     map[[32]byte]*pool.Pool
	poolOrder [][32]byte
}

// New creates a factory owned by owner with the four canonical fee tiers
// enabled.
func New(owner common.Address, logger log.Logger) *Factory {
	return &Factory{
		log:   logger,
		owner: owner,
		feeAmountTickSpacing: map[uint32]int32{
			pool.Fee001: pool.TickSpacing001,
			pool.Fee005: pool.TickSpacing005,
			pool.Fee030: pool.TickSpacing030,
			pool.Fee100: pool.TickSpacing100,
		},
		pools: make(map[[32]byte]*pool.Pool),
	}
}

// Owner returns the current owner address.
func (f *Factory) Owner() common.Address {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.owner
}

// SetOwner transfers ownership. Owner only.
func (f *Factory) SetOwner(sender, newOwner common.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sender != f.owner {
		return ErrUnauthorized
	}
	f.log.Info("factory owner changed", "old", f.owner, "new", newOwner)
	f.owner = newOwner
	return nil
}

// EnableFeeAmount enables an additional fee tier. Owner only; a tier can
// never be changed once enabled.
func (f *Factory) EnableFeeAmount(sender common.Address, fee uint32, tickSpacing int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sender != f.owner {
		return ErrUnauthorized
	}
	if fee >= 1_000_000 {
		return ErrFeeTooLarge
	}
	// The upper bound keeps TickBitmap words reachable from MinTick.
	if tickSpacing <= 0 || tickSpacing >= 16384 {
		return ErrInvalidTickSpacing
	}
	if _, ok := f.feeAmountTickSpacing[fee]; ok {
		return ErrFeeAmountTaken
	}
	f.feeAmountTickSpacing[fee] = tickSpacing
	f.log.Info("fee amount enabled", "fee", fee, "tickSpacing", tickSpacing)
	return nil
}

// TickSpacingForFee returns the spacing for an enabled fee tier, 0 if the
// tier is disabled.
func (f *Factory) TickSpacingForFee(fee uint32) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.feeAmountTickSpacing[fee]
}

// CreatePool deploys the pool for (tokenA, tokenB, fee) over the given
// reserves. Tokens are sorted canonically; the pair plus fee must be new.
func (f *Factory) CreatePool(tokenA, tokenB common.Address, fee uint32, reserves pool.Reserves) (*pool.Pool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if tokenA == tokenB {
		return nil, ErrIdenticalTokens
	}
	token0, token1 := tokenA, tokenB
	if bytes.Compare(token1.Bytes(), token0.Bytes()) < 0 {
		token0, token1 = token1, token0
	}
	if token0 == (common.Address{}) {
		return nil, ErrZeroToken
	}

	tickSpacing, ok := f.feeAmountTickSpacing[fee]
	if !ok {
		return nil, ErrFeeNotEnabled
	}

	key := PoolKey{Token0: token0, Token1: token1, Fee: fee}
	id := key.ID()
	if _, exists := f.pools[id]; exists {
		return nil, ErrPoolExists
	}

	p := pool.New(pool.Config{
		Token0:      token0,
		Token1:      token1,
		Fee:         fee,
		TickSpacing: tickSpacing,
	}, reserves, f, f.log)

	f.pools[id] = p
	f.poolOrder = append(f.poolOrder, id)
	f.log.Info("pool created", "token0", token0, "token1", token1, "fee", fee, "tickSpacing", tickSpacing)
	return p, nil
}

// GetPool returns the pool for a token pair and fee, nil if absent. The
// pair may be passed in either order.
func (f *Factory) GetPool(tokenA, tokenB common.Address, fee uint32) *pool.Pool {
	f.mu.Lock()
	defer f.mu.Unlock()

	token0, token1 := tokenA, tokenB
	if bytes.Compare(token1.Bytes(), token0.Bytes()) < 0 {
		token0, token1 = token1, token0
	}
	return f.pools[PoolKey{Token0: token0, Token1: token1, Fee: fee}.ID()]
}

// Pools returns all pools in creation order.
func (f *Factory) Pools() []*pool.Pool {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*pool.Pool, 0, len(f.poolOrder))
	for _, id := range f.poolOrder {
		out = append(out, f.pools[id])
	}
	return out
}
