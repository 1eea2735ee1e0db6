// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"errors"
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// Reserves abstracts the two-token settlement layer. The engine only ever
// reads its own balances and pushes transfers out; payments flow in through
// callbacks and are verified by balance inspection afterwards.
type Reserves interface {
	Balance0() *uint256.Int
	Balance1() *uint256.Int
	Transfer0(to common.Address, amount *uint256.Int) error
	Transfer1(to common.Address, amount *uint256.Int) error
}

// Callbacks invoked mid-operation. Each is a capability handed into the
// call; it must settle the owed tokens before returning. Return values are
// errors only: a non-nil error aborts the whole operation.
type (
	// MintCallback must pay amount0Owed/amount1Owed to the pool.
	MintCallback func(amount0Owed, amount1Owed *uint256.Int, data []byte) error

	// SwapCallback must pay the positive of the two deltas to the pool.
	// Deltas are from the pool's perspective: positive owed to pool.
	SwapCallback func(amount0Delta, amount1Delta *big.Int, data []byte) error

	// FlashCallback must return the borrowed amounts plus fee0/fee1.
	FlashCallback func(fee0, fee1 *uint256.Int, data []byte) error
)

// ErrInsufficientBalance is returned by the ledger on an over-transfer.
var ErrInsufficientBalance = errors.New("insufficient balance")

// TokenLedger is an in-memory single-token balance book. It stands in for
// an external token's transfer mechanics in tests and embeddings without a
// chain underneath.
type TokenLedger struct {
	mu       sync.Mutex
	balances map[common.Address]*uint256.Int
}

// NewTokenLedger creates an empty ledger.
func NewTokenLedger() *TokenLedger {
	return &TokenLedger{balances: make(map[common.Address]*uint256.Int)}
}

// BalanceOf returns the holder's balance.
func (l *TokenLedger) BalanceOf(holder common.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.balances[holder]; ok {
		return new(uint256.Int).Set(b)
	}
	return new(uint256.Int)
}

// Credit mints amount to the holder.
func (l *TokenLedger) Credit(holder common.Address, amount *uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.balances[holder]
	if !ok {
		b = new(uint256.Int)
		l.balances[holder] = b
	}
	b.Add(b, amount)
}

// Transfer moves amount from one holder to another.
func (l *TokenLedger) Transfer(from, to common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	fb, ok := l.balances[from]
	if !ok || fb.Lt(amount) {
		return ErrInsufficientBalance
	}
	fb.Sub(fb, amount)
	tb, ok := l.balances[to]
	if !ok {
		tb = new(uint256.Int)
		l.balances[to] = tb
	}
	tb.Add(tb, amount)
	return nil
}

// LedgerReserves binds a pool address to two token ledgers.
type LedgerReserves struct {
	Pool    common.Address
	Ledger0 *TokenLedger
	Ledger1 *TokenLedger
}

// NewLedgerReserves creates reserves for the pool address over two ledgers.
func NewLedgerReserves(poolAddr common.Address, ledger0, ledger1 *TokenLedger) *LedgerReserves {
	return &LedgerReserves{Pool: poolAddr, Ledger0: ledger0, Ledger1: ledger1}
}

func (r *LedgerReserves) Balance0() *uint256.Int { return r.Ledger0.BalanceOf(r.Pool) }
func (r *LedgerReserves) Balance1() *uint256.Int { return r.Ledger1.BalanceOf(r.Pool) }

func (r *LedgerReserves) Transfer0(to common.Address, amount *uint256.Int) error {
	return r.Ledger0.Transfer(r.Pool, to, amount)
}

func (r *LedgerReserves) Transfer1(to common.Address, amount *uint256.Int) error {
	return r.Ledger1.Transfer(r.Pool, to, amount)
}
