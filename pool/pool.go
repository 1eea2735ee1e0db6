// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"

	"github.com/luxfi/clmm/fixedmath"
)

// Config carries the immutable pool parameters.
type Config struct {
	Token0      common.Address `json:"token0"`
	Token1      common.Address `json:"token1"`
	Fee         uint24         `json:"fee"`
	TickSpacing int24          `json:"tickSpacing"`
}

// OwnerSource resolves the address allowed to adjust and collect protocol
// fees; the factory implements it.
type OwnerSource interface {
	Owner() common.Address
}

// Pool is a single two-asset concentrated-liquidity pool. All mutating
// operations are serialized behind the reentrancy flag in Slot0; callbacks
// invoked mid-operation that re-enter a mutating method fail with
// ErrReentrant.
type Pool struct {
	mu  sync.Mutex
	log log.Logger

	token0      common.Address
	token1      common.Address
	fee         uint24
	tickSpacing int24

	maxLiquidityPerTick *uint256.Int

	reserves Reserves
	owner    OwnerSource
	now      func() uint32

	slot0                Slot0
	feeGrowthGlobal0X128 *uint256.Int
	feeGrowthGlobal1X128 *uint256.Int
	protocolFees         ProtocolFees
	liquidity            *uint256.Int

	ticks        tickBook
	bitmap       tickBitmap
	positions    positionBook
	observations *oracleRing

	events []Event
}

// New creates an uninitialized pool over the given reserves. The zero
// sqrt price in Slot0 marks it as awaiting Initialize.
func New(cfg Config, reserves Reserves, owner OwnerSource, logger log.Logger) *Pool {
	return &Pool{
		log:                 logger,
		token0:              cfg.Token0,
		token1:              cfg.Token1,
		fee:                 cfg.Fee,
		tickSpacing:         cfg.TickSpacing,
		maxLiquidityPerTick: fixedmath.MaxLiquidityPerTick(cfg.TickSpacing),
		reserves:            reserves,
		owner:               owner,
		now:                 func() uint32 { return uint32(time.Now().Unix()) },
		slot0: Slot0{
			SqrtPriceX96: new(uint256.Int),
		},
		feeGrowthGlobal0X128: new(uint256.Int),
		feeGrowthGlobal1X128: new(uint256.Int),
		protocolFees: ProtocolFees{
			Token0: new(uint256.Int),
			Token1: new(uint256.Int),
		},
		liquidity:    new(uint256.Int),
		ticks:        newTickBook(),
		bitmap:       newTickBitmap(),
		positions:    newPositionBook(),
		observations: newOracleRing(),
	}
}

// SetTimeSource overrides the block timestamp source. Embedders provide the
// chain's notion of time; the default is wall-clock seconds.
func (p *Pool) SetTimeSource(now func() uint32) {
	p.now = now
}

// =========================================================================
// Accessors
// =========================================================================

func (p *Pool) Token0() common.Address { return p.token0 }
func (p *Pool) Token1() common.Address { return p.token1 }
func (p *Pool) Fee() uint24            { return p.fee }
func (p *Pool) TickSpacing() int24     { return p.tickSpacing }

// MaxLiquidityPerTick returns the per-tick liquidity cap for this spacing.
func (p *Pool) MaxLiquidityPerTick() *uint256.Int {
	return new(uint256.Int).Set(p.maxLiquidityPerTick)
}

// Slot0 returns a copy of the packed root state.
func (p *Pool) Slot0() Slot0 {
	s := p.slot0
	s.SqrtPriceX96 = new(uint256.Int).Set(p.slot0.SqrtPriceX96)
	return s
}

// Liquidity returns the current in-range liquidity.
func (p *Pool) Liquidity() *uint256.Int {
	return new(uint256.Int).Set(p.liquidity)
}

// FeeGrowthGlobal0X128 returns the global fee growth of token0.
func (p *Pool) FeeGrowthGlobal0X128() *uint256.Int {
	return new(uint256.Int).Set(p.feeGrowthGlobal0X128)
}

// FeeGrowthGlobal1X128 returns the global fee growth of token1.
func (p *Pool) FeeGrowthGlobal1X128() *uint256.Int {
	return new(uint256.Int).Set(p.feeGrowthGlobal1X128)
}

// ProtocolFees returns the accrued protocol fees.
func (p *Pool) ProtocolFees() ProtocolFees {
	return ProtocolFees{
		Token0: new(uint256.Int).Set(p.protocolFees.Token0),
		Token1: new(uint256.Int).Set(p.protocolFees.Token1),
	}
}

// Position returns a copy of the position for (owner, tickLower, tickUpper),
// zero-valued if it does not exist.
func (p *Pool) Position(owner common.Address, tickLower, tickUpper int24) Position {
	key := PositionKey(owner, tickLower, tickUpper)
	pos, ok := p.positions[key]
	if !ok {
		pos = newPosition()
	}
	return Position{
		Liquidity:                new(uint256.Int).Set(pos.Liquidity),
		FeeGrowthInside0LastX128: new(uint256.Int).Set(pos.FeeGrowthInside0LastX128),
		FeeGrowthInside1LastX128: new(uint256.Int).Set(pos.FeeGrowthInside1LastX128),
		TokensOwed0:              new(uint256.Int).Set(pos.TokensOwed0),
		TokensOwed1:              new(uint256.Int).Set(pos.TokensOwed1),
	}
}

// TickLiquidity returns (liquidityGross, liquidityNet) for a tick, zeros if
// the tick is not initialized.
func (p *Pool) TickLiquidity(tick int24) (*uint256.Int, *big.Int) {
	info := p.ticks.peek(tick)
	return new(uint256.Int).Set(info.liquidityGross), new(big.Int).Set(info.liquidityNet)
}

// TickFeeGrowthOutside returns the two outside fee accumulators of a tick.
func (p *Pool) TickFeeGrowthOutside(tick int24) (*uint256.Int, *uint256.Int) {
	info := p.ticks.peek(tick)
	return new(uint256.Int).Set(info.feeGrowthOutside0X128), new(uint256.Int).Set(info.feeGrowthOutside1X128)
}

// IsTickInitialized reports whether the tick is set in the bitmap.
func (p *Pool) IsTickInitialized(tick int24) bool {
	return p.bitmap.isInitialized(tick, p.tickSpacing)
}

// Observation returns a copy of the oracle slot at index.
func (p *Pool) Observation(index uint16) Observation {
	obs := *p.observations.at(index)
	obs.SecondsPerLiquidityCumulativeX128 = new(uint256.Int).Set(obs.SecondsPerLiquidityCumulativeX128)
	return obs
}

// Events returns the journal of committed events in order.
func (p *Pool) Events() []Event {
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

func (p *Pool) emit(ev Event) {
	p.events = append(p.events, ev)
	p.log.Debug("pool event", "name", ev.eventName())
}

// =========================================================================
// Locking
// =========================================================================

// lock acquires the reentrancy flag; every mutating operation except
// Initialize runs inside it.
func (p *Pool) lock() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.slot0.SqrtPriceX96.IsZero() {
		return ErrPoolNotInitialized
	}
	if !p.slot0.Unlocked {
		return ErrReentrant
	}
	p.slot0.Unlocked = false
	return nil
}

func (p *Pool) unlock() {
	p.mu.Lock()
	p.slot0.Unlocked = true
	p.mu.Unlock()
}

func checkTicks(tickLower, tickUpper int24) error {
	if tickLower >= tickUpper {
		return ErrInvalidTickRange
	}
	if tickLower < fixedmath.MinTick || tickUpper > fixedmath.MaxTick {
		return ErrTickOutOfRange
	}
	return nil
}

// =========================================================================
// Lifecycle
// =========================================================================

// Initialize sets the starting price. Callable exactly once; the first
// oracle observation is recorded and the pool unlocks.
func (p *Pool) Initialize(sqrtPriceX96 *uint256.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.slot0.SqrtPriceX96.IsZero() {
		return ErrPoolAlreadyInitialized
	}

	tick, err := fixedmath.GetTickAtSqrtRatio(sqrtPriceX96)
	if err != nil {
		return ErrInvalidSqrtPrice
	}

	cardinality, cardinalityNext := p.observations.initialize(p.now())

	p.slot0 = Slot0{
		SqrtPriceX96:               new(uint256.Int).Set(sqrtPriceX96),
		Tick:                       tick,
		ObservationIndex:           0,
		ObservationCardinality:     cardinality,
		ObservationCardinalityNext: cardinalityNext,
		FeeProtocol:                0,
		Unlocked:                   true,
	}

	p.emit(InitializeEvent{SqrtPriceX96: new(uint256.Int).Set(sqrtPriceX96), Tick: tick})
	p.log.Info("pool initialized", "sqrtPriceX96", sqrtPriceX96.String(), "tick", tick)
	return nil
}

// =========================================================================
// Position modification
// =========================================================================

// modifyPosition applies a signed liquidity delta to a position and returns
// the signed token deltas owed (positive: owed to the pool).
func (p *Pool) modifyPosition(
	owner common.Address,
	tickLower, tickUpper int24,
	liquidityDelta *big.Int,
) (*Position, *big.Int, *big.Int, error) {
	if err := checkTicks(tickLower, tickUpper); err != nil {
		return nil, nil, nil, err
	}

	slot0 := p.slot0

	position, err := p.updatePosition(owner, tickLower, tickUpper, liquidityDelta, slot0.Tick)
	if err != nil {
		return nil, nil, nil, err
	}

	amount0 := new(big.Int)
	amount1 := new(big.Int)

	if liquidityDelta.Sign() != 0 {
		lowerRatio, err := fixedmath.GetSqrtRatioAtTick(tickLower)
		if err != nil {
			return nil, nil, nil, err
		}
		upperRatio, err := fixedmath.GetSqrtRatioAtTick(tickUpper)
		if err != nil {
			return nil, nil, nil, err
		}

		switch {
		case slot0.Tick < tickLower:
			// Entirely above the price: the range is held in token0.
			amount0, err = fixedmath.GetAmount0DeltaSigned(lowerRatio, upperRatio, liquidityDelta)
			if err != nil {
				return nil, nil, nil, err
			}

		case slot0.Tick < tickUpper:
			// Straddles the price: the in-range liquidity changes, so an
			// oracle observation is due first.
			liquidityBefore := p.liquidity
			p.slot0.ObservationIndex, p.slot0.ObservationCardinality = p.observations.write(
				slot0.ObservationIndex,
				p.now(),
				slot0.Tick,
				liquidityBefore,
				slot0.ObservationCardinality,
				slot0.ObservationCardinalityNext,
			)

			amount0, err = fixedmath.GetAmount0DeltaSigned(slot0.SqrtPriceX96, upperRatio, liquidityDelta)
			if err != nil {
				return nil, nil, nil, err
			}
			amount1, err = fixedmath.GetAmount1DeltaSigned(lowerRatio, slot0.SqrtPriceX96, liquidityDelta)
			if err != nil {
				return nil, nil, nil, err
			}

			p.liquidity, err = fixedmath.LiquidityAddDelta(liquidityBefore, liquidityDelta)
			if err != nil {
				return nil, nil, nil, err
			}

		default:
			// Entirely below the price: the range is held in token1.
			amount1, err = fixedmath.GetAmount1DeltaSigned(lowerRatio, upperRatio, liquidityDelta)
			if err != nil {
				return nil, nil, nil, err
			}
		}
	}
	return position, amount0, amount1, nil
}

// updatePosition applies the delta to the two bounding ticks, flips bitmap
// bits as ticks initialize or clear, and settles the position's fees.
func (p *Pool) updatePosition(
	owner common.Address,
	tickLower, tickUpper int24,
	liquidityDelta *big.Int,
	tick int24,
) (*Position, error) {
	position := p.positions.get(owner, tickLower, tickUpper)

	// Validate everything that can fail before the first mutation so an
	// aborted operation leaves no partial state.
	if liquidityDelta.Sign() == 0 && position.Liquidity.IsZero() {
		return nil, ErrNoPositionLiquidity
	}
	if _, err := fixedmath.LiquidityAddDelta(position.Liquidity, liquidityDelta); err != nil {
		return nil, err
	}
	for _, bound := range []int24{tickLower, tickUpper} {
		after, err := fixedmath.LiquidityAddDelta(p.ticks.peek(bound).liquidityGross, liquidityDelta)
		if err != nil {
			return nil, err
		}
		if after.Gt(p.maxLiquidityPerTick) {
			return nil, ErrLiquidityPerTick
		}
	}
	if liquidityDelta.Sign() != 0 {
		if tickLower%p.tickSpacing != 0 || tickUpper%p.tickSpacing != 0 {
			return nil, ErrTickNotSpaced
		}
	}

	var flippedLower, flippedUpper bool
	if liquidityDelta.Sign() != 0 {
		blockTime := p.now()
		tickCumulative, secondsPerLiquidityCumulativeX128, err := p.observations.observeSingle(
			blockTime, 0, p.slot0.Tick, p.slot0.ObservationIndex, p.liquidity, p.slot0.ObservationCardinality,
		)
		if err != nil {
			return nil, err
		}

		flippedLower, err = p.ticks.update(
			tickLower, tick, liquidityDelta,
			p.feeGrowthGlobal0X128, p.feeGrowthGlobal1X128,
			secondsPerLiquidityCumulativeX128, tickCumulative, blockTime,
			false, p.maxLiquidityPerTick,
		)
		if err != nil {
			return nil, err
		}
		flippedUpper, err = p.ticks.update(
			tickUpper, tick, liquidityDelta,
			p.feeGrowthGlobal0X128, p.feeGrowthGlobal1X128,
			secondsPerLiquidityCumulativeX128, tickCumulative, blockTime,
			true, p.maxLiquidityPerTick,
		)
		if err != nil {
			return nil, err
		}

		if flippedLower {
			if err := p.bitmap.flipTick(tickLower, p.tickSpacing); err != nil {
				return nil, err
			}
		}
		if flippedUpper {
			if err := p.bitmap.flipTick(tickUpper, p.tickSpacing); err != nil {
				return nil, err
			}
		}
	}

	feeGrowthInside0X128, feeGrowthInside1X128 := p.ticks.getFeeGrowthInside(
		tickLower, tickUpper, tick, p.feeGrowthGlobal0X128, p.feeGrowthGlobal1X128,
	)

	if err := position.update(liquidityDelta, feeGrowthInside0X128, feeGrowthInside1X128); err != nil {
		return nil, err
	}

	// Ticks that flipped off on removal are erased entirely.
	if liquidityDelta.Sign() < 0 {
		if flippedLower {
			p.ticks.clear(tickLower)
		}
		if flippedUpper {
			p.ticks.clear(tickUpper)
		}
	}
	return position, nil
}

// =========================================================================
// Mint / Burn / Collect
// =========================================================================

// Mint adds liquidity for recipient over [tickLower, tickUpper]. The
// callback must pay the returned amounts to the pool before returning; the
// pool verifies its balances afterwards.
func (p *Pool) Mint(
	sender, recipient common.Address,
	tickLower, tickUpper int24,
	amount *uint256.Int,
	callback MintCallback,
	data []byte,
) (*uint256.Int, *uint256.Int, error) {
	if err := p.lock(); err != nil {
		return nil, nil, err
	}
	defer p.unlock()

	if amount == nil || amount.IsZero() {
		return nil, nil, ErrZeroAmount
	}

	_, amount0Int, amount1Int, err := p.modifyPosition(recipient, tickLower, tickUpper, amount.ToBig())
	if err != nil {
		return nil, nil, err
	}

	amount0, _ := uint256.FromBig(amount0Int)
	amount1, _ := uint256.FromBig(amount1Int)

	var balance0Before, balance1Before *uint256.Int
	if !amount0.IsZero() {
		balance0Before = p.reserves.Balance0()
	}
	if !amount1.IsZero() {
		balance1Before = p.reserves.Balance1()
	}

	if err := callback(amount0, amount1, data); err != nil {
		return nil, nil, err
	}

	if !amount0.IsZero() {
		want := new(uint256.Int).Add(balance0Before, amount0)
		if p.reserves.Balance0().Lt(want) {
			return nil, nil, fmt.Errorf("%w: token0", ErrInsufficientInput)
		}
	}
	if !amount1.IsZero() {
		want := new(uint256.Int).Add(balance1Before, amount1)
		if p.reserves.Balance1().Lt(want) {
			return nil, nil, fmt.Errorf("%w: token1", ErrInsufficientInput)
		}
	}

	p.emit(MintEvent{
		Sender:    sender,
		Owner:     recipient,
		TickLower: tickLower,
		TickUpper: tickUpper,
		Amount:    new(uint256.Int).Set(amount),
		Amount0:   amount0,
		Amount1:   amount1,
	})
	p.log.Debug("mint", "owner", recipient, "tickLower", tickLower, "tickUpper", tickUpper, "amount", amount.String())
	return amount0, amount1, nil
}

// Burn removes liquidity from the caller's position and credits the freed
// amounts to tokensOwed; no tokens move until Collect. A zero amount pokes
// the position, settling fees only.
func (p *Pool) Burn(
	owner common.Address,
	tickLower, tickUpper int24,
	amount *uint256.Int,
) (*uint256.Int, *uint256.Int, error) {
	if err := p.lock(); err != nil {
		return nil, nil, err
	}
	defer p.unlock()

	delta := new(big.Int).Neg(amount.ToBig())
	position, amount0Int, amount1Int, err := p.modifyPosition(owner, tickLower, tickUpper, delta)
	if err != nil {
		return nil, nil, err
	}

	amount0, _ := uint256.FromBig(new(big.Int).Neg(amount0Int))
	amount1, _ := uint256.FromBig(new(big.Int).Neg(amount1Int))

	if !amount0.IsZero() || !amount1.IsZero() {
		position.TokensOwed0.Add(position.TokensOwed0, amount0)
		position.TokensOwed0.And(position.TokensOwed0, fixedmath.MaxUint128)
		position.TokensOwed1.Add(position.TokensOwed1, amount1)
		position.TokensOwed1.And(position.TokensOwed1, fixedmath.MaxUint128)
	}

	p.emit(BurnEvent{
		Owner:     owner,
		TickLower: tickLower,
		TickUpper: tickUpper,
		Amount:    new(uint256.Int).Set(amount),
		Amount0:   amount0,
		Amount1:   amount1,
	})
	return amount0, amount1, nil
}

// Collect transfers up to the requested amounts of the position's owed
// tokens to recipient. Bounds are not revalidated: collecting from a dead
// or never-existing position returns zeros.
func (p *Pool) Collect(
	owner, recipient common.Address,
	tickLower, tickUpper int24,
	amount0Requested, amount1Requested *uint256.Int,
) (*uint256.Int, *uint256.Int, error) {
	if err := p.lock(); err != nil {
		return nil, nil, err
	}
	defer p.unlock()

	key := PositionKey(owner, tickLower, tickUpper)
	position, ok := p.positions[key]
	if !ok {
		return new(uint256.Int), new(uint256.Int), nil
	}

	amount0 := new(uint256.Int).Set(amount0Requested)
	if amount0.Gt(position.TokensOwed0) {
		amount0.Set(position.TokensOwed0)
	}
	amount1 := new(uint256.Int).Set(amount1Requested)
	if amount1.Gt(position.TokensOwed1) {
		amount1.Set(position.TokensOwed1)
	}

	if !amount0.IsZero() {
		position.TokensOwed0.Sub(position.TokensOwed0, amount0)
		if err := p.reserves.Transfer0(recipient, amount0); err != nil {
			return nil, nil, err
		}
	}
	if !amount1.IsZero() {
		position.TokensOwed1.Sub(position.TokensOwed1, amount1)
		if err := p.reserves.Transfer1(recipient, amount1); err != nil {
			return nil, nil, err
		}
	}

	p.emit(CollectEvent{
		Owner:     owner,
		Recipient: recipient,
		TickLower: tickLower,
		TickUpper: tickUpper,
		Amount0:   amount0,
		Amount1:   amount1,
	})
	return amount0, amount1, nil
}

// =========================================================================
// Protocol fee controls
// =========================================================================

// SetFeeProtocol sets the protocol's share denominators. Each value is 0
// (off) or in [4, 10]. Factory owner only.
func (p *Pool) SetFeeProtocol(sender common.Address, feeProtocol0, feeProtocol1 uint8) error {
	if sender != p.owner.Owner() {
		return ErrUnauthorized
	}
	if err := p.lock(); err != nil {
		return err
	}
	defer p.unlock()

	valid := func(v uint8) bool { return v == 0 || (v >= 4 && v <= 10) }
	if !valid(feeProtocol0) || !valid(feeProtocol1) {
		return ErrInvalidFeeProtocol
	}

	old := p.slot0.FeeProtocol
	p.slot0.FeeProtocol = feeProtocol0 | (feeProtocol1 << 4)

	p.emit(SetFeeProtocolEvent{
		FeeProtocol0Old: old % 16,
		FeeProtocol1Old: old >> 4,
		FeeProtocol0New: feeProtocol0,
		FeeProtocol1New: feeProtocol1,
	})
	return nil
}

// CollectProtocol withdraws accrued protocol fees. Factory owner only. A
// fully drained counter keeps a residual unit so the slot is never cleared,
// mirroring the source's warm-storage behavior.
func (p *Pool) CollectProtocol(
	sender, recipient common.Address,
	amount0Requested, amount1Requested *uint256.Int,
) (*uint256.Int, *uint256.Int, error) {
	if sender != p.owner.Owner() {
		return nil, nil, ErrUnauthorized
	}
	if err := p.lock(); err != nil {
		return nil, nil, err
	}
	defer p.unlock()

	amount0 := new(uint256.Int).Set(amount0Requested)
	if amount0.Gt(p.protocolFees.Token0) {
		amount0.Set(p.protocolFees.Token0)
	}
	amount1 := new(uint256.Int).Set(amount1Requested)
	if amount1.Gt(p.protocolFees.Token1) {
		amount1.Set(p.protocolFees.Token1)
	}

	if !amount0.IsZero() {
		if amount0.Eq(p.protocolFees.Token0) {
			amount0.SubUint64(amount0, 1)
		}
		p.protocolFees.Token0.Sub(p.protocolFees.Token0, amount0)
		if err := p.reserves.Transfer0(recipient, amount0); err != nil {
			return nil, nil, err
		}
	}
	if !amount1.IsZero() {
		if amount1.Eq(p.protocolFees.Token1) {
			amount1.SubUint64(amount1, 1)
		}
		p.protocolFees.Token1.Sub(p.protocolFees.Token1, amount1)
		if err := p.reserves.Transfer1(recipient, amount1); err != nil {
			return nil, nil, err
		}
	}

	p.emit(CollectProtocolEvent{
		Sender:    sender,
		Recipient: recipient,
		Amount0:   amount0,
		Amount1:   amount1,
	})
	return amount0, amount1, nil
}

// =========================================================================
// Oracle surface
// =========================================================================

// IncreaseObservationCardinalityNext grows the oracle ring's target size.
func (p *Pool) IncreaseObservationCardinalityNext(observationCardinalityNext uint16) error {
	if err := p.lock(); err != nil {
		return err
	}
	defer p.unlock()

	old := p.slot0.ObservationCardinalityNext
	next := p.observations.grow(old, observationCardinalityNext)
	p.slot0.ObservationCardinalityNext = next

	if old != next {
		p.emit(IncreaseObservationCardinalityNextEvent{
			CardinalityNextOld: old,
			CardinalityNextNew: next,
		})
	}
	return nil
}

// Observe returns the cumulative tick and seconds-per-liquidity as of each
// secondsAgo entry. Read-only; consistent with the last committed state.
func (p *Pool) Observe(secondsAgos []uint32) ([]int64, []*uint256.Int, error) {
	return p.observations.observe(
		p.now(),
		secondsAgos,
		p.slot0.Tick,
		p.slot0.ObservationIndex,
		p.liquidity,
		p.slot0.ObservationCardinality,
	)
}

// SnapshotCumulativesInside returns the cumulative tick, seconds-per-
// liquidity and seconds spent inside a range. Both bounding ticks must be
// initialized; snapshots are only comparable over periods the range held
// liquidity.
func (p *Pool) SnapshotCumulativesInside(tickLower, tickUpper int24) (int64, *uint256.Int, uint32, error) {
	if err := checkTicks(tickLower, tickUpper); err != nil {
		return 0, nil, 0, err
	}

	lower, okLower := p.ticks[tickLower]
	upper, okUpper := p.ticks[tickUpper]
	if !okLower || !okUpper {
		return 0, nil, 0, ErrTickOutOfRange
	}

	slot0 := p.slot0
	switch {
	case slot0.Tick < tickLower:
		return lower.tickCumulativeOutside - upper.tickCumulativeOutside,
			new(uint256.Int).Sub(lower.secondsPerLiquidityOutsideX128, upper.secondsPerLiquidityOutsideX128),
			lower.secondsOutside - upper.secondsOutside,
			nil

	case slot0.Tick < tickUpper:
		blockTime := p.now()
		tickCumulative, secondsPerLiquidityCumulativeX128, err := p.observations.observeSingle(
			blockTime, 0, slot0.Tick, slot0.ObservationIndex, p.liquidity, slot0.ObservationCardinality,
		)
		if err != nil {
			return 0, nil, 0, err
		}
		spl := new(uint256.Int).Sub(secondsPerLiquidityCumulativeX128, lower.secondsPerLiquidityOutsideX128)
		spl.Sub(spl, upper.secondsPerLiquidityOutsideX128)
		return tickCumulative - lower.tickCumulativeOutside - upper.tickCumulativeOutside,
			spl,
			blockTime - lower.secondsOutside - upper.secondsOutside,
			nil

	default:
		return upper.tickCumulativeOutside - lower.tickCumulativeOutside,
			new(uint256.Int).Sub(upper.secondsPerLiquidityOutsideX128, lower.secondsPerLiquidityOutsideX128),
			upper.secondsOutside - lower.secondsOutside,
			nil
	}
}

// =========================================================================
// Flash
// =========================================================================

// Flash lends any amount of the two tokens for the duration of the
// callback, charging the pool fee on the amounts borrowed. Overpayment
// beyond the required fee also accrues to liquidity providers.
func (p *Pool) Flash(
	sender, recipient common.Address,
	amount0, amount1 *uint256.Int,
	callback FlashCallback,
	data []byte,
) error {
	if err := p.lock(); err != nil {
		return err
	}
	defer p.unlock()

	if p.liquidity.IsZero() {
		return ErrNoLiquidity
	}

	feePips := uint256.NewInt(uint64(p.fee))
	feeDenom := uint256.NewInt(uint64(fixedmath.FeePipsDenominator))
	fee0, err := fixedmath.MulDivRoundingUp(amount0, feePips, feeDenom)
	if err != nil {
		return err
	}
	fee1, err := fixedmath.MulDivRoundingUp(amount1, feePips, feeDenom)
	if err != nil {
		return err
	}

	balance0Before := p.reserves.Balance0()
	balance1Before := p.reserves.Balance1()

	if !amount0.IsZero() {
		if err := p.reserves.Transfer0(recipient, amount0); err != nil {
			return err
		}
	}
	if !amount1.IsZero() {
		if err := p.reserves.Transfer1(recipient, amount1); err != nil {
			return err
		}
	}

	if err := callback(fee0, fee1, data); err != nil {
		return err
	}

	balance0After := p.reserves.Balance0()
	balance1After := p.reserves.Balance1()

	if balance0After.Lt(new(uint256.Int).Add(balance0Before, fee0)) {
		return fmt.Errorf("%w: token0 flash", ErrInsufficientInput)
	}
	if balance1After.Lt(new(uint256.Int).Add(balance1Before, fee1)) {
		return fmt.Errorf("%w: token1 flash", ErrInsufficientInput)
	}

	paid0 := new(uint256.Int).Sub(balance0After, balance0Before)
	paid1 := new(uint256.Int).Sub(balance1After, balance1Before)

	if !paid0.IsZero() {
		feeProtocol0 := p.slot0.FeeProtocol % 16
		protocolFee := new(uint256.Int)
		if feeProtocol0 > 0 {
			protocolFee.Div(paid0, uint256.NewInt(uint64(feeProtocol0)))
			p.addProtocolFee0(protocolFee)
		}
		growth, err := fixedmath.MulDiv(new(uint256.Int).Sub(paid0, protocolFee), fixedmath.Q128, p.liquidity)
		if err != nil {
			return err
		}
		p.feeGrowthGlobal0X128.Add(p.feeGrowthGlobal0X128, growth)
	}
	if !paid1.IsZero() {
		feeProtocol1 := p.slot0.FeeProtocol >> 4
		protocolFee := new(uint256.Int)
		if feeProtocol1 > 0 {
			protocolFee.Div(paid1, uint256.NewInt(uint64(feeProtocol1)))
			p.addProtocolFee1(protocolFee)
		}
		growth, err := fixedmath.MulDiv(new(uint256.Int).Sub(paid1, protocolFee), fixedmath.Q128, p.liquidity)
		if err != nil {
			return err
		}
		p.feeGrowthGlobal1X128.Add(p.feeGrowthGlobal1X128, growth)
	}

	p.emit(FlashEvent{
		Sender:    sender,
		Recipient: recipient,
		Amount0:   new(uint256.Int).Set(amount0),
		Amount1:   new(uint256.Int).Set(amount1),
		Paid0:     paid0,
		Paid1:     paid1,
	})
	return nil
}

// addProtocolFee0 accrues protocol fees for token0, saturating at the
// 128-bit ceiling.
func (p *Pool) addProtocolFee0(amount *uint256.Int) {
	p.protocolFees.Token0.Add(p.protocolFees.Token0, amount)
	if p.protocolFees.Token0.Gt(fixedmath.MaxUint128) {
		p.protocolFees.Token0.Set(fixedmath.MaxUint128)
	}
}

func (p *Pool) addProtocolFee1(amount *uint256.Int) {
	p.protocolFees.Token1.Add(p.protocolFees.Token1, amount)
	if p.protocolFees.Token1.Gt(fixedmath.MaxUint128) {
		p.protocolFees.Token1.Set(fixedmath.MaxUint128)
	}
}
