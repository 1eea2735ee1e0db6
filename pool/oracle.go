// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"github.com/holiman/uint256"

	"github.com/luxfi/clmm/fixedmath"
)

// Observation is one slot of the oracle ring: the running accumulators as of
// a block timestamp. Timestamps are 32-bit and comparisons tolerate one
// wrap.
type Observation struct {
	BlockTimestamp uint32
	// TickCumulative is the tick accumulated over seconds elapsed.
	TickCumulative int64
	// SecondsPerLiquidityCumulativeX128 accumulates seconds / max(L, 1),
	// wrapping at 160 bits.
	SecondsPerLiquidityCumulativeX128 *uint256.Int
	Initialized                       bool
}

// oracleRing is the circular observation buffer. Only indexes below the
// current cardinality are live; slots past it hold a sentinel timestamp so
// growth is paid for up front and never re-read.
type oracleRing struct {
	obs []Observation
}

func newOracleRing() *oracleRing {
	return &oracleRing{}
}

func (o *oracleRing) at(i uint16) *Observation {
	return &o.obs[i]
}

// transform advances an observation to a new timestamp under the current
// tick and liquidity.
func transform(last *Observation, blockTimestamp uint32, tick int24, liquidity *uint256.Int) Observation {
	delta := blockTimestamp - last.BlockTimestamp

	// Seconds accumulate per unit of liquidity, or per max(L, 1) so an
	// empty pool still advances the clock.
	spl := new(uint256.Int).Lsh(uint256.NewInt(uint64(delta)), 128)
	if !liquidity.IsZero() {
		spl.Div(spl, liquidity)
	}
	spl.Add(spl, last.SecondsPerLiquidityCumulativeX128)
	spl.And(spl, fixedmath.MaxUint160)

	return Observation{
		BlockTimestamp:                    blockTimestamp,
		TickCumulative:                    last.TickCumulative + int64(tick)*int64(delta),
		SecondsPerLiquidityCumulativeX128: spl,
		Initialized:                       true,
	}
}

// initialize seeds slot zero and returns the initial cardinality pair.
func (o *oracleRing) initialize(time uint32) (cardinality, cardinalityNext uint16) {
	o.obs = []Observation{{
		BlockTimestamp:                    time,
		SecondsPerLiquidityCumulativeX128: new(uint256.Int),
		Initialized:                       true,
	}}
	return 1, 1
}

// write records an observation for the given timestamp, at most once per
// timestamp. The ring grows to cardinalityNext exactly when the head is on
// the last live slot.
func (o *oracleRing) write(
	index uint16,
	blockTimestamp uint32,
	tick int24,
	liquidity *uint256.Int,
	cardinality, cardinalityNext uint16,
) (indexUpdated, cardinalityUpdated uint16) {
	last := o.at(index)
	if last.BlockTimestamp == blockTimestamp {
		return index, cardinality
	}

	if cardinalityNext > cardinality && index == cardinality-1 {
		cardinalityUpdated = cardinalityNext
	} else {
		cardinalityUpdated = cardinality
	}

	indexUpdated = (index + 1) % cardinalityUpdated
	o.obs[indexUpdated] = transform(last, blockTimestamp, tick, liquidity)
	return indexUpdated, cardinalityUpdated
}

// grow extends the ring to next slots, stamping each new slot so the write
// that eventually reaches it pays no allocation. A no-op when next is not
// larger than current.
func (o *oracleRing) grow(current, next uint16) uint16 {
	if current == 0 {
		return current
	}
	if next <= current {
		return current
	}
	for i := len(o.obs); i < int(next); i++ {
		o.obs = append(o.obs, Observation{
			BlockTimestamp:                    1,
			SecondsPerLiquidityCumulativeX128: new(uint256.Int),
		})
	}
	return next
}

// lte compares two 32-bit timestamps relative to a reference time,
// tolerating one wraparound: values at or below time (written after the
// wrap) are adjusted by 2^32, so values numerically greater than time (written
// before the wrap) order as older.
func lte(time, a, b uint32) bool {
	if a <= time && b <= time {
		return a <= b
	}
	aAdjusted := uint64(a)
	if a <= time {
		aAdjusted += 1 << 32
	}
	bAdjusted := uint64(b)
	if b <= time {
		bAdjusted += 1 << 32
	}
	return aAdjusted <= bAdjusted
}

// binarySearch locates the observations bracketing the target timestamp.
// The answer must be contained in the live window; uninitialized slots are
// skipped by advancing the left bound.
func (o *oracleRing) binarySearch(time, target uint32, index, cardinality uint16) (beforeOrAt, atOrAfter Observation) {
	l := (int(index) + 1) % int(cardinality)
	r := l + int(cardinality) - 1

	for {
		i := (l + r) / 2
		beforeOrAt = o.obs[i%int(cardinality)]

		if !beforeOrAt.Initialized {
			l = i + 1
			continue
		}

		atOrAfter = o.obs[(i+1)%int(cardinality)]

		targetAtOrAfter := lte(time, beforeOrAt.BlockTimestamp, target)
		if targetAtOrAfter && lte(time, target, atOrAfter.BlockTimestamp) {
			return beforeOrAt, atOrAfter
		}

		if !targetAtOrAfter {
			r = i - 1
		} else {
			l = i + 1
		}
	}
}

// getSurroundingObservations returns the observations at or before and at
// or after target, transforming the head forward when the target is newer
// than everything recorded.
func (o *oracleRing) getSurroundingObservations(
	time, target uint32,
	tick int24,
	index uint16,
	liquidity *uint256.Int,
	cardinality uint16,
) (beforeOrAt, atOrAfter Observation, err error) {
	beforeOrAt = *o.at(index)

	if lte(time, beforeOrAt.BlockTimestamp, target) {
		if beforeOrAt.BlockTimestamp == target {
			return beforeOrAt, atOrAfter, nil
		}
		return beforeOrAt, transform(&beforeOrAt, target, tick, liquidity), nil
	}

	beforeOrAt = o.obs[(int(index)+1)%int(cardinality)]
	if !beforeOrAt.Initialized {
		beforeOrAt = o.obs[0]
	}

	if !lte(time, beforeOrAt.BlockTimestamp, target) {
		return beforeOrAt, atOrAfter, ErrOracleOld
	}

	beforeOrAt, atOrAfter = o.binarySearch(time, target, index, cardinality)
	return beforeOrAt, atOrAfter, nil
}

// observeSingle returns the accumulators as of secondsAgo before time. Zero
// secondsAgo reads the head, transformed to now if the head is older than
// this block.
func (o *oracleRing) observeSingle(
	time uint32,
	secondsAgo uint32,
	tick int24,
	index uint16,
	liquidity *uint256.Int,
	cardinality uint16,
) (tickCumulative int64, secondsPerLiquidityCumulativeX128 *uint256.Int, err error) {
	if cardinality == 0 {
		return 0, nil, ErrOracleUninitialized
	}

	if secondsAgo == 0 {
		last := *o.at(index)
		if last.BlockTimestamp != time {
			last = transform(&last, time, tick, liquidity)
		}
		return last.TickCumulative, last.SecondsPerLiquidityCumulativeX128, nil
	}

	target := time - secondsAgo

	beforeOrAt, atOrAfter, err := o.getSurroundingObservations(time, target, tick, index, liquidity, cardinality)
	if err != nil {
		return 0, nil, err
	}

	switch {
	case target == beforeOrAt.BlockTimestamp:
		return beforeOrAt.TickCumulative, beforeOrAt.SecondsPerLiquidityCumulativeX128, nil
	case target == atOrAfter.BlockTimestamp:
		return atOrAfter.TickCumulative, atOrAfter.SecondsPerLiquidityCumulativeX128, nil
	default:
		// Linear interpolation between the bracketing observations.
		obsDelta := atOrAfter.BlockTimestamp - beforeOrAt.BlockTimestamp
		targetDelta := target - beforeOrAt.BlockTimestamp

		tickCumulative = beforeOrAt.TickCumulative +
			(atOrAfter.TickCumulative-beforeOrAt.TickCumulative)/int64(obsDelta)*int64(targetDelta)

		splDelta := new(uint256.Int).Sub(
			atOrAfter.SecondsPerLiquidityCumulativeX128,
			beforeOrAt.SecondsPerLiquidityCumulativeX128,
		)
		splDelta.And(splDelta, fixedmath.MaxUint160)
		splDelta.Mul(splDelta, uint256.NewInt(uint64(targetDelta)))
		splDelta.Div(splDelta, uint256.NewInt(uint64(obsDelta)))
		spl := new(uint256.Int).Add(beforeOrAt.SecondsPerLiquidityCumulativeX128, splDelta)
		spl.And(spl, fixedmath.MaxUint160)
		return tickCumulative, spl, nil
	}
}

// observe returns accumulators for each entry of secondsAgos.
func (o *oracleRing) observe(
	time uint32,
	secondsAgos []uint32,
	tick int24,
	index uint16,
	liquidity *uint256.Int,
	cardinality uint16,
) (tickCumulatives []int64, secondsPerLiquidityCumulativeX128s []*uint256.Int, err error) {
	if cardinality == 0 {
		return nil, nil, ErrOracleUninitialized
	}

	tickCumulatives = make([]int64, len(secondsAgos))
	secondsPerLiquidityCumulativeX128s = make([]*uint256.Int, len(secondsAgos))
	for i, secondsAgo := range secondsAgos {
		tickCumulatives[i], secondsPerLiquidityCumulativeX128s[i], err = o.observeSingle(
			time, secondsAgo, tick, index, liquidity, cardinality,
		)
		if err != nil {
			return nil, nil, err
		}
	}
	return tickCumulatives, secondsPerLiquidityCumulativeX128s, nil
}
