// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"github.com/holiman/uint256"

	"github.com/luxfi/clmm/fixedmath"
)

// tickBitmap is a word-packed set of the initialized ticks. Tick i (always a
// multiple of the spacing) compresses to i/tickSpacing; bit
// (compressed & 0xff) of word (compressed >> 8) is set iff the tick is
// initialized.
type tickBitmap map[int16]*uint256.Int

func newTickBitmap() tickBitmap {
	return make(tickBitmap)
}

func tickPosition(compressed int24) (wordPos int16, bitPos uint8) {
	wordPos = int16(compressed >> 8)
	bitPos = uint8(compressed & 0xff)
	return wordPos, bitPos
}

// flipTick toggles the initialized bit for tick. The tick must be a multiple
// of tickSpacing.
func (b tickBitmap) flipTick(tick, tickSpacing int24) error {
	if tick%tickSpacing != 0 {
		return ErrTickNotSpaced
	}
	wordPos, bitPos := tickPosition(tick / tickSpacing)
	word, ok := b[wordPos]
	if !ok {
		word = new(uint256.Int)
		b[wordPos] = word
	}
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(bitPos))
	word.Xor(word, mask)
	if word.IsZero() {
		delete(b, wordPos)
	}
	return nil
}

// isInitialized reports whether the tick's bit is set.
func (b tickBitmap) isInitialized(tick, tickSpacing int24) bool {
	if tick%tickSpacing != 0 {
		return false
	}
	wordPos, bitPos := tickPosition(tick / tickSpacing)
	word, ok := b[wordPos]
	if !ok {
		return false
	}
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(bitPos))
	return !new(uint256.Int).And(word, mask).IsZero()
}

// nextInitializedTickWithinOneWord scans at most one 256-tick word for the
// next initialized tick. Searching downward (lte) includes the given tick;
// searching upward excludes it. When the word holds no initialized tick, the
// word's boundary tick is returned with initialized == false so callers can
// advance and rescan.
func (b tickBitmap) nextInitializedTickWithinOneWord(tick, tickSpacing int24, lte bool) (next int24, initialized bool) {
	compressed := tick / tickSpacing
	if tick < 0 && tick%tickSpacing != 0 {
		compressed-- // round toward negative infinity
	}

	if lte {
		wordPos, bitPos := tickPosition(compressed)
		word, ok := b[wordPos]
		// All bits at or below bitPos: (1 << bitPos) - 1 + (1 << bitPos).
		bit := new(uint256.Int).Lsh(uint256.NewInt(1), uint(bitPos))
		mask := new(uint256.Int).SubUint64(bit, 1)
		mask.Or(mask, bit)
		masked := new(uint256.Int)
		if ok {
			masked.And(word, mask)
		}
		if !masked.IsZero() {
			msb, _ := fixedmath.MostSignificantBit(masked)
			return (compressed - int24(bitPos-msb)) * tickSpacing, true
		}
		return (compressed - int24(bitPos)) * tickSpacing, false
	}

	// Start from the next tick up.
	wordPos, bitPos := tickPosition(compressed + 1)
	word, ok := b[wordPos]
	// All bits at or above bitPos.
	mask := new(uint256.Int).Not(
		new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), uint(bitPos)), 1),
	)
	masked := new(uint256.Int)
	if ok {
		masked.And(word, mask)
	}
	if !masked.IsZero() {
		lsb, _ := fixedmath.LeastSignificantBit(masked)
		return (compressed + 1 + int24(lsb-bitPos)) * tickSpacing, true
	}
	return (compressed + 1 + int24(255-bitPos)) * tickSpacing, false
}
