// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fixedmath

import (
	"errors"
	"math/bits"

	"github.com/holiman/uint256"
)

// ErrZeroWord is returned when a bit scan is attempted on a zero word.
var ErrZeroWord = errors.New("bit scan on zero word")

// MostSignificantBit returns the index of the highest set bit of x,
// 0 <= index <= 255.
func MostSignificantBit(x *uint256.Int) (uint8, error) {
	if x.IsZero() {
		return 0, ErrZeroWord
	}
	return uint8(x.BitLen() - 1), nil
}

// LeastSignificantBit returns the index of the lowest set bit of x,
// 0 <= index <= 255.
func LeastSignificantBit(x *uint256.Int) (uint8, error) {
	if x.IsZero() {
		return 0, ErrZeroWord
	}
	for i := 0; i < 4; i++ {
		if x[i] != 0 {
			return uint8(i*64 + bits.TrailingZeros64(x[i])), nil
		}
	}
	return 0, ErrZeroWord
}
