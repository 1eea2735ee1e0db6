// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fixedmath

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var (
	big10      = big.NewInt(10)
	bigNeg10   = big.NewInt(-10)
	bigNeg1001 = big.NewInt(-1001)
)

func TestMulDiv(t *testing.T) {
	tests := []struct {
		name    string
		a, b, d *uint256.Int
		want    string
	}{
		{"exact", uint256.NewInt(6), uint256.NewInt(7), uint256.NewInt(3), "14"},
		{"floors", uint256.NewInt(7), uint256.NewInt(7), uint256.NewInt(3), "16"},
		{"wide intermediate", MaxUint128, MaxUint128, uint256.NewInt(1).Lsh(uint256.NewInt(1), 128), "340282366920938463463374607431768211454"},
		{"full width", MaxUint256, uint256.NewInt(1), MaxUint256, "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MulDiv(tt.a, tt.b, tt.d)
			require.NoError(t, err)
			require.Equal(t, tt.want, got.Dec())
		})
	}
}

func TestMulDiv_Errors(t *testing.T) {
	_, err := MulDiv(uint256.NewInt(1), uint256.NewInt(1), uint256.NewInt(0))
	require.ErrorIs(t, err, ErrDivByZero)

	// Result does not fit in 256 bits.
	_, err = MulDiv(MaxUint256, MaxUint256, uint256.NewInt(1))
	require.ErrorIs(t, err, ErrMulDivOverflow)

	_, err = MulDiv(MaxUint256, uint256.NewInt(2), uint256.NewInt(1))
	require.ErrorIs(t, err, ErrMulDivOverflow)
}

func TestMulDivRoundingUp(t *testing.T) {
	got, err := MulDivRoundingUp(uint256.NewInt(7), uint256.NewInt(7), uint256.NewInt(3))
	require.NoError(t, err)
	require.Equal(t, "17", got.Dec())

	got, err = MulDivRoundingUp(uint256.NewInt(6), uint256.NewInt(7), uint256.NewInt(3))
	require.NoError(t, err)
	require.Equal(t, "14", got.Dec())

	// The quotient is 2^256 (remainder 1): it does not fit in 256 bits.
	_, err = MulDivRoundingUp(MaxUint256, MaxUint256, new(uint256.Int).SubUint64(MaxUint256, 1))
	require.ErrorIs(t, err, ErrMulDivOverflow)
}

func TestDivRoundingUp(t *testing.T) {
	got, err := DivRoundingUp(uint256.NewInt(10), uint256.NewInt(3))
	require.NoError(t, err)
	require.Equal(t, "4", got.Dec())

	got, err = DivRoundingUp(uint256.NewInt(9), uint256.NewInt(3))
	require.NoError(t, err)
	require.Equal(t, "3", got.Dec())

	_, err = DivRoundingUp(uint256.NewInt(1), uint256.NewInt(0))
	require.ErrorIs(t, err, ErrDivByZero)
}

func TestLiquidityAddDelta(t *testing.T) {
	x := uint256.NewInt(1000)

	got, err := LiquidityAddDelta(x, big10)
	require.NoError(t, err)
	require.Equal(t, "1010", got.Dec())

	got, err = LiquidityAddDelta(x, bigNeg10)
	require.NoError(t, err)
	require.Equal(t, "990", got.Dec())

	_, err = LiquidityAddDelta(x, bigNeg1001)
	require.ErrorIs(t, err, ErrLiquiditySub)

	_, err = LiquidityAddDelta(MaxUint128, big10)
	require.ErrorIs(t, err, ErrLiquidityAdd)
}

func TestBitScans(t *testing.T) {
	for _, bit := range []uint{0, 1, 63, 64, 128, 200, 255} {
		word := new(uint256.Int).Lsh(uint256.NewInt(1), bit)
		msb, err := MostSignificantBit(word)
		require.NoError(t, err)
		require.Equal(t, uint8(bit), msb)
		lsb, err := LeastSignificantBit(word)
		require.NoError(t, err)
		require.Equal(t, uint8(bit), lsb)
	}

	word := uint256.MustFromHex("0x8000000000000000000000000000000000000000000000000000000000000001")
	msb, err := MostSignificantBit(word)
	require.NoError(t, err)
	require.Equal(t, uint8(255), msb)
	lsb, err := LeastSignificantBit(word)
	require.NoError(t, err)
	require.Equal(t, uint8(0), lsb)

	_, err = MostSignificantBit(uint256.NewInt(0))
	require.ErrorIs(t, err, ErrZeroWord)
	_, err = LeastSignificantBit(uint256.NewInt(0))
	require.ErrorIs(t, err, ErrZeroWord)
}
