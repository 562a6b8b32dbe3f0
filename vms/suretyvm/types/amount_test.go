// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		name   string
		amount *uint256.Int
		want   string
	}{
		{"nil", nil, "0"},
		{"zero", uint256.NewInt(0), "0"},
		{"one unit", Units(1), "1"},
		{"three quarters", FractionOfUnit(3, 4), "0.75"},
		{"ten units", Units(10), "10"},
		{"one wei", uint256.NewInt(1), "0.000000000000000001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, FormatUnits(tt.amount))
		})
	}
}

func TestParseUnits(t *testing.T) {
	require := require.New(t)

	got, err := ParseUnits("0.5")
	require.NoError(err)
	require.Equal(FractionOfUnit(1, 2), got)

	got, err = ParseUnits("10")
	require.NoError(err)
	require.Equal(Units(10), got)

	_, err = ParseUnits("-1")
	require.ErrorIs(err, ErrInvalidArgument)

	_, err = ParseUnits("0.0000000000000000001")
	require.ErrorIs(err, ErrInvalidArgument)

	_, err = ParseUnits("ten")
	require.ErrorIs(err, ErrInvalidArgument)
}

func TestPayout(t *testing.T) {
	require := require.New(t)

	got, err := Payout(FractionOfUnit(1, 2), 3, 2)
	require.NoError(err)
	require.Equal(FractionOfUnit(3, 4), got)

	got, err = Payout(Units(1), 3, 2)
	require.NoError(err)
	require.Equal("1.5", FormatUnits(got))

	_, err = Payout(Units(1), 3, 0)
	require.ErrorIs(err, ErrInvalidArgument)

	maxAmount := new(uint256.Int).SetAllOne()
	_, err = Payout(maxAmount, 3, 2)
	require.ErrorIs(err, ErrInsolventLedger)
}

func TestQuorum(t *testing.T) {
	for consortium, want := range map[uint64]uint64{
		1: 1,
		2: 1,
		3: 2,
		4: 2,
		5: 3,
		6: 3,
	} {
		require.Equal(t, want, Quorum(consortium), "consortium %d", consortium)
	}
}
