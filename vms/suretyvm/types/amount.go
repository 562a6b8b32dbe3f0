// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Decimals is the number of fractional digits of one whole value unit.
const Decimals = 18

var errNegativeAmount = errors.New("amount must not be negative")

// Units returns whole * 10^18.
func Units(whole uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(whole), oneUnit())
}

// FractionOfUnit returns num/den of one whole unit, rounded down.
func FractionOfUnit(num, den uint64) *uint256.Int {
	return new(uint256.Int).Div(
		new(uint256.Int).Mul(uint256.NewInt(num), oneUnit()),
		uint256.NewInt(den),
	)
}

func oneUnit() *uint256.Int {
	return uint256.NewInt(1_000_000_000_000_000_000)
}

// FormatUnits renders an amount in whole units, e.g. 750000000000000000 -> "0.75".
func FormatUnits(amount *uint256.Int) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount.ToBig(), -Decimals).String()
}

// ParseUnits parses a decimal string of whole units into smallest units.
func ParseUnits(s string) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a decimal", ErrInvalidArgument, s)
	}
	if d.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidArgument, errNegativeAmount)
	}
	shifted := d.Shift(Decimals)
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidArgument, s, Decimals)
	}
	amount, overflow := uint256.FromBig(shifted.BigInt())
	if overflow {
		return nil, fmt.Errorf("%w: %q overflows 256 bits", ErrInvalidArgument, s)
	}
	return amount, nil
}

// Payout returns insured * num / den, failing on overflow.
func Payout(insured *uint256.Int, num, den uint64) (*uint256.Int, error) {
	if den == 0 {
		return nil, fmt.Errorf("%w: zero payout denominator", ErrInvalidArgument)
	}
	out, overflow := new(uint256.Int).MulDivOverflow(insured, uint256.NewInt(num), uint256.NewInt(den))
	if overflow {
		return nil, fmt.Errorf("%w: payout overflow", ErrInsolventLedger)
	}
	return out, nil
}

// AddChecked returns a + b, failing on overflow.
func AddChecked(a, b *uint256.Int) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("%w: amount overflow", ErrInvalidArgument)
	}
	return out, nil
}
