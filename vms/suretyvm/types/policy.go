// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/holiman/uint256"

	"github.com/luxfi/ids"
)

// PolicyStatus is the state of an insurance policy.
type PolicyStatus uint8

const (
	PolicyActive PolicyStatus = iota + 1
	PolicyCreditIssued
	PolicyWithdrawn
)

func (s PolicyStatus) String() string {
	switch s {
	case PolicyActive:
		return "Active"
	case PolicyCreditIssued:
		return "CreditIssued"
	case PolicyWithdrawn:
		return "Withdrawn"
	default:
		return "Unknown"
	}
}

// Flight identifies one departure of one airline.
type Flight struct {
	Airline   ids.ShortID `serialize:"true"`
	Code      string      `serialize:"true"`
	Departure uint64      `serialize:"true"`
}

// Key returns the flight key, sha256(airline | code | departure).
func (f Flight) Key() ids.ID {
	buf := make([]byte, 0, len(f.Airline)+len(f.Code)+1+8)
	buf = append(buf, f.Airline[:]...)
	buf = append(buf, f.Code...)
	buf = append(buf, 0)
	buf = binary.BigEndian.AppendUint64(buf, f.Departure)
	return ids.ID(sha256.Sum256(buf))
}

// Policy is one passenger's insurance on one flight.
type Policy struct {
	ID          ids.ID       `serialize:"true"`
	Passenger   ids.ShortID  `serialize:"true"`
	Flight      Flight       `serialize:"true"`
	Amount      uint256.Int  `serialize:"true"`
	Status      PolicyStatus `serialize:"true"`
	Payout      uint256.Int  `serialize:"true"`
	PurchasedAt uint64       `serialize:"true"`
	CreditedAt  uint64       `serialize:"true"`
}

// PolicyID derives the policy identity from the passenger and flight.
func PolicyID(passenger ids.ShortID, flightKey ids.ID) ids.ID {
	buf := make([]byte, 0, len(passenger)+len(flightKey))
	buf = append(buf, passenger[:]...)
	buf = append(buf, flightKey[:]...)
	return ids.ID(sha256.Sum256(buf))
}

// CreditAccount holds a passenger's withdrawable balance and lifetime totals.
type CreditAccount struct {
	Passenger ids.ShortID `serialize:"true"`
	Balance   uint256.Int `serialize:"true"`
	Credited  uint256.Int `serialize:"true"`
	Withdrawn uint256.Int `serialize:"true"`
}

// Totals aggregates the ledger across all passengers.
type Totals struct {
	Premiums  uint256.Int `serialize:"true"`
	Credited  uint256.Int `serialize:"true"`
	Withdrawn uint256.Int `serialize:"true"`
}
