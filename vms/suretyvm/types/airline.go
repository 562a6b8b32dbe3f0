// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"github.com/holiman/uint256"

	"github.com/luxfi/ids"
)

// AirlineStatus is the lifecycle state of an airline.
type AirlineStatus uint8

const (
	AirlinePending AirlineStatus = iota + 1
	AirlineRegistered
	AirlineFunded
)

func (s AirlineStatus) String() string {
	switch s {
	case AirlinePending:
		return "Pending"
	case AirlineRegistered:
		return "Registered"
	case AirlineFunded:
		return "Funded"
	default:
		return "Unknown"
	}
}

// Airline is the persisted record of a consortium member or candidate.
type Airline struct {
	Address      ids.ShortID   `serialize:"true"`
	Name         string        `serialize:"true"`
	Status       AirlineStatus `serialize:"true"`
	Funding      uint256.Int   `serialize:"true"`
	Votes        []ids.ShortID `serialize:"true"`
	NominatedBy  ids.ShortID   `serialize:"true"`
	NominatedAt  uint64        `serialize:"true"`
	RegisteredAt uint64        `serialize:"true"`
	FundedAt     uint64        `serialize:"true"`
}

// InConsortium reports whether the airline counts towards the consortium size.
func (a *Airline) InConsortium() bool {
	return a.Status == AirlineRegistered || a.Status == AirlineFunded
}

// HasVoted reports whether voter already voted for this airline.
func (a *Airline) HasVoted(voter ids.ShortID) bool {
	for _, v := range a.Votes {
		if v == voter {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can mutate without touching cached records.
func (a *Airline) Clone() *Airline {
	c := *a
	c.Votes = append([]ids.ShortID(nil), a.Votes...)
	return &c
}

// Quorum returns the number of votes needed to admit a pending airline
// into a consortium of the given size: ceil(size/2).
func Quorum(consortium uint64) uint64 {
	return (consortium + 1) / 2
}
