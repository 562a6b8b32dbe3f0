// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/luxfi/ids"
)

// StatusCode is a flight status reported by an oracle.
type StatusCode uint8

const (
	StatusUnknown       StatusCode = 0
	StatusOnTime        StatusCode = 10
	StatusLateAirline   StatusCode = 20
	StatusLateWeather   StatusCode = 30
	StatusLateTechnical StatusCode = 40
	StatusLateOther     StatusCode = 50
)

// Valid reports whether c is one of the known status codes.
func (c StatusCode) Valid() bool {
	switch c {
	case StatusUnknown, StatusOnTime, StatusLateAirline, StatusLateWeather, StatusLateTechnical, StatusLateOther:
		return true
	default:
		return false
	}
}

// Qualifying reports whether the status makes policies on the flight pay out.
// Only delays attributable to the airline qualify.
func (c StatusCode) Qualifying() bool {
	return c == StatusLateAirline
}

func (c StatusCode) String() string {
	switch c {
	case StatusUnknown:
		return "Unknown"
	case StatusOnTime:
		return "OnTime"
	case StatusLateAirline:
		return "LateAirline"
	case StatusLateWeather:
		return "LateWeather"
	case StatusLateTechnical:
		return "LateTechnical"
	case StatusLateOther:
		return "LateOther"
	default:
		return "Invalid"
	}
}

// RequestStatus is the state of an oracle status request.
type RequestStatus uint8

const (
	RequestOpen RequestStatus = iota + 1
	RequestResolved
	RequestExpired
)

func (s RequestStatus) String() string {
	switch s {
	case RequestOpen:
		return "Open"
	case RequestResolved:
		return "Resolved"
	case RequestExpired:
		return "Expired"
	default:
		return "Unknown"
	}
}

// StatusRequest asks the oracle collaborator to resolve a flight's status.
type StatusRequest struct {
	ID         ids.ID        `serialize:"true"`
	Flight     Flight        `serialize:"true"`
	Requester  ids.ShortID   `serialize:"true"`
	Status     RequestStatus `serialize:"true"`
	Code       StatusCode    `serialize:"true"`
	OpenedAt   uint64        `serialize:"true"`
	ResolvedAt uint64        `serialize:"true"`
}

// RequestID derives a request identity from the flight key and a nonce.
func RequestID(flightKey ids.ID, nonce uint64) ids.ID {
	buf := make([]byte, 0, len(flightKey)+8)
	buf = append(buf, flightKey[:]...)
	buf = binary.BigEndian.AppendUint64(buf, nonce)
	return ids.ID(sha256.Sum256(buf))
}
