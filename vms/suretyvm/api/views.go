// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"github.com/luxfi/ids"
	"github.com/luxfi/utils/json"

	"github.com/luxfi/surety/vms/suretyvm/types"
)

// Airline is the RPC view of an airline. Amounts are in whole units and
// timestamps are unix seconds.
type Airline struct {
	Address      string      `json:"address"`
	Name         string      `json:"name"`
	Status       string      `json:"status"`
	Funding      string      `json:"funding"`
	Votes        []string    `json:"votes"`
	NominatedBy  string      `json:"nominatedBy"`
	NominatedAt  json.Uint64 `json:"nominatedAt"`
	RegisteredAt json.Uint64 `json:"registeredAt,omitempty"`
	FundedAt     json.Uint64 `json:"fundedAt,omitempty"`
}

func newAirline(a *types.Airline) Airline {
	return Airline{
		Address:      a.Address.String(),
		Name:         a.Name,
		Status:       a.Status.String(),
		Funding:      types.FormatUnits(&a.Funding),
		Votes:        ids.ShortIDsToStrings(a.Votes),
		NominatedBy:  a.NominatedBy.String(),
		NominatedAt:  json.Uint64(a.NominatedAt),
		RegisteredAt: json.Uint64(a.RegisteredAt),
		FundedAt:     json.Uint64(a.FundedAt),
	}
}

type Policy struct {
	ID          string      `json:"id"`
	Passenger   string      `json:"passenger"`
	Airline     string      `json:"airline"`
	Flight      string      `json:"flight"`
	Departure   json.Uint64 `json:"departure"`
	Amount      string      `json:"amount"`
	Status      string      `json:"status"`
	Payout      string      `json:"payout"`
	PurchasedAt json.Uint64 `json:"purchasedAt"`
	CreditedAt  json.Uint64 `json:"creditedAt,omitempty"`
}

func newPolicy(p *types.Policy) Policy {
	return Policy{
		ID:          p.ID.String(),
		Passenger:   p.Passenger.String(),
		Airline:     p.Flight.Airline.String(),
		Flight:      p.Flight.Code,
		Departure:   json.Uint64(p.Flight.Departure),
		Amount:      types.FormatUnits(&p.Amount),
		Status:      p.Status.String(),
		Payout:      types.FormatUnits(&p.Payout),
		PurchasedAt: json.Uint64(p.PurchasedAt),
		CreditedAt:  json.Uint64(p.CreditedAt),
	}
}

func newPolicies(ps []*types.Policy) []Policy {
	out := make([]Policy, len(ps))
	for i, p := range ps {
		out[i] = newPolicy(p)
	}
	return out
}

type StatusRequest struct {
	ID         string      `json:"id"`
	Airline    string      `json:"airline"`
	Flight     string      `json:"flight"`
	Departure  json.Uint64 `json:"departure"`
	Requester  string      `json:"requester"`
	Status     string      `json:"status"`
	Code       uint8       `json:"code"`
	OpenedAt   json.Uint64 `json:"openedAt"`
	ResolvedAt json.Uint64 `json:"resolvedAt,omitempty"`
}

func newStatusRequest(r *types.StatusRequest) StatusRequest {
	return StatusRequest{
		ID:         r.ID.String(),
		Airline:    r.Flight.Airline.String(),
		Flight:     r.Flight.Code,
		Departure:  json.Uint64(r.Flight.Departure),
		Requester:  r.Requester.String(),
		Status:     r.Status.String(),
		Code:       uint8(r.Code),
		OpenedAt:   json.Uint64(r.OpenedAt),
		ResolvedAt: json.Uint64(r.ResolvedAt),
	}
}
