// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package airline owns airline records and the registration-consensus
// protocol of the consortium.
package airline

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/surety/utils/timer/mockable"
	"github.com/luxfi/surety/vms/suretyvm/types"
)

// Store persists airline records and the consortium counters.
type Store interface {
	GetAirline(ids.ShortID) (*types.Airline, error)
	HasAirline(ids.ShortID) (bool, error)
	PutAirline(*types.Airline) error
	Airlines() ([]*types.Airline, error)
	ConsortiumSize() (uint64, error)
	SetConsortiumSize(uint64) error
	AirlineCount() (uint64, error)
	SetAirlineCount(uint64) error
}

// Gate rejects mutations while the system is paused.
type Gate interface {
	Check() error
}

// Config holds the consortium rules.
type Config struct {
	// Threshold is the consortium size from which nominations need votes.
	Threshold uint64
	// MinFunding is the smallest accepted funding deposit.
	MinFunding *uint256.Int
}

// Registry implements the airline lifecycle Pending -> Registered -> Funded.
type Registry struct {
	store Store
	gate  Gate
	cfg   Config
	clock *mockable.Clock
	log   log.Logger
}

func NewRegistry(store Store, gate Gate, cfg Config, clock *mockable.Clock, logger log.Logger) *Registry {
	return &Registry{
		store: store,
		gate:  gate,
		cfg:   cfg,
		clock: clock,
		log:   logger,
	}
}

// Nominate creates an airline record on behalf of requester, who has already
// been authorized by the governance facade. While the consortium is smaller
// than the threshold the airline is registered immediately, otherwise it
// waits for votes.
func (r *Registry) Nominate(name string, addr, requester ids.ShortID) (*types.Airline, error) {
	if err := r.gate.Check(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: airline name required", types.ErrInvalidArgument)
	}
	if addr == ids.ShortEmpty {
		return nil, fmt.Errorf("%w: airline address required", types.ErrInvalidArgument)
	}

	count, err := r.store.AirlineCount()
	if err != nil {
		return nil, err
	}

	exists, err := r.store.HasAirline(addr)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: airline %s", types.ErrAlreadyExists, addr)
	}

	consortium, err := r.store.ConsortiumSize()
	if err != nil {
		return nil, err
	}

	now := r.clock.Unix()
	a := &types.Airline{
		Address:     addr,
		Name:        name,
		Status:      types.AirlinePending,
		NominatedBy: requester,
		NominatedAt: now,
	}
	if consortium < r.cfg.Threshold {
		a.Status = types.AirlineRegistered
		a.RegisteredAt = now
		consortium++
		if err := r.store.SetConsortiumSize(consortium); err != nil {
			return nil, err
		}
	}
	if err := r.store.PutAirline(a); err != nil {
		return nil, err
	}
	if err := r.store.SetAirlineCount(count + 1); err != nil {
		return nil, err
	}

	r.log.Info("airline nominated",
		"address", addr,
		"name", name,
		"status", a.Status,
		"consortium", consortium,
	)
	return a, nil
}

// Vote records voter's approval of a pending airline. The voter has already
// been authorized as a funded airline. The quorum is derived from the
// consortium size at the time of this vote.
func (r *Registry) Vote(addr, voter ids.ShortID) (*types.Airline, error) {
	if err := r.gate.Check(); err != nil {
		return nil, err
	}

	a, err := r.store.GetAirline(addr)
	if err != nil {
		return nil, err
	}
	if a.Status != types.AirlinePending {
		return nil, fmt.Errorf("%w: airline %s is %s", types.ErrInvalidState, addr, a.Status)
	}
	if a.HasVoted(voter) {
		return nil, fmt.Errorf("%w: %s already voted for %s", types.ErrDuplicateVote, voter, addr)
	}

	a.Votes = append(a.Votes, voter)

	consortium, err := r.store.ConsortiumSize()
	if err != nil {
		return nil, err
	}
	quorum := types.Quorum(consortium)
	if uint64(len(a.Votes)) >= quorum {
		a.Status = types.AirlineRegistered
		a.RegisteredAt = r.clock.Unix()
		if err := r.store.SetConsortiumSize(consortium + 1); err != nil {
			return nil, err
		}
	}
	if err := r.store.PutAirline(a); err != nil {
		return nil, err
	}

	r.log.Info("airline vote recorded",
		"address", addr,
		"voter", voter,
		"votes", len(a.Votes),
		"quorum", quorum,
		"status", a.Status,
	)
	return a, nil
}

// Fund deposits collateral for a registered airline. Deposits below the
// minimum are rejected in full. The first accepted deposit moves the airline
// to Funded; later deposits top up the balance.
func (r *Registry) Fund(addr ids.ShortID, amount *uint256.Int) (*types.Airline, error) {
	if err := r.gate.Check(); err != nil {
		return nil, err
	}

	a, err := r.store.GetAirline(addr)
	if err != nil {
		return nil, err
	}
	if a.Status == types.AirlinePending {
		return nil, fmt.Errorf("%w: airline %s is %s", types.ErrInvalidState, addr, a.Status)
	}
	if amount == nil || amount.Lt(r.cfg.MinFunding) {
		return nil, fmt.Errorf("%w: %s < %s",
			types.ErrInsufficientFunding,
			types.FormatUnits(amount),
			types.FormatUnits(r.cfg.MinFunding),
		)
	}

	funding, err := types.AddChecked(&a.Funding, amount)
	if err != nil {
		return nil, err
	}
	a.Funding = *funding
	if a.Status == types.AirlineRegistered {
		a.Status = types.AirlineFunded
		a.FundedAt = r.clock.Unix()
	}
	if err := r.store.PutAirline(a); err != nil {
		return nil, err
	}

	r.log.Info("airline funded",
		"address", addr,
		"amount", types.FormatUnits(amount),
		"funding", types.FormatUnits(&a.Funding),
	)
	return a, nil
}

// IsRegistered reports whether addr is a consortium member (Registered or Funded).
func (r *Registry) IsRegistered(addr ids.ShortID) bool {
	a, ok := r.lookup(addr)
	return ok && a.InConsortium()
}

// IsFunded reports whether addr has posted its funding.
func (r *Registry) IsFunded(addr ids.ShortID) bool {
	a, ok := r.lookup(addr)
	return ok && a.Status == types.AirlineFunded
}

// IsPending reports whether addr is waiting for votes.
func (r *Registry) IsPending(addr ids.ShortID) bool {
	a, ok := r.lookup(addr)
	return ok && a.Status == types.AirlinePending
}

// Get returns the airline record.
func (r *Registry) Get(addr ids.ShortID) (*types.Airline, error) {
	return r.store.GetAirline(addr)
}

// All returns every airline record.
func (r *Registry) All() ([]*types.Airline, error) {
	return r.store.Airlines()
}

// ConsortiumSize returns the number of Registered or Funded airlines.
func (r *Registry) ConsortiumSize() (uint64, error) {
	return r.store.ConsortiumSize()
}

// IsEmpty reports whether no airline has been nominated yet.
func (r *Registry) IsEmpty() (bool, error) {
	count, err := r.store.AirlineCount()
	return count == 0, err
}

func (r *Registry) lookup(addr ids.ShortID) (*types.Airline, bool) {
	a, err := r.store.GetAirline(addr)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			r.log.Error("failed to read airline", "address", addr, "error", err)
		}
		return nil, false
	}
	return a, true
}
