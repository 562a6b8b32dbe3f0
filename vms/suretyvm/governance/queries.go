// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package governance

import (
	"github.com/holiman/uint256"

	"github.com/luxfi/ids"

	"github.com/luxfi/surety/vms/suretyvm/types"
)

// IsOperational reports whether mutations are currently accepted.
func (f *Facade) IsOperational() bool {
	f.lock.RLock()
	defer f.lock.RUnlock()

	return f.switcher.IsOperational()
}

// Controller returns the address allowed to pause and resume the system.
func (f *Facade) Controller() ids.ShortID {
	return f.switcher.Controller()
}

// IsAirlineRegistered reports whether addr is a Registered or Funded airline.
func (f *Facade) IsAirlineRegistered(addr ids.ShortID) bool {
	f.lock.RLock()
	defer f.lock.RUnlock()

	return f.registry.IsRegistered(addr)
}

// IsAirlineFunded reports whether addr has paid the minimum funding.
func (f *Facade) IsAirlineFunded(addr ids.ShortID) bool {
	f.lock.RLock()
	defer f.lock.RUnlock()

	return f.registry.IsFunded(addr)
}

// IsAirlinePending reports whether addr is still waiting for votes.
func (f *Facade) IsAirlinePending(addr ids.ShortID) bool {
	f.lock.RLock()
	defer f.lock.RUnlock()

	return f.registry.IsPending(addr)
}

// GetAirline returns the airline at addr, or ErrNotFound.
func (f *Facade) GetAirline(addr ids.ShortID) (*types.Airline, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()

	return f.registry.Get(addr)
}

// Airlines returns every nominated airline, whatever its status.
func (f *Facade) Airlines() ([]*types.Airline, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()

	return f.registry.All()
}

// ConsortiumSize counts Registered and Funded airlines.
func (f *Facade) ConsortiumSize() (uint64, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()

	return f.registry.ConsortiumSize()
}

// GetPolicy returns the policy with the given id, or ErrNotFound.
func (f *Facade) GetPolicy(id ids.ID) (*types.Policy, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()

	return f.ledger.GetPolicy(id)
}

// GetPolicies returns every policy bought by passenger.
func (f *Facade) GetPolicies(passenger ids.ShortID) ([]*types.Policy, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()

	return f.ledger.Policies(passenger)
}

// GetCredit returns the payout passenger can withdraw. It is zero for
// unknown passengers.
func (f *Facade) GetCredit(passenger ids.ShortID) (*uint256.Int, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()

	return f.ledger.GetCredit(passenger)
}

// GetAccount returns passenger's credit balance and lifetime totals.
func (f *Facade) GetAccount(passenger ids.ShortID) (*types.CreditAccount, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()

	return f.ledger.Account(passenger)
}

// Totals returns premiums collected, credited and withdrawn.
func (f *Facade) Totals() (*types.Totals, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()

	return f.ledger.Totals()
}

// GetRequest returns the oracle request with the given id, or ErrNotFound.
func (f *Facade) GetRequest(id ids.ID) (*types.StatusRequest, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()

	return f.oracle.GetRequest(id)
}

// OpenRequests returns the requests still waiting for an oracle verdict,
// oldest first.
func (f *Facade) OpenRequests() ([]*types.StatusRequest, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()

	return f.oracle.OpenRequests()
}

// IsOracle reports whether addr may submit oracle responses.
func (f *Facade) IsOracle(addr ids.ShortID) bool {
	return f.oracle.IsOracle(addr)
}

// WalletBalance returns the value paid out to addr.
func (f *Facade) WalletBalance(addr ids.ShortID) (*uint256.Int, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()

	return f.state.WalletBalance(addr)
}
