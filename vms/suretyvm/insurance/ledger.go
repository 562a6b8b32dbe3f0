// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package insurance owns passenger policies, payout credits and withdrawals.
package insurance

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/surety/utils/timer/mockable"
	"github.com/luxfi/surety/vms/suretyvm/types"
)

// Store persists policies, credit accounts and ledger totals.
type Store interface {
	GetPolicy(ids.ID) (*types.Policy, error)
	HasPolicy(ids.ID) (bool, error)
	PutPolicy(*types.Policy) error
	PoliciesByFlight(ids.ID) ([]*types.Policy, error)
	PoliciesByPassenger(ids.ShortID) ([]*types.Policy, error)
	GetCreditAccount(ids.ShortID) (*types.CreditAccount, error)
	PutCreditAccount(*types.CreditAccount) error
	GetTotals() (*types.Totals, error)
	PutTotals(*types.Totals) error
}

// Airlines answers whether an airline may sell insurance.
type Airlines interface {
	IsRegistered(ids.ShortID) bool
}

// Gate rejects mutations while the system is paused.
type Gate interface {
	Check() error
}

//go:generate go run go.uber.org/mock/mockgen -package=${GOPACKAGE}mock -destination=${GOPACKAGE}mock/transferer.go -mock_names=Transferer=Transferer . Transferer

// Transferer moves withdrawn value out of the ledger to the passenger.
type Transferer interface {
	Transfer(ctx context.Context, to ids.ShortID, amount *uint256.Int) error
}

// Config holds the policy limits and payout ratio.
type Config struct {
	MaxInsurance      *uint256.Int
	PayoutNumerator   uint64
	PayoutDenominator uint64
}

// Ledger implements purchase, credit and withdrawal of flight insurance.
type Ledger struct {
	store      Store
	airlines   Airlines
	gate       Gate
	transferer Transferer
	cfg        Config
	clock      *mockable.Clock
	log        log.Logger
}

func NewLedger(
	store Store,
	airlines Airlines,
	gate Gate,
	transferer Transferer,
	cfg Config,
	clock *mockable.Clock,
	logger log.Logger,
) *Ledger {
	return &Ledger{
		store:      store,
		airlines:   airlines,
		gate:       gate,
		transferer: transferer,
		cfg:        cfg,
		clock:      clock,
		log:        logger,
	}
}

// Purchase insures passenger on flight for amount. The premium is kept by the
// ledger as collected funds.
func (l *Ledger) Purchase(flight types.Flight, passenger ids.ShortID, amount *uint256.Int) (*types.Policy, error) {
	if err := l.gate.Check(); err != nil {
		return nil, err
	}
	if flight.Code == "" {
		return nil, fmt.Errorf("%w: flight code required", types.ErrInvalidArgument)
	}
	if !l.airlines.IsRegistered(flight.Airline) {
		return nil, fmt.Errorf("%w: airline %s is not registered", types.ErrNotFound, flight.Airline)
	}
	if amount == nil || amount.IsZero() || amount.Gt(l.cfg.MaxInsurance) {
		return nil, fmt.Errorf("%w: %s not in (0, %s]",
			types.ErrAmountOutOfRange,
			types.FormatUnits(amount),
			types.FormatUnits(l.cfg.MaxInsurance),
		)
	}

	policyID := types.PolicyID(passenger, flight.Key())
	exists, err := l.store.HasPolicy(policyID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: policy %s", types.ErrAlreadyExists, policyID)
	}

	totals, err := l.store.GetTotals()
	if err != nil {
		return nil, err
	}
	premiums, err := types.AddChecked(&totals.Premiums, amount)
	if err != nil {
		return nil, err
	}
	totals.Premiums = *premiums

	p := &types.Policy{
		ID:          policyID,
		Passenger:   passenger,
		Flight:      flight,
		Amount:      *amount,
		Status:      types.PolicyActive,
		PurchasedAt: l.clock.Unix(),
	}
	if err := l.store.PutPolicy(p); err != nil {
		return nil, err
	}
	if err := l.store.PutTotals(totals); err != nil {
		return nil, err
	}

	l.log.Info("policy purchased",
		"policyID", policyID,
		"passenger", passenger,
		"airline", flight.Airline,
		"flight", flight.Code,
		"amount", types.FormatUnits(amount),
	)
	return p, nil
}

// CreditDelay credits every active policy on flight with its payout. The
// whole batch is computed before anything is written. Policies already
// credited are skipped, so a repeated call changes nothing.
func (l *Ledger) CreditDelay(flight types.Flight) ([]*types.Policy, error) {
	if err := l.gate.Check(); err != nil {
		return nil, err
	}

	policies, err := l.store.PoliciesByFlight(flight.Key())
	if err != nil {
		return nil, err
	}
	totals, err := l.store.GetTotals()
	if err != nil {
		return nil, err
	}

	var (
		now      = l.clock.Unix()
		credited []*types.Policy
		accounts = make(map[ids.ShortID]*types.CreditAccount)
		order    []ids.ShortID
	)
	for _, p := range policies {
		if p.Status != types.PolicyActive {
			continue
		}
		payout, err := types.Payout(&p.Amount, l.cfg.PayoutNumerator, l.cfg.PayoutDenominator)
		if err != nil {
			return nil, err
		}

		acc, ok := accounts[p.Passenger]
		if !ok {
			acc, err = l.store.GetCreditAccount(p.Passenger)
			if err != nil {
				return nil, err
			}
			accounts[p.Passenger] = acc
			order = append(order, p.Passenger)
		}
		if err := addTo(&acc.Balance, payout); err != nil {
			return nil, err
		}
		if err := addTo(&acc.Credited, payout); err != nil {
			return nil, err
		}
		if err := addTo(&totals.Credited, payout); err != nil {
			return nil, err
		}

		p.Status = types.PolicyCreditIssued
		p.Payout = *payout
		p.CreditedAt = now
		credited = append(credited, p)
	}
	if len(credited) == 0 {
		return nil, nil
	}
	if err := l.checkSolvency(totals); err != nil {
		return nil, err
	}

	for _, p := range credited {
		if err := l.store.PutPolicy(p); err != nil {
			return nil, err
		}
	}
	for _, passenger := range order {
		if err := l.store.PutCreditAccount(accounts[passenger]); err != nil {
			return nil, err
		}
	}
	if err := l.store.PutTotals(totals); err != nil {
		return nil, err
	}

	l.log.Info("delay credited",
		"airline", flight.Airline,
		"flight", flight.Code,
		"departure", flight.Departure,
		"policies", len(credited),
	)
	return credited, nil
}

// Withdraw pays out the passenger's full balance. The balance is zeroed and
// persisted before the transfer is attempted.
func (l *Ledger) Withdraw(ctx context.Context, passenger ids.ShortID) (*uint256.Int, error) {
	if err := l.gate.Check(); err != nil {
		return nil, err
	}

	acc, err := l.store.GetCreditAccount(passenger)
	if err != nil {
		return nil, err
	}
	if acc.Balance.IsZero() {
		return nil, fmt.Errorf("%w: passenger %s", types.ErrNoCreditAvailable, passenger)
	}
	totals, err := l.store.GetTotals()
	if err != nil {
		return nil, err
	}
	policies, err := l.store.PoliciesByPassenger(passenger)
	if err != nil {
		return nil, err
	}

	amount := acc.Balance.Clone()
	acc.Balance.Clear()
	if err := addTo(&acc.Withdrawn, amount); err != nil {
		return nil, err
	}
	if err := addTo(&totals.Withdrawn, amount); err != nil {
		return nil, err
	}
	if err := l.store.PutCreditAccount(acc); err != nil {
		return nil, err
	}
	if err := l.store.PutTotals(totals); err != nil {
		return nil, err
	}
	for _, p := range policies {
		if p.Status != types.PolicyCreditIssued {
			continue
		}
		p.Status = types.PolicyWithdrawn
		if err := l.store.PutPolicy(p); err != nil {
			return nil, err
		}
	}

	if err := l.transferer.Transfer(ctx, passenger, amount); err != nil {
		return nil, fmt.Errorf("transfer to %s: %w", passenger, err)
	}

	l.log.Info("credit withdrawn",
		"passenger", passenger,
		"amount", types.FormatUnits(amount),
	)
	return amount, nil
}

// GetCredit returns the passenger's withdrawable balance.
func (l *Ledger) GetCredit(passenger ids.ShortID) (*uint256.Int, error) {
	acc, err := l.store.GetCreditAccount(passenger)
	if err != nil {
		return nil, err
	}
	return acc.Balance.Clone(), nil
}

// Account returns the passenger's balance and lifetime totals.
func (l *Ledger) Account(passenger ids.ShortID) (*types.CreditAccount, error) {
	return l.store.GetCreditAccount(passenger)
}

// GetPolicy returns a policy by identity.
func (l *Ledger) GetPolicy(id ids.ID) (*types.Policy, error) {
	return l.store.GetPolicy(id)
}

// Policies returns every policy held by the passenger.
func (l *Ledger) Policies(passenger ids.ShortID) ([]*types.Policy, error) {
	return l.store.PoliciesByPassenger(passenger)
}

// Totals returns premiums collected, credited and withdrawn across the ledger.
func (l *Ledger) Totals() (*types.Totals, error) {
	return l.store.GetTotals()
}

// checkSolvency enforces credited <= premiums * payout ratio.
func (l *Ledger) checkSolvency(totals *types.Totals) error {
	limit, err := types.Payout(&totals.Premiums, l.cfg.PayoutNumerator, l.cfg.PayoutDenominator)
	if err != nil {
		return err
	}
	if totals.Credited.Gt(limit) {
		return fmt.Errorf("%w: credited %s exceeds %s",
			types.ErrInsolventLedger,
			types.FormatUnits(&totals.Credited),
			types.FormatUnits(limit),
		)
	}
	return nil
}

func addTo(dst, amount *uint256.Int) error {
	sum, err := types.AddChecked(dst, amount)
	if err != nil {
		return err
	}
	dst.Set(sum)
	return nil
}
