// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/luxfi/ids"

	"github.com/luxfi/surety/vms/suretyvm/oracle"
	"github.com/luxfi/surety/vms/suretyvm/types"
)

var _ Visitor = (*Executor)(nil)

// Backend applies operations on behalf of a caller.
type Backend interface {
	SetOperatingStatus(ctx context.Context, caller ids.ShortID, operational bool) error
	RegisterAirline(ctx context.Context, caller ids.ShortID, name string, addr ids.ShortID) (*types.Airline, error)
	VoteForAirline(ctx context.Context, caller ids.ShortID, addr ids.ShortID) (*types.Airline, error)
	FundAirline(ctx context.Context, caller ids.ShortID, addr ids.ShortID, amount *uint256.Int) (*types.Airline, error)
	BuyInsurance(ctx context.Context, caller ids.ShortID, flight types.Flight, amount *uint256.Int) (*types.Policy, error)
	RequestFlightStatus(ctx context.Context, caller ids.ShortID, flight types.Flight) (*types.StatusRequest, error)
	SubmitOracleResponse(ctx context.Context, caller ids.ShortID, requestID ids.ID, code types.StatusCode) (*oracle.Resolution, error)
	CreditDelay(ctx context.Context, caller ids.ShortID, flight types.Flight) ([]*types.Policy, error)
	WithdrawCredit(ctx context.Context, caller ids.ShortID) (*uint256.Int, error)
	PruneRequests(ctx context.Context, caller ids.ShortID) ([]*types.StatusRequest, error)
}

// Executor applies one tx through the backend.
type Executor struct {
	Ctx     context.Context
	Backend Backend
	Tx      *Tx
}

// Execute verifies tx and applies it.
func Execute(ctx context.Context, backend Backend, tx *Tx) error {
	if err := tx.SyntacticVerify(); err != nil {
		return err
	}
	return tx.Unsigned.Visit(&Executor{
		Ctx:     ctx,
		Backend: backend,
		Tx:      tx,
	})
}

func (e *Executor) SetOperatingStatusTx(tx *SetOperatingStatusTx) error {
	return e.Backend.SetOperatingStatus(e.Ctx, e.Tx.Sender, tx.Operational)
}

func (e *Executor) RegisterAirlineTx(tx *RegisterAirlineTx) error {
	_, err := e.Backend.RegisterAirline(e.Ctx, e.Tx.Sender, tx.Name, tx.Address)
	return err
}

func (e *Executor) VoteForAirlineTx(tx *VoteForAirlineTx) error {
	_, err := e.Backend.VoteForAirline(e.Ctx, e.Tx.Sender, tx.Airline)
	return err
}

func (e *Executor) FundAirlineTx(tx *FundAirlineTx) error {
	_, err := e.Backend.FundAirline(e.Ctx, e.Tx.Sender, tx.Airline, &tx.Amount)
	return err
}

func (e *Executor) BuyInsuranceTx(tx *BuyInsuranceTx) error {
	_, err := e.Backend.BuyInsurance(e.Ctx, e.Tx.Sender, tx.Flight, &tx.Amount)
	return err
}

func (e *Executor) RequestFlightStatusTx(tx *RequestFlightStatusTx) error {
	_, err := e.Backend.RequestFlightStatus(e.Ctx, e.Tx.Sender, tx.Flight)
	return err
}

func (e *Executor) SubmitOracleResponseTx(tx *SubmitOracleResponseTx) error {
	_, err := e.Backend.SubmitOracleResponse(e.Ctx, e.Tx.Sender, tx.RequestID, tx.Status)
	return err
}

func (e *Executor) CreditDelayTx(tx *CreditDelayTx) error {
	_, err := e.Backend.CreditDelay(e.Ctx, e.Tx.Sender, tx.Flight)
	return err
}

func (e *Executor) WithdrawCreditTx(*WithdrawCreditTx) error {
	_, err := e.Backend.WithdrawCredit(e.Ctx, e.Tx.Sender)
	return err
}

func (e *Executor) PruneRequestsTx(*PruneRequestsTx) error {
	_, err := e.Backend.PruneRequests(e.Ctx, e.Tx.Sender)
	return err
}
