// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package txs defines the transactions that carry surety operations in
// blocks.
package txs

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/luxfi/ids"

	"github.com/luxfi/surety/vms/suretyvm/types"
)

var (
	ErrNilTx       = errors.New("tx is nil")
	ErrEmptySender = errors.New("tx sender is empty")
)

// UnsignedTx is the operation carried by a Tx.
type UnsignedTx interface {
	Visit(Visitor) error
}

// Tx is an operation together with the caller it runs for. The host
// authenticates Sender before the tx reaches a block.
type Tx struct {
	Unsigned UnsignedTx  `serialize:"true" json:"unsignedTx"`
	Sender   ids.ShortID `serialize:"true" json:"sender"`

	id    ids.ID
	bytes []byte
}

// NewTx encodes unsigned for sender.
func NewTx(unsigned UnsignedTx, sender ids.ShortID) (*Tx, error) {
	tx := &Tx{
		Unsigned: unsigned,
		Sender:   sender,
	}
	b, err := Codec.Marshal(CodecVersion, tx)
	if err != nil {
		return nil, fmt.Errorf("couldn't marshal tx: %w", err)
	}
	tx.initialize(b)
	return tx, nil
}

// Parse decodes a tx from its wire bytes.
func Parse(b []byte) (*Tx, error) {
	tx := &Tx{}
	if _, err := Codec.Unmarshal(b, tx); err != nil {
		return nil, fmt.Errorf("%w: couldn't parse tx: %w", types.ErrInvalidArgument, err)
	}
	tx.initialize(b)
	return tx, nil
}

func (tx *Tx) initialize(b []byte) {
	tx.bytes = b
	tx.id = ids.ID(sha256.Sum256(b))
}

func (tx *Tx) ID() ids.ID {
	return tx.id
}

func (tx *Tx) Bytes() []byte {
	return tx.bytes
}

// SyntacticVerify checks the tx without reading state.
func (tx *Tx) SyntacticVerify() error {
	switch {
	case tx == nil || tx.Unsigned == nil:
		return ErrNilTx
	case tx.Sender == ids.ShortEmpty:
		return ErrEmptySender
	}
	return nil
}

type SetOperatingStatusTx struct {
	Operational bool `serialize:"true" json:"operational"`
}

type RegisterAirlineTx struct {
	Name    string      `serialize:"true" json:"name"`
	Address ids.ShortID `serialize:"true" json:"address"`
}

type VoteForAirlineTx struct {
	Airline ids.ShortID `serialize:"true" json:"airline"`
}

type FundAirlineTx struct {
	Airline ids.ShortID `serialize:"true" json:"airline"`
	Amount  uint256.Int `serialize:"true" json:"amount"`
}

type BuyInsuranceTx struct {
	Flight types.Flight `serialize:"true" json:"flight"`
	Amount uint256.Int  `serialize:"true" json:"amount"`
}

type RequestFlightStatusTx struct {
	Flight types.Flight `serialize:"true" json:"flight"`
}

type SubmitOracleResponseTx struct {
	RequestID ids.ID           `serialize:"true" json:"requestID"`
	Status    types.StatusCode `serialize:"true" json:"status"`
}

// CreditDelayTx is the qualifying-verdict callback issued directly by an
// oracle or the controller.
type CreditDelayTx struct {
	Flight types.Flight `serialize:"true" json:"flight"`
}

type WithdrawCreditTx struct{}

type PruneRequestsTx struct{}

func (tx *SetOperatingStatusTx) Visit(v Visitor) error   { return v.SetOperatingStatusTx(tx) }
func (tx *RegisterAirlineTx) Visit(v Visitor) error      { return v.RegisterAirlineTx(tx) }
func (tx *VoteForAirlineTx) Visit(v Visitor) error       { return v.VoteForAirlineTx(tx) }
func (tx *FundAirlineTx) Visit(v Visitor) error          { return v.FundAirlineTx(tx) }
func (tx *BuyInsuranceTx) Visit(v Visitor) error         { return v.BuyInsuranceTx(tx) }
func (tx *RequestFlightStatusTx) Visit(v Visitor) error  { return v.RequestFlightStatusTx(tx) }
func (tx *SubmitOracleResponseTx) Visit(v Visitor) error { return v.SubmitOracleResponseTx(tx) }
func (tx *CreditDelayTx) Visit(v Visitor) error          { return v.CreditDelayTx(tx) }
func (tx *WithdrawCreditTx) Visit(v Visitor) error       { return v.WithdrawCreditTx(tx) }
func (tx *PruneRequestsTx) Visit(v Visitor) error        { return v.PruneRequestsTx(tx) }
