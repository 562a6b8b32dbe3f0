// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

// Visitor runs custom logic against each transaction type.
type Visitor interface {
	SetOperatingStatusTx(*SetOperatingStatusTx) error
	RegisterAirlineTx(*RegisterAirlineTx) error
	VoteForAirlineTx(*VoteForAirlineTx) error
	FundAirlineTx(*FundAirlineTx) error
	BuyInsuranceTx(*BuyInsuranceTx) error
	RequestFlightStatusTx(*RequestFlightStatusTx) error
	SubmitOracleResponseTx(*SubmitOracleResponseTx) error
	CreditDelayTx(*CreditDelayTx) error
	WithdrawCreditTx(*WithdrawCreditTx) error
	PruneRequestsTx(*PruneRequestsTx) error
}
