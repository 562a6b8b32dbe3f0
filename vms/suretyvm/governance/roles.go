// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package governance

import (
	"fmt"

	"github.com/luxfi/ids"

	"github.com/luxfi/surety/vms/suretyvm/types"
)

// Operation names a mutating facade operation.
type Operation string

const (
	OpSetOperatingStatus   Operation = "SetOperatingStatus"
	OpRegisterAirline      Operation = "RegisterAirline"
	OpVoteForAirline       Operation = "VoteForAirline"
	OpFundAirline          Operation = "FundAirline"
	OpBuyInsurance         Operation = "BuyInsurance"
	OpRequestFlightStatus  Operation = "RequestFlightStatus"
	OpCreditDelay          Operation = "CreditDelay"
	OpSubmitOracleResponse Operation = "SubmitOracleResponse"
	OpPruneRequests        Operation = "PruneRequests"
	OpWithdrawCredit       Operation = "WithdrawCredit"
)

// Role is the predicate a caller must satisfy to run an operation.
type Role uint8

const (
	RoleAny Role = iota
	RoleController
	RoleFundedAirline
	// RoleFundedOrBootstrap admits anyone while no airline exists.
	RoleFundedOrBootstrap
	RoleOracleOrController
)

func (r Role) String() string {
	switch r {
	case RoleAny:
		return "any"
	case RoleController:
		return "controller"
	case RoleFundedAirline:
		return "funded airline"
	case RoleFundedOrBootstrap:
		return "funded airline or bootstrap"
	case RoleOracleOrController:
		return "oracle or controller"
	default:
		return "unknown"
	}
}

// Roles is the authorization table.
var Roles = map[Operation]Role{
	OpSetOperatingStatus:   RoleController,
	OpRegisterAirline:      RoleFundedOrBootstrap,
	OpVoteForAirline:       RoleFundedAirline,
	OpFundAirline:          RoleAny,
	OpBuyInsurance:         RoleAny,
	OpRequestFlightStatus:  RoleAny,
	OpCreditDelay:          RoleOracleOrController,
	OpSubmitOracleResponse: RoleOracleOrController,
	OpPruneRequests:        RoleOracleOrController,
	OpWithdrawCredit:       RoleAny,
}

// authorize resolves the caller's role for op once.
func (f *Facade) authorize(op Operation, caller ids.ShortID) error {
	role, ok := Roles[op]
	if !ok {
		return fmt.Errorf("%w: no role for %s", types.ErrUnauthorized, op)
	}
	switch role {
	case RoleAny:
		return nil
	case RoleController:
		if caller == f.switcher.Controller() {
			return nil
		}
	case RoleFundedAirline:
		if f.registry.IsFunded(caller) {
			return nil
		}
		return fmt.Errorf("%w: %s", types.ErrRequesterNotFunded, caller)
	case RoleFundedOrBootstrap:
		empty, err := f.registry.IsEmpty()
		if err != nil {
			return err
		}
		if empty || f.registry.IsFunded(caller) {
			return nil
		}
		return fmt.Errorf("%w: %s", types.ErrRequesterNotFunded, caller)
	case RoleOracleOrController:
		if f.oracle.IsOracle(caller) || caller == f.switcher.Controller() {
			return nil
		}
	}
	return fmt.Errorf("%w: %s requires %s", types.ErrUnauthorized, op, role)
}
