// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package insurance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/surety/utils/timer/mockable"
	"github.com/luxfi/surety/vms/suretyvm/insurance/insurancemock"
	"github.com/luxfi/surety/vms/suretyvm/operational"
	"github.com/luxfi/surety/vms/suretyvm/state"
	"github.com/luxfi/surety/vms/suretyvm/types"
)

var errTransfer = errors.New("transfer failed")

type registeredSet map[ids.ShortID]bool

func (r registeredSet) IsRegistered(addr ids.ShortID) bool {
	return r[addr]
}

type testEnv struct {
	ledger     *Ledger
	state      *state.State
	switcher   *operational.Switch
	controller ids.ShortID
	airline    ids.ShortID
	flight     types.Flight
}

func newTestEnv(t *testing.T, transferer Transferer) *testEnv {
	t.Helper()

	s := state.New(memdb.New(), state.Config{PolicyCacheSize: 16})
	controller := ids.GenerateTestShortID()
	switcher := operational.New(s, controller, log.NoLog{})
	airline := ids.GenerateTestShortID()
	if transferer == nil {
		transferer = NewWalletTransferer(s)
	}
	clock := &mockable.Clock{}
	clock.Set(time.Unix(1_700_000_000, 0))

	return &testEnv{
		ledger: NewLedger(s, registeredSet{airline: true}, switcher, transferer, Config{
			MaxInsurance:      types.Units(1),
			PayoutNumerator:   3,
			PayoutDenominator: 2,
		}, clock, log.NoLog{}),
		state:      s,
		switcher:   switcher,
		controller: controller,
		airline:    airline,
		flight:     types.Flight{Airline: airline, Code: "ND1309", Departure: 1_700_003_600},
	}
}

func TestPurchaseAmountBounds(t *testing.T) {
	tests := []struct {
		name    string
		amount  *uint256.Int
		wantErr error
	}{
		{"nil", nil, types.ErrAmountOutOfRange},
		{"zero", uint256.NewInt(0), types.ErrAmountOutOfRange},
		{"one wei", uint256.NewInt(1), nil},
		{"half unit", types.FractionOfUnit(1, 2), nil},
		{"max", types.Units(1), nil},
		{"above max", new(uint256.Int).AddUint64(types.Units(1), 1), types.ErrAmountOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			env := newTestEnv(t, nil)
			passenger := ids.GenerateTestShortID()

			p, err := env.ledger.Purchase(env.flight, passenger, tt.amount)
			require.ErrorIs(err, tt.wantErr)

			policies, listErr := env.ledger.Policies(passenger)
			require.NoError(listErr)
			if tt.wantErr != nil {
				require.Empty(policies)
				return
			}
			require.Len(policies, 1)
			require.Equal(types.PolicyActive, p.Status)
			require.Equal(tt.amount, &p.Amount)
		})
	}
}

func TestPurchaseRequiresRegisteredAirline(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, nil)

	flight := env.flight
	flight.Airline = ids.GenerateTestShortID()
	_, err := env.ledger.Purchase(flight, ids.GenerateTestShortID(), types.FractionOfUnit(1, 2))
	require.ErrorIs(err, types.ErrNotFound)
}

func TestPurchaseRejectsDuplicate(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, nil)
	passenger := ids.GenerateTestShortID()

	_, err := env.ledger.Purchase(env.flight, passenger, types.FractionOfUnit(1, 2))
	require.NoError(err)

	_, err = env.ledger.Purchase(env.flight, passenger, types.FractionOfUnit(1, 4))
	require.ErrorIs(err, types.ErrAlreadyExists)

	totals, err := env.ledger.Totals()
	require.NoError(err)
	require.Equal(types.FractionOfUnit(1, 2), &totals.Premiums)
}

func TestCreditDelayScenario(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, nil)
	passenger := ids.GenerateTestShortID()

	p, err := env.ledger.Purchase(env.flight, passenger, types.FractionOfUnit(1, 2))
	require.NoError(err)

	credited, err := env.ledger.CreditDelay(env.flight)
	require.NoError(err)
	require.Len(credited, 1)

	credit, err := env.ledger.GetCredit(passenger)
	require.NoError(err)
	require.Equal(types.FractionOfUnit(3, 4), credit)

	policy, err := env.ledger.GetPolicy(p.ID)
	require.NoError(err)
	require.Equal(types.PolicyCreditIssued, policy.Status)
	require.Equal(types.FractionOfUnit(3, 4), &policy.Payout)
	require.Equal(types.FractionOfUnit(1, 2), &policy.Amount)

	amount, err := env.ledger.Withdraw(context.Background(), passenger)
	require.NoError(err)
	require.Equal(types.FractionOfUnit(3, 4), amount)

	credit, err = env.ledger.GetCredit(passenger)
	require.NoError(err)
	require.True(credit.IsZero())

	wallet, err := env.state.WalletBalance(passenger)
	require.NoError(err)
	require.Equal(types.FractionOfUnit(3, 4), wallet)

	policy, err = env.ledger.GetPolicy(p.ID)
	require.NoError(err)
	require.Equal(types.PolicyWithdrawn, policy.Status)
}

func TestCreditDelayIsIdempotent(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, nil)
	alice := ids.GenerateTestShortID()
	bob := ids.GenerateTestShortID()

	_, err := env.ledger.Purchase(env.flight, alice, types.Units(1))
	require.NoError(err)
	_, err = env.ledger.Purchase(env.flight, bob, types.FractionOfUnit(1, 5))
	require.NoError(err)

	credited, err := env.ledger.CreditDelay(env.flight)
	require.NoError(err)
	require.Len(credited, 2)

	credited, err = env.ledger.CreditDelay(env.flight)
	require.NoError(err)
	require.Empty(credited)

	aliceCredit, err := env.ledger.GetCredit(alice)
	require.NoError(err)
	require.Equal(types.FractionOfUnit(3, 2), aliceCredit)

	bobCredit, err := env.ledger.GetCredit(bob)
	require.NoError(err)
	require.Equal(types.FractionOfUnit(3, 10), bobCredit)

	totals, err := env.ledger.Totals()
	require.NoError(err)
	require.Equal(types.FractionOfUnit(18, 10), &totals.Credited)
}

func TestCreditDelayEmptyBatch(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, nil)

	credited, err := env.ledger.CreditDelay(env.flight)
	require.NoError(err)
	require.Empty(credited)
}

func TestCreditDelayOnlyTouchesMatchingFlight(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, nil)
	passenger := ids.GenerateTestShortID()

	later := env.flight
	later.Departure += 86400
	_, err := env.ledger.Purchase(later, passenger, types.Units(1))
	require.NoError(err)

	credited, err := env.ledger.CreditDelay(env.flight)
	require.NoError(err)
	require.Empty(credited)

	credit, err := env.ledger.GetCredit(passenger)
	require.NoError(err)
	require.True(credit.IsZero())
}

func TestWithdrawWithoutCredit(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, nil)

	_, err := env.ledger.Withdraw(context.Background(), ids.GenerateTestShortID())
	require.ErrorIs(err, types.ErrNoCreditAvailable)
}

func TestWithdrawNeverExceedsCredited(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, nil)
	passenger := ids.GenerateTestShortID()

	_, err := env.ledger.Purchase(env.flight, passenger, types.FractionOfUnit(1, 2))
	require.NoError(err)
	_, err = env.ledger.CreditDelay(env.flight)
	require.NoError(err)

	_, err = env.ledger.Withdraw(context.Background(), passenger)
	require.NoError(err)
	_, err = env.ledger.Withdraw(context.Background(), passenger)
	require.ErrorIs(err, types.ErrNoCreditAvailable)

	acc, err := env.ledger.Account(passenger)
	require.NoError(err)
	require.True(acc.Balance.IsZero())
	require.Equal(&acc.Credited, &acc.Withdrawn)
}

func TestWithdrawZeroesBeforeTransfer(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)

	transferer := insurancemock.NewTransferer(ctrl)
	env := newTestEnv(t, transferer)
	passenger := ids.GenerateTestShortID()

	_, err := env.ledger.Purchase(env.flight, passenger, types.Units(1))
	require.NoError(err)
	_, err = env.ledger.CreditDelay(env.flight)
	require.NoError(err)

	transferer.EXPECT().
		Transfer(gomock.Any(), passenger, types.FractionOfUnit(3, 2)).
		DoAndReturn(func(ctx context.Context, to ids.ShortID, _ *uint256.Int) error {
			// A re-entrant withdrawal observes the zeroed balance.
			credit, err := env.ledger.GetCredit(to)
			require.NoError(err)
			require.True(credit.IsZero())

			_, err = env.ledger.Withdraw(ctx, to)
			require.ErrorIs(err, types.ErrNoCreditAvailable)
			return nil
		}).
		Times(1)

	amount, err := env.ledger.Withdraw(context.Background(), passenger)
	require.NoError(err)
	require.Equal(types.FractionOfUnit(3, 2), amount)
}

func TestWithdrawTransferFailure(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)

	transferer := insurancemock.NewTransferer(ctrl)
	env := newTestEnv(t, transferer)
	passenger := ids.GenerateTestShortID()

	_, err := env.ledger.Purchase(env.flight, passenger, types.Units(1))
	require.NoError(err)
	_, err = env.ledger.CreditDelay(env.flight)
	require.NoError(err)
	require.NoError(env.state.Commit())

	transferer.EXPECT().Transfer(gomock.Any(), passenger, gomock.Any()).Return(errTransfer)

	_, err = env.ledger.Withdraw(context.Background(), passenger)
	require.ErrorIs(err, errTransfer)

	// The caller aborts the failed operation, restoring the balance.
	env.state.Abort()
	credit, err := env.ledger.GetCredit(passenger)
	require.NoError(err)
	require.Equal(types.FractionOfUnit(3, 2), credit)
}

func TestPausedLedger(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, nil)
	passenger := ids.GenerateTestShortID()

	_, err := env.ledger.Purchase(env.flight, passenger, types.Units(1))
	require.NoError(err)
	_, err = env.ledger.CreditDelay(env.flight)
	require.NoError(err)

	require.NoError(env.switcher.SetOperationalStatus(false, env.controller))

	_, err = env.ledger.Purchase(env.flight, ids.GenerateTestShortID(), types.Units(1))
	require.ErrorIs(err, types.ErrSystemPaused)

	_, err = env.ledger.CreditDelay(env.flight)
	require.ErrorIs(err, types.ErrSystemPaused)

	_, err = env.ledger.Withdraw(context.Background(), passenger)
	require.ErrorIs(err, types.ErrSystemPaused)

	credit, err := env.ledger.GetCredit(passenger)
	require.NoError(err)
	require.Equal(types.FractionOfUnit(3, 2), credit)
}
