// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package genesis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"

	"github.com/luxfi/surety/vms/suretyvm/airline"
	"github.com/luxfi/surety/vms/suretyvm/governance"
	"github.com/luxfi/surety/vms/suretyvm/insurance"
	"github.com/luxfi/surety/vms/suretyvm/state"
	"github.com/luxfi/surety/vms/suretyvm/types"
)

func newFacade(t *testing.T) *governance.Facade {
	t.Helper()

	f, err := governance.New(state.New(memdb.New(), state.Config{}), governance.Config{
		Controller: ids.GenerateTestShortID(),
		Registry:   airline.Config{Threshold: 4, MinFunding: types.Units(10)},
		Ledger: insurance.Config{
			MaxInsurance:      types.Units(1),
			PayoutNumerator:   3,
			PayoutDenominator: 2,
		},
	}, governance.Deps{})
	require.NoError(t, err)
	return f
}

func TestApply(t *testing.T) {
	require := require.New(t)

	first := ids.GenerateTestShortID()
	second := ids.GenerateTestShortID()
	paused := false
	g := &Genesis{
		Timestamp:   1_700_000_000,
		Operational: &paused,
		Airlines: []Airline{
			{Name: "First Air", Address: first.String(), Funding: "10"},
			{Name: "Second Air", Address: second.String()},
		},
	}
	b, err := g.Bytes()
	require.NoError(err)
	parsed, err := Parse(b)
	require.NoError(err)

	f := newFacade(t)
	require.NoError(parsed.Apply(context.Background(), f))

	require.True(f.IsAirlineFunded(first))
	require.True(f.IsAirlineRegistered(second))
	require.False(f.IsAirlineFunded(second))
	require.False(f.IsOperational())

	a, err := f.GetAirline(first)
	require.NoError(err)
	require.Equal(uint64(1_700_000_000), a.RegisteredAt)
}

func TestApplyUnfundedSponsor(t *testing.T) {
	g := &Genesis{
		Airlines: []Airline{
			{Name: "First Air", Address: ids.GenerateTestShortID().String()},
			{Name: "Second Air", Address: ids.GenerateTestShortID().String()},
		},
	}
	err := g.Apply(context.Background(), newFacade(t))
	require.ErrorIs(t, err, types.ErrRequesterNotFunded)
}

func TestApplyBadAddress(t *testing.T) {
	g := &Genesis{Airlines: []Airline{{Name: "First Air", Address: "nope"}}}
	err := g.Apply(context.Background(), newFacade(t))
	require.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestParseEmpty(t *testing.T) {
	require := require.New(t)

	g, err := Parse(nil)
	require.NoError(err)
	require.Empty(g.Airlines)
	require.Nil(g.Operational)

	f := newFacade(t)
	require.NoError(g.Apply(context.Background(), f))
	require.True(f.IsOperational())

	_, err = Parse([]byte("{"))
	require.ErrorIs(err, types.ErrInvalidArgument)
}
