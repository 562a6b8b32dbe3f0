// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package airline

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/surety/utils/timer/mockable"
	"github.com/luxfi/surety/vms/suretyvm/operational"
	"github.com/luxfi/surety/vms/suretyvm/state"
	"github.com/luxfi/surety/vms/suretyvm/types"
)

type testEnv struct {
	registry   *Registry
	state      *state.State
	switcher   *operational.Switch
	controller ids.ShortID
	clock      *mockable.Clock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s := state.New(memdb.New(), state.Config{AirlineCacheSize: 16})
	controller := ids.GenerateTestShortID()
	switcher := operational.New(s, controller, log.NoLog{})
	clock := &mockable.Clock{}
	clock.Set(time.Unix(1_700_000_000, 0))
	return &testEnv{
		registry: NewRegistry(s, switcher, Config{
			Threshold:  4,
			MinFunding: types.Units(10),
		}, clock, log.NoLog{}),
		state:      s,
		switcher:   switcher,
		controller: controller,
		clock:      clock,
	}
}

// fundedConsortium seeds n registered and funded airlines.
func (e *testEnv) fundedConsortium(t *testing.T, n int) []ids.ShortID {
	t.Helper()
	require := require.New(t)

	members := make([]ids.ShortID, 0, n)
	requester := ids.ShortEmpty
	for i := 0; i < n; i++ {
		addr := ids.GenerateTestShortID()
		a, err := e.registry.Nominate("member", addr, requester)
		require.NoError(err)
		require.Equal(types.AirlineRegistered, a.Status)

		_, err = e.registry.Fund(addr, types.Units(10))
		require.NoError(err)
		members = append(members, addr)
		requester = members[0]
	}
	return members
}

func TestFirstAirlineSeededWithoutRequester(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	first := ids.GenerateTestShortID()
	a, err := env.registry.Nominate("Udacity Air", first, ids.ShortEmpty)
	require.NoError(err)
	require.Equal(types.AirlineRegistered, a.Status)
	require.True(env.registry.IsRegistered(first))
	require.False(env.registry.IsFunded(first))

	size, err := env.registry.ConsortiumSize()
	require.NoError(err)
	require.Equal(uint64(1), size)
}

func TestNominateRecordsRequester(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	first := ids.GenerateTestShortID()
	a, err := env.registry.Nominate("first", first, ids.ShortEmpty)
	require.NoError(err)
	require.Equal(ids.ShortEmpty, a.NominatedBy)

	// Requester authorization belongs to governance.
	second := ids.GenerateTestShortID()
	a, err = env.registry.Nominate("second", second, first)
	require.NoError(err)
	require.Equal(first, a.NominatedBy)
	require.True(env.registry.IsRegistered(second))
}

func TestNominateRejectsDuplicates(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	members := env.fundedConsortium(t, 1)

	_, err := env.registry.Nominate("again", members[0], members[0])
	require.ErrorIs(err, types.ErrAlreadyExists)

	count, err := env.state.AirlineCount()
	require.NoError(err)
	require.Equal(uint64(1), count)
}

func TestNominateValidatesInput(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	_, err := env.registry.Nominate("", ids.GenerateTestShortID(), ids.ShortEmpty)
	require.ErrorIs(err, types.ErrInvalidArgument)

	_, err = env.registry.Nominate("nameless", ids.ShortEmpty, ids.ShortEmpty)
	require.ErrorIs(err, types.ErrInvalidArgument)
}

func TestDirectAdmissionBelowThreshold(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	members := env.fundedConsortium(t, 1)

	// Consortium sizes 1, 2 and 3 admit directly.
	for i := 0; i < 3; i++ {
		addr := ids.GenerateTestShortID()
		a, err := env.registry.Nominate("direct", addr, members[0])
		require.NoError(err)
		require.Equal(types.AirlineRegistered, a.Status)
		require.Empty(a.Votes)
	}

	size, err := env.registry.ConsortiumSize()
	require.NoError(err)
	require.Equal(uint64(4), size)

	// The fifth needs consensus.
	fifth := ids.GenerateTestShortID()
	a, err := env.registry.Nominate("fifth", fifth, members[0])
	require.NoError(err)
	require.Equal(types.AirlinePending, a.Status)
	require.True(env.registry.IsPending(fifth))
	require.False(env.registry.IsRegistered(fifth))
}

func TestConsensusRegistersOnCrossingVote(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	members := env.fundedConsortium(t, 4)

	fifth := ids.GenerateTestShortID()
	_, err := env.registry.Nominate("fifth", fifth, members[0])
	require.NoError(err)
	require.True(env.registry.IsPending(fifth))

	a, err := env.registry.Vote(fifth, members[1])
	require.NoError(err)
	require.Equal(types.AirlinePending, a.Status)
	require.Len(a.Votes, 1)

	a, err = env.registry.Vote(fifth, members[2])
	require.NoError(err)
	require.Equal(types.AirlineRegistered, a.Status)
	require.True(env.registry.IsRegistered(fifth))

	size, err := env.registry.ConsortiumSize()
	require.NoError(err)
	require.Equal(uint64(5), size)

	// Voting on a registered airline is a state error.
	_, err = env.registry.Vote(fifth, members[3])
	require.ErrorIs(err, types.ErrInvalidState)
}

func TestQuorumFollowsCurrentConsortium(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	members := env.fundedConsortium(t, 4)

	// Two candidates nominated while the consortium is 4.
	first := ids.GenerateTestShortID()
	second := ids.GenerateTestShortID()
	for _, addr := range []ids.ShortID{first, second} {
		_, err := env.registry.Nominate("candidate", addr, members[0])
		require.NoError(err)
	}

	// One vote for the second candidate under quorum 2.
	_, err := env.registry.Vote(second, members[0])
	require.NoError(err)

	// The first candidate joins, growing the consortium to 5 (quorum 3).
	for _, voter := range members[:2] {
		_, err := env.registry.Vote(first, voter)
		require.NoError(err)
	}
	require.True(env.registry.IsRegistered(first))

	// A second vote no longer suffices; the requirement is re-derived.
	a, err := env.registry.Vote(second, members[1])
	require.NoError(err)
	require.Equal(types.AirlinePending, a.Status)

	a, err = env.registry.Vote(second, members[2])
	require.NoError(err)
	require.Equal(types.AirlineRegistered, a.Status)
}

func TestDuplicateVote(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	members := env.fundedConsortium(t, 4)

	candidate := ids.GenerateTestShortID()
	_, err := env.registry.Nominate("candidate", candidate, members[0])
	require.NoError(err)

	_, err = env.registry.Vote(candidate, members[1])
	require.NoError(err)

	_, err = env.registry.Vote(candidate, members[1])
	require.ErrorIs(err, types.ErrDuplicateVote)

	a, err := env.registry.Get(candidate)
	require.NoError(err)
	require.Len(a.Votes, 1)
	require.Equal(types.AirlinePending, a.Status)
}

func TestVoteUnknownAirline(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	members := env.fundedConsortium(t, 4)

	_, err := env.registry.Vote(ids.GenerateTestShortID(), members[0])
	require.ErrorIs(err, types.ErrNotFound)
}

func TestFund(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	addr := ids.GenerateTestShortID()
	_, err := env.registry.Nominate("first", addr, ids.ShortEmpty)
	require.NoError(err)

	below := new(uint256.Int).Sub(types.Units(10), uint256.NewInt(1))
	_, err = env.registry.Fund(addr, below)
	require.ErrorIs(err, types.ErrInsufficientFunding)

	a, err := env.registry.Get(addr)
	require.NoError(err)
	require.Equal(types.AirlineRegistered, a.Status)
	require.True(a.Funding.IsZero())

	_, err = env.registry.Fund(addr, nil)
	require.ErrorIs(err, types.ErrInsufficientFunding)

	env.clock.Advance(time.Minute)
	a, err = env.registry.Fund(addr, types.Units(10))
	require.NoError(err)
	require.Equal(types.AirlineFunded, a.Status)
	fundedAt := a.FundedAt
	require.Equal(env.clock.Unix(), fundedAt)

	// Top-up keeps the state and the first funding time.
	env.clock.Advance(time.Minute)
	a, err = env.registry.Fund(addr, types.Units(12))
	require.NoError(err)
	require.Equal(types.AirlineFunded, a.Status)
	require.Equal(fundedAt, a.FundedAt)
	require.Equal(types.Units(22), &a.Funding)

	// Below-minimum top-ups are rejected too.
	_, err = env.registry.Fund(addr, types.Units(1))
	require.ErrorIs(err, types.ErrInsufficientFunding)
}

func TestFundRejectsPendingAndUnknown(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	members := env.fundedConsortium(t, 4)

	candidate := ids.GenerateTestShortID()
	_, err := env.registry.Nominate("candidate", candidate, members[0])
	require.NoError(err)

	_, err = env.registry.Fund(candidate, types.Units(10))
	require.ErrorIs(err, types.ErrInvalidState)

	_, err = env.registry.Fund(ids.GenerateTestShortID(), types.Units(10))
	require.ErrorIs(err, types.ErrNotFound)
}

func TestPausedRejectsMutations(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	members := env.fundedConsortium(t, 4)

	candidate := ids.GenerateTestShortID()
	_, err := env.registry.Nominate("candidate", candidate, members[0])
	require.NoError(err)

	require.NoError(env.switcher.SetOperationalStatus(false, env.controller))

	_, err = env.registry.Nominate("late", ids.GenerateTestShortID(), members[0])
	require.ErrorIs(err, types.ErrSystemPaused)

	_, err = env.registry.Vote(candidate, members[1])
	require.ErrorIs(err, types.ErrSystemPaused)

	_, err = env.registry.Fund(members[0], types.Units(10))
	require.ErrorIs(err, types.ErrSystemPaused)

	// Reads keep working.
	require.True(env.registry.IsRegistered(members[0]))
	require.True(env.registry.IsFunded(members[0]))
	require.True(env.registry.IsPending(candidate))
}

func TestQueriesOnUnknownAddress(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	unknown := ids.GenerateTestShortID()
	require.False(env.registry.IsRegistered(unknown))
	require.False(env.registry.IsFunded(unknown))
	require.False(env.registry.IsPending(unknown))
}
