// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package operational

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/surety/vms/suretyvm/state"
	"github.com/luxfi/surety/vms/suretyvm/types"
)

type failingStore struct{}

func (failingStore) IsOperational() (bool, error) { return false, errors.New("disk gone") }
func (failingStore) SetOperational(bool) error    { return errors.New("disk gone") }

func TestSetOperationalStatus(t *testing.T) {
	require := require.New(t)

	controller := ids.GenerateTestShortID()
	s := New(state.New(memdb.New(), state.Config{}), controller, log.NoLog{})

	require.True(s.IsOperational())
	require.NoError(s.Check())

	err := s.SetOperationalStatus(false, ids.GenerateTestShortID())
	require.ErrorIs(err, types.ErrUnauthorized)
	require.True(s.IsOperational())

	require.NoError(s.SetOperationalStatus(false, controller))
	require.False(s.IsOperational())
	require.ErrorIs(s.Check(), types.ErrSystemPaused)

	// Setting the current value again is a no-op.
	require.NoError(s.SetOperationalStatus(false, controller))
	require.False(s.IsOperational())

	require.NoError(s.SetOperationalStatus(true, controller))
	require.True(s.IsOperational())
}

func TestStorageFailureReadsAsPaused(t *testing.T) {
	require := require.New(t)

	s := New(failingStore{}, ids.GenerateTestShortID(), log.NoLog{})
	require.False(s.IsOperational())
	require.ErrorIs(s.Check(), types.ErrSystemPaused)
}
