// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/surety/vms/suretyvm/types"
)

func TestObserve(t *testing.T) {
	require := require.New(t)

	m, err := New("surety", prometheus.NewRegistry())
	require.NoError(err)

	m.Observe("buy", nil)
	m.Observe("buy", nil)
	m.Observe("buy", fmt.Errorf("%w: 2", types.ErrAmountOutOfRange))
	m.Observe("vote", types.ErrDuplicateVote)

	require.InDelta(2, testutil.ToFloat64(m.operations.WithLabelValues("buy", resultOK)), 0)
	require.InDelta(1, testutil.ToFloat64(m.operations.WithLabelValues("buy", "AmountOutOfRange")), 0)
	require.InDelta(1, testutil.ToFloat64(m.operations.WithLabelValues("vote", "DuplicateVote")), 0)
}

func TestGauges(t *testing.T) {
	require := require.New(t)

	m, err := New("surety", prometheus.NewRegistry())
	require.NoError(err)

	m.SetAirlines(map[types.AirlineStatus]int{
		types.AirlinePending: 1,
		types.AirlineFunded:  4,
	})
	require.InDelta(1, testutil.ToFloat64(m.airlines.WithLabelValues("Pending")), 0)
	require.InDelta(0, testutil.ToFloat64(m.airlines.WithLabelValues("Registered")), 0)
	require.InDelta(4, testutil.ToFloat64(m.airlines.WithLabelValues("Funded")), 0)

	m.SetOperational(true)
	require.InDelta(1, testutil.ToFloat64(m.operational), 0)
	m.SetOperational(false)
	require.InDelta(0, testutil.ToFloat64(m.operational), 0)

	m.PolicyPurchased()
	m.PoliciesCredited(3)
	m.Withdrawn()
	m.SetOpenRequests(2)
	require.InDelta(1, testutil.ToFloat64(m.policies), 0)
	require.InDelta(3, testutil.ToFloat64(m.credited), 0)
	require.InDelta(1, testutil.ToFloat64(m.withdrawals), 0)
	require.InDelta(2, testutil.ToFloat64(m.openRequests), 0)
}

func TestDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New("surety", reg)
	require.NoError(t, err)

	_, err = New("surety", reg)
	require.Error(t, err)
}
