// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	require := require.New(t)

	require.Equal(KindUnknown, KindOf(nil))
	require.Equal(KindUnknown, KindOf(errors.New("boom")))
	require.Equal(KindDuplicateVote, KindOf(fmt.Errorf("%w: voter x", ErrDuplicateVote)))
	require.Equal(KindSystemPaused, KindOf(fmt.Errorf("purchase: %w", ErrSystemPaused)))
	require.Equal("NoCreditAvailable", KindOf(ErrNoCreditAvailable).String())
}

func TestFlightKeyDistinguishesFields(t *testing.T) {
	require := require.New(t)

	base := Flight{Code: "ND1309", Departure: 1700000000}
	other := base
	other.Departure++
	require.NotEqual(base.Key(), other.Key())

	// The separator keeps "AB"+"1" and "A"+"B1" apart.
	a := Flight{Code: "AB"}
	b := Flight{Code: "A"}
	require.Equal(a.Key(), a.Key())
	require.NotEqual(a.Key(), b.Key())
}

func TestStatusCode(t *testing.T) {
	require := require.New(t)

	require.True(StatusLateAirline.Qualifying())
	require.False(StatusLateWeather.Qualifying())
	require.True(StatusOnTime.Valid())
	require.False(StatusCode(15).Valid())
}
