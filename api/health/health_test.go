// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/log"
)

var errUnhealthy = errors.New("broker disconnected")

func TestHealthReport(t *testing.T) {
	require := require.New(t)

	h, err := New(log.NoLog{}, prometheus.NewRegistry())
	require.NoError(err)

	healthy := true
	require.NoError(h.Register("vm", CheckerFunc(func(context.Context) (interface{}, error) {
		if !healthy {
			return map[string]bool{"nats": false}, errUnhealthy
		}
		return map[string]bool{"nats": true}, nil
	})))
	require.Error(h.Register("vm", CheckerFunc(nil)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ext/health", nil))
	require.Equal(http.StatusOK, rec.Code)
	var report Report
	require.NoError(json.NewDecoder(rec.Body).Decode(&report))
	require.True(report.Healthy)
	require.Empty(report.Checks["vm"].Error)
	require.Zero(testutil.ToFloat64(h.failingChecks))

	healthy = false
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ext/health", nil))
	require.Equal(http.StatusServiceUnavailable, rec.Code)
	require.NoError(json.NewDecoder(rec.Body).Decode(&report))
	require.False(report.Healthy)
	require.Equal(errUnhealthy.Error(), report.Checks["vm"].Error)
	require.InDelta(1.0, testutil.ToFloat64(h.failingChecks), 0)
}
