// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	dto "github.com/prometheus/client_model/go"
)

var errGather = errors.New("gather failed")

type testGatherer struct {
	families []*dto.MetricFamily
	err      error
}

func (g *testGatherer) Gather() ([]*dto.MetricFamily, error) {
	return g.families, g.err
}

func family(name string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Type: dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{{
			Counter: &dto.Counter{Value: proto.Float64(0)},
		}},
	}
}

func TestMultiGathererEmptyGather(t *testing.T) {
	mfs, err := NewMultiGatherer().Gather()
	require.NoError(t, err)
	require.Empty(t, mfs)
}

func TestMultiGathererError(t *testing.T) {
	require := require.New(t)
	g := NewMultiGatherer()
	require.NoError(g.Register("surety", &testGatherer{err: errGather}))

	_, err := g.Gather()
	require.ErrorIs(err, errGather)
}

func TestMultiGathererSorted(t *testing.T) {
	require := require.New(t)
	g := &multiGatherer{}
	require.NoError(g.Register("vm", &testGatherer{families: []*dto.MetricFamily{family("z"), family("a")}}))
	require.Error(g.Register("vm", &testGatherer{}))

	mfs, err := g.Gather()
	require.NoError(err)
	require.Len(mfs, 2)
	require.Equal("a", mfs[0].GetName())
	require.Equal("z", mfs[1].GetName())

	require.True(g.Deregister("vm"))
	require.False(g.Deregister("vm"))
	mfs, err = g.Gather()
	require.NoError(err)
	require.Empty(mfs)
}

func TestMakeAndRegister(t *testing.T) {
	require := require.New(t)
	g := NewMultiGatherer()

	reg, err := MakeAndRegister(g, "surety")
	require.NoError(err)
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "withdrawals", Help: "help"})
	require.NoError(reg.Register(counter))
	counter.Inc()

	mfs, err := g.Gather()
	require.NoError(err)
	require.Len(mfs, 1)
	require.Equal("surety_withdrawals", mfs[0].GetName())
	require.InDelta(1.0, mfs[0].GetMetric()[0].GetCounter().GetValue(), 0)

	_, err = MakeAndRegister(g, "surety")
	require.ErrorIs(err, errOverlappingNamespaces)
}
