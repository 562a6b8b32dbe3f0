// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/surety/vms/suretyvm/types"
)

const (
	opLabel     = "op"
	resultLabel = "result"
	statusLabel = "status"

	resultOK = "ok"
)

// Metrics tracks operation outcomes and ledger gauges.
type Metrics struct {
	operations   *prometheus.CounterVec
	airlines     *prometheus.GaugeVec
	policies     prometheus.Counter
	credited     prometheus.Counter
	withdrawals  prometheus.Counter
	openRequests prometheus.Gauge
	operational  prometheus.Gauge
}

func New(namespace string, registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations",
			Help:      "number of operations by outcome",
		}, []string{opLabel, resultLabel}),
		airlines: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "airlines",
			Help:      "number of airlines by status",
		}, []string{statusLabel}),
		policies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policies_purchased",
			Help:      "number of policies purchased",
		}),
		credited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policies_credited",
			Help:      "number of policies credited after a qualifying delay",
		}),
		withdrawals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "withdrawals",
			Help:      "number of completed withdrawals",
		}),
		openRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_status_requests",
			Help:      "number of flight status requests awaiting an oracle",
		}),
		operational: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "operational",
			Help:      "1 if mutations are accepted",
		}),
	}

	err := errors.Join(
		registerer.Register(m.operations),
		registerer.Register(m.airlines),
		registerer.Register(m.policies),
		registerer.Register(m.credited),
		registerer.Register(m.withdrawals),
		registerer.Register(m.openRequests),
		registerer.Register(m.operational),
	)
	return m, err
}

// Observe counts one operation, labelled by the kind of err.
func (m *Metrics) Observe(op string, err error) {
	result := resultOK
	if err != nil {
		result = types.KindOf(err).String()
	}
	m.operations.WithLabelValues(op, result).Inc()
}

func (m *Metrics) SetAirlines(counts map[types.AirlineStatus]int) {
	for _, status := range []types.AirlineStatus{types.AirlinePending, types.AirlineRegistered, types.AirlineFunded} {
		m.airlines.WithLabelValues(status.String()).Set(float64(counts[status]))
	}
}

func (m *Metrics) PolicyPurchased() {
	m.policies.Inc()
}

func (m *Metrics) PoliciesCredited(n int) {
	m.credited.Add(float64(n))
}

func (m *Metrics) Withdrawn() {
	m.withdrawals.Inc()
}

func (m *Metrics) SetOpenRequests(n int) {
	m.openRequests.Set(float64(n))
}

func (m *Metrics) SetOperational(operational bool) {
	if operational {
		m.operational.Set(1)
		return
	}
	m.operational.Set(0)
}
