// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics merges the registries of the API server and the VM into
// one /metrics endpoint.
package metrics

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	dto "github.com/prometheus/client_model/go"
)

// MultiGatherer is a Gatherer that more gatherers can be registered into.
type MultiGatherer interface {
	prometheus.Gatherer

	// Register adds the outputs of gatherer to future calls to Gather under
	// name.
	Register(name string, gatherer prometheus.Gatherer) error

	// Deregister removes the gatherer registered under name and reports
	// whether one was found.
	Deregister(name string) bool
}

type multiGatherer struct {
	lock      sync.RWMutex
	names     []string
	gatherers []prometheus.Gatherer
}

// NewMultiGatherer returns a gatherer that prefixes every family with the
// name it was registered under.
func NewMultiGatherer() MultiGatherer {
	return NewPrefixGatherer()
}

// Gather returns the families of every gatherer sorted by name. On error the
// families gathered so far are returned with it.
func (g *multiGatherer) Gather() ([]*dto.MetricFamily, error) {
	g.lock.RLock()
	defer g.lock.RUnlock()

	var all []*dto.MetricFamily
	for _, gatherer := range g.gatherers {
		families, err := gatherer.Gather()
		all = append(all, families...)
		if err != nil {
			return all, err
		}
	}
	slices.SortFunc(all, func(a, b *dto.MetricFamily) int {
		return cmp.Compare(a.GetName(), b.GetName())
	})
	return all, nil
}

func (g *multiGatherer) Register(name string, gatherer prometheus.Gatherer) error {
	g.lock.Lock()
	defer g.lock.Unlock()

	if slices.Contains(g.names, name) {
		return fmt.Errorf("gatherer with name %q already registered", name)
	}
	g.register(name, gatherer)
	return nil
}

func (g *multiGatherer) register(name string, gatherer prometheus.Gatherer) {
	g.names = append(g.names, name)
	g.gatherers = append(g.gatherers, gatherer)
}

func (g *multiGatherer) Deregister(name string) bool {
	g.lock.Lock()
	defer g.lock.Unlock()

	i := slices.Index(g.names, name)
	if i == -1 {
		return false
	}
	g.names = slices.Delete(g.names, i, i+1)
	g.gatherers = slices.Delete(g.gatherers, i, i+1)
	return true
}

// MakeAndRegister creates a registry and registers it under name.
func MakeAndRegister(gatherer MultiGatherer, name string) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	if err := gatherer.Register(name, reg); err != nil {
		return nil, fmt.Errorf("couldn't register %q metrics: %w", name, err)
	}
	return reg, nil
}
