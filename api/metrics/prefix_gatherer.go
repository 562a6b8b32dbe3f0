// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/protobuf/proto"

	dto "github.com/prometheus/client_model/go"
)

var (
	_ MultiGatherer = (*prefixGatherer)(nil)

	errOverlappingNamespaces = errors.New("prefix could create overlapping namespaces")
)

// NewPrefixGatherer returns a MultiGatherer that renames every family to
// prefix_name.
func NewPrefixGatherer() MultiGatherer {
	return &prefixGatherer{}
}

type prefixGatherer struct {
	multiGatherer
}

func (g *prefixGatherer) Register(prefix string, gatherer prometheus.Gatherer) error {
	g.lock.Lock()
	defer g.lock.Unlock()

	for _, existing := range g.names {
		if eitherIsPrefix(prefix, existing) {
			return fmt.Errorf("%w: %q conflicts with %q",
				errOverlappingNamespaces,
				prefix,
				existing,
			)
		}
	}
	g.register(prefix, &prefixedGatherer{
		prefix:   prefix,
		gatherer: gatherer,
	})
	return nil
}

type prefixedGatherer struct {
	prefix   string
	gatherer prometheus.Gatherer
}

func (g *prefixedGatherer) Gather() ([]*dto.MetricFamily, error) {
	families, err := g.gatherer.Gather()
	for _, family := range families {
		family.Name = proto.String(prometheus.BuildFQName("", g.prefix, family.GetName()))
	}
	return families, err
}

// eitherIsPrefix reports whether a and b overlap at a namespace boundary, so
// "hello" overlaps "hello_world" but not "helloworld".
func eitherIsPrefix(a, b string) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	return a == b[:len(a)] &&
		(len(a) == 0 || len(a) == len(b) || b[len(a)] == '_')
}
