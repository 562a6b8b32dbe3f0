// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package health serves the aggregated result of named health checks.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/log"
)

const checkTimeout = 5 * time.Second

// Checker reports health details, or an error while unhealthy.
type Checker interface {
	HealthCheck(context.Context) (interface{}, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(context.Context) (interface{}, error)

func (f CheckerFunc) HealthCheck(ctx context.Context) (interface{}, error) {
	return f(ctx)
}

// Result is the outcome of one check.
type Result struct {
	Details   interface{} `json:"details,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Duration  string      `json:"duration"`
}

// Report is the body served by the health endpoint.
type Report struct {
	Healthy bool              `json:"healthy"`
	Checks  map[string]Result `json:"checks"`
}

// Health runs registered checks on demand.
type Health struct {
	log log.Logger

	// failingChecks is the number of checks that failed on the last run
	failingChecks prometheus.Gauge

	lock   sync.RWMutex
	checks map[string]Checker
}

func New(logger log.Logger, registerer prometheus.Registerer) (*Health, error) {
	failing := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "checks_failing",
		Help: "number of currently failing health checks",
	})
	if err := registerer.Register(failing); err != nil {
		return nil, err
	}
	return &Health{
		log:           logger,
		failingChecks: failing,
		checks:        make(map[string]Checker),
	}, nil
}

// Register adds a named check.
func (h *Health) Register(name string, checker Checker) error {
	h.lock.Lock()
	defer h.lock.Unlock()

	if _, ok := h.checks[name]; ok {
		return fmt.Errorf("health check %q already registered", name)
	}
	h.checks[name] = checker
	return nil
}

// Check runs every check and reports whether all passed.
func (h *Health) Check(ctx context.Context) Report {
	h.lock.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	checks := h.checks
	h.lock.RUnlock()
	slices.Sort(names)

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	report := Report{Healthy: true, Checks: make(map[string]Result, len(names))}
	failing := 0
	for _, name := range names {
		start := time.Now()
		details, err := checks[name].HealthCheck(ctx)
		result := Result{
			Details:   details,
			Timestamp: start,
			Duration:  time.Since(start).String(),
		}
		if err != nil {
			failing++
			report.Healthy = false
			result.Error = err.Error()
			h.log.Warn("health check failing", "check", name, "error", err)
		}
		report.Checks[name] = result
	}
	h.failingChecks.Set(float64(failing))
	return report
}

// ServeHTTP writes the report as JSON, with 503 while any check fails.
func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report := h.Check(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if !report.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(report); err != nil {
		h.log.Debug("failed to write health report", "error", err)
	}
}
