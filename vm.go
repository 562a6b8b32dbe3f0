// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package surety defines the lifecycle contract of a surety chain.
package surety

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/database"
)

// VM is a surety chain hosted by a node or the standalone CLI.
type VM interface {
	// Initialize opens state over cfg.DB and applies genesis on first run.
	Initialize(context.Context, *Config) error

	// SetState moves the VM between lifecycle states.
	SetState(context.Context, State) error

	// CreateHandlers returns the HTTP handlers keyed by path suffix.
	CreateHandlers(context.Context) (map[string]http.Handler, error)

	// HealthCheck reports the VM's health details.
	HealthCheck(context.Context) (interface{}, error)

	Shutdown(context.Context) error

	Version(context.Context) (string, error)
}

// Config is what the host hands to Initialize.
type Config struct {
	DB           database.Database
	GenesisBytes []byte
	ConfigBytes  []byte

	// Registerer receives the VM's metrics. Nil disables metrics.
	Registerer prometheus.Registerer
}
