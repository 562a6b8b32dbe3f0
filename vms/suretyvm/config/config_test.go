// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"

	"github.com/luxfi/surety/vms/suretyvm/types"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.Controller = ids.GenerateTestShortID().String()
	cfg.Oracles = []string{ids.GenerateTestShortID().String()}
	return cfg
}

func TestDefaultConfigNeedsController(t *testing.T) {
	cfg := DefaultConfig()
	require.ErrorIs(t, cfg.Validate(), ErrInvalidController)

	cfg = validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"zero threshold", func(c *Config) { c.ConsensusThreshold = 0 }, ErrInvalidThreshold},
		{"bad funding", func(c *Config) { c.MinFunding = "ten" }, ErrInvalidAmount},
		{"zero funding", func(c *Config) { c.MinFunding = "0" }, ErrInvalidAmount},
		{"negative insurance", func(c *Config) { c.MaxInsurance = "-1" }, ErrInvalidAmount},
		{"zero denominator", func(c *Config) { c.PayoutDenominator = 0 }, ErrInvalidPayout},
		{"zero numerator", func(c *Config) { c.PayoutNumerator = 0 }, ErrInvalidPayout},
		{"bad oracle", func(c *Config) { c.Oracles = append(c.Oracles, "nope") }, ErrInvalidOracle},
		{"negative cache", func(c *Config) { c.RecordCacheSize = -1 }, ErrInvalidCacheSize},
		{"fractional funding", func(c *Config) { c.MinFunding = "10.5" }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestGovernance(t *testing.T) {
	require := require.New(t)

	cfg := validConfig()
	g, err := cfg.Governance()
	require.NoError(err)

	controller, err := ids.ShortFromString(cfg.Controller)
	require.NoError(err)
	require.Equal(controller, g.Controller)
	require.Equal(uint64(4), g.Registry.Threshold)
	require.Equal(types.Units(10), g.Registry.MinFunding)
	require.Equal(types.Units(1), g.Ledger.MaxInsurance)
	require.Equal(uint64(3), g.Ledger.PayoutNumerator)
	require.Equal(uint64(2), g.Ledger.PayoutDenominator)
	require.Len(g.Oracle.Oracles, 1)
	require.Equal(24*time.Hour, g.Oracle.RequestTTL)
}

func TestParseConfig(t *testing.T) {
	require := require.New(t)

	cfg, err := ParseConfig(nil)
	require.NoError(err)
	require.Equal(DefaultConfig(), cfg)

	cfg, err = ParseConfig([]byte(`{"consensusThreshold":7,"maxInsurance":"2","httpPort":9700}`))
	require.NoError(err)
	require.Equal(uint64(7), cfg.ConsensusThreshold)
	require.Equal("2", cfg.MaxInsurance)
	require.Equal("10", cfg.MinFunding)
	require.Equal("127.0.0.1:9700", cfg.HTTPAddress())

	_, err = ParseConfig([]byte(`{`))
	require.Error(err)
}

func TestDerivedSettings(t *testing.T) {
	require := require.New(t)

	cfg := validConfig()
	cfg.RecordCacheSize = 64
	cfg.NATSURL = "nats://127.0.0.1:4222"

	require.Equal(64, cfg.State().AirlineCacheSize)
	require.Equal(64, cfg.State().PolicyCacheSize)

	n := cfg.NATS()
	require.Equal("nats://127.0.0.1:4222", n.URL)
	require.Equal("surety.status.requests", n.RequestSubject)
	require.Equal("surety.status.responses", n.ResponseSubject)
}
