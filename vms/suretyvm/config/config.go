// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/luxfi/ids"

	"github.com/luxfi/surety/utils/profiler"
	"github.com/luxfi/surety/vms/suretyvm/airline"
	"github.com/luxfi/surety/vms/suretyvm/governance"
	"github.com/luxfi/surety/vms/suretyvm/insurance"
	"github.com/luxfi/surety/vms/suretyvm/oracle"
	"github.com/luxfi/surety/vms/suretyvm/oracle/natsbridge"
	"github.com/luxfi/surety/vms/suretyvm/state"
	"github.com/luxfi/surety/vms/suretyvm/types"
)

var (
	ErrInvalidThreshold  = errors.New("invalid consensus threshold")
	ErrInvalidAmount     = errors.New("invalid amount configuration")
	ErrInvalidPayout     = errors.New("invalid payout ratio")
	ErrInvalidController = errors.New("invalid controller address")
	ErrInvalidOracle     = errors.New("invalid oracle address")
	ErrInvalidCacheSize  = errors.New("invalid cache size")
)

// Config holds configuration for the surety VM. Environment variables
// override file values under the SURETY_ prefix.
type Config struct {
	// Consortium rules
	ConsensusThreshold uint64 `json:"consensusThreshold" env:"CONSENSUS_THRESHOLD"` // Default: 4
	MinFunding         string `json:"minFunding" env:"MIN_FUNDING"`                 // whole units
	MaxInsurance       string `json:"maxInsurance" env:"MAX_INSURANCE"`             // whole units
	PayoutNumerator    uint64 `json:"payoutNumerator" env:"PAYOUT_NUMERATOR"`
	PayoutDenominator  uint64 `json:"payoutDenominator" env:"PAYOUT_DENOMINATOR"`

	// Privileged identities
	Controller string   `json:"controller" env:"CONTROLLER"`
	Oracles    []string `json:"oracles" env:"ORACLES" envSeparator:","`

	// Storage configuration
	DataDir           string `json:"dataDir" env:"DATA_DIR"`
	RecordCacheSize   int    `json:"recordCacheSize" env:"RECORD_CACHE_SIZE"`
	ResolvedCacheSize int    `json:"resolvedCacheSize" env:"RESOLVED_CACHE_SIZE"`
	JournalPath       string `json:"journalPath" env:"JOURNAL_PATH"`

	// Oracle transport
	RequestTTL          time.Duration `json:"requestTTL" env:"REQUEST_TTL"`
	PruneInterval       time.Duration `json:"pruneInterval" env:"PRUNE_INTERVAL"`
	NATSURL             string        `json:"natsURL" env:"NATS_URL"`
	NATSRequestSubject  string        `json:"natsRequestSubject" env:"NATS_REQUEST_SUBJECT"`
	NATSResponseSubject string        `json:"natsResponseSubject" env:"NATS_RESPONSE_SUBJECT"`

	// HTTP configuration
	HTTPHost        string        `json:"httpHost" env:"HTTP_HOST"`
	HTTPPort        uint16        `json:"httpPort" env:"HTTP_PORT"`
	AllowedOrigins  []string      `json:"allowedOrigins" env:"ALLOWED_ORIGINS" envSeparator:","`
	ShutdownTimeout time.Duration `json:"shutdownTimeout" env:"SHUTDOWN_TIMEOUT"`
	JWTSecret       string        `json:"jwtSecret" env:"JWT_SECRET"`

	// Profiling, disabled when ProfileDir is empty
	ProfileDir      string        `json:"profileDir" env:"PROFILE_DIR"`
	ProfileInterval time.Duration `json:"profileInterval" env:"PROFILE_INTERVAL"`
	ProfileMaxFiles int           `json:"profileMaxFiles" env:"PROFILE_MAX_FILES"`
}

// DefaultConfig returns a config with default values.
func DefaultConfig() Config {
	return Config{
		ConsensusThreshold:  4,
		MinFunding:          "10",
		MaxInsurance:        "1",
		PayoutNumerator:     3,
		PayoutDenominator:   2,
		DataDir:             "surety-data",
		RecordCacheSize:     1024,
		ResolvedCacheSize:   4096,
		RequestTTL:          24 * time.Hour,
		PruneInterval:       time.Minute,
		NATSRequestSubject:  "surety.status.requests",
		NATSResponseSubject: "surety.status.responses",
		HTTPHost:            "127.0.0.1",
		HTTPPort:            9650,
		AllowedOrigins:      []string{"*"},
		ShutdownTimeout:     10 * time.Second,
		ProfileInterval:     15 * time.Minute,
		ProfileMaxFiles:     5,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.ConsensusThreshold == 0 {
		return ErrInvalidThreshold
	}
	if _, err := c.minFunding(); err != nil {
		return err
	}
	if _, err := c.maxInsurance(); err != nil {
		return err
	}
	if c.PayoutNumerator == 0 || c.PayoutDenominator == 0 {
		return ErrInvalidPayout
	}
	if _, err := c.controller(); err != nil {
		return err
	}
	if _, err := c.oracles(); err != nil {
		return err
	}
	if c.RecordCacheSize < 0 || c.ResolvedCacheSize < 0 {
		return ErrInvalidCacheSize
	}
	return nil
}

// Governance converts the config into component rules.
func (c *Config) Governance() (governance.Config, error) {
	minFunding, err := c.minFunding()
	if err != nil {
		return governance.Config{}, err
	}
	maxInsurance, err := c.maxInsurance()
	if err != nil {
		return governance.Config{}, err
	}
	controller, err := c.controller()
	if err != nil {
		return governance.Config{}, err
	}
	oracles, err := c.oracles()
	if err != nil {
		return governance.Config{}, err
	}
	return governance.Config{
		Controller: controller,
		Registry: airline.Config{
			Threshold:  c.ConsensusThreshold,
			MinFunding: minFunding,
		},
		Ledger: insurance.Config{
			MaxInsurance:      maxInsurance,
			PayoutNumerator:   c.PayoutNumerator,
			PayoutDenominator: c.PayoutDenominator,
		},
		Oracle: oracle.Config{
			RequestTTL:        c.RequestTTL,
			ResolvedCacheSize: c.ResolvedCacheSize,
			Oracles:           oracles,
		},
	}, nil
}

// State returns the storage cache settings.
func (c *Config) State() state.Config {
	return state.Config{
		AirlineCacheSize: c.RecordCacheSize,
		PolicyCacheSize:  c.RecordCacheSize,
	}
}

// NATS returns the oracle transport settings.
func (c *Config) NATS() natsbridge.Config {
	return natsbridge.Config{
		URL:             c.NATSURL,
		Name:            "suretyvm",
		RequestSubject:  c.NATSRequestSubject,
		ResponseSubject: c.NATSResponseSubject,
		ReconnectWait:   2 * time.Second,
		MaxReconnects:   -1,
		ConnectTimeout:  5 * time.Second,
	}
}

// Profiler returns the continuous profiler settings.
func (c *Config) Profiler() profiler.Config {
	return profiler.Config{
		Dir:         c.ProfileDir,
		Interval:    c.ProfileInterval,
		MaxNumFiles: c.ProfileMaxFiles,
	}
}

// HTTPAddress returns host:port of the API server.
func (c *Config) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort)
}

func (c *Config) minFunding() (*uint256.Int, error) {
	return parseAmount("minFunding", c.MinFunding)
}

func (c *Config) maxInsurance() (*uint256.Int, error) {
	return parseAmount("maxInsurance", c.MaxInsurance)
}

func (c *Config) controller() (ids.ShortID, error) {
	addr, err := ids.ShortFromString(c.Controller)
	if err != nil || addr == ids.ShortEmpty {
		return ids.ShortEmpty, fmt.Errorf("%w: %q", ErrInvalidController, c.Controller)
	}
	return addr, nil
}

func (c *Config) oracles() ([]ids.ShortID, error) {
	out := make([]ids.ShortID, 0, len(c.Oracles))
	for _, s := range c.Oracles {
		addr, err := ids.ShortFromString(s)
		if err != nil || addr == ids.ShortEmpty {
			return nil, fmt.Errorf("%w: %q", ErrInvalidOracle, s)
		}
		out = append(out, addr)
	}
	return out, nil
}

func parseAmount(field, s string) (*uint256.Int, error) {
	amount, err := types.ParseUnits(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidAmount, field, err)
	}
	if amount.IsZero() {
		return nil, fmt.Errorf("%w: %s must be positive", ErrInvalidAmount, field)
	}
	return amount, nil
}

// ParseConfig parses configuration from JSON bytes.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if len(data) == 0 {
		return cfg, nil
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
