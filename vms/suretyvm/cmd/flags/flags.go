// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package flags loads the node configuration shared by every subcommand.
package flags

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"

	"github.com/luxfi/database"
	"github.com/luxfi/database/badgerdb"

	"github.com/luxfi/surety/vms/suretyvm/config"
)

const (
	ConfigFileKey = "config-file"
	DataDirKey    = "data-dir"

	envPrefix = "SURETY_"
	dbDir     = "db"
)

// AddFlags registers the flags common to every subcommand.
func AddFlags(flags *pflag.FlagSet) {
	flags.String(ConfigFileKey, "", "JSON config file; SURETY_* environment variables override it")
	flags.String(DataDirKey, "", "Directory holding the database and the event journal")
}

// Load reads the config file, applies SURETY_* environment overrides and
// finally the command line flags.
func Load(flags *pflag.FlagSet) (config.Config, error) {
	path, err := flags.GetString(ConfigFileKey)
	if err != nil {
		return config.Config{}, err
	}
	var fileBytes []byte
	if path != "" {
		fileBytes, err = os.ReadFile(path)
		if err != nil {
			return config.Config{}, fmt.Errorf("read config file: %w", err)
		}
	}
	cfg, err := config.ParseConfig(fileBytes)
	if err != nil {
		return config.Config{}, fmt.Errorf("parse config file: %w", err)
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return config.Config{}, fmt.Errorf("parse env: %w", err)
	}

	if flags.Changed(DataDirKey) {
		cfg.DataDir, err = flags.GetString(DataDirKey)
		if err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}

// OpenDB opens the badger database under the data directory.
func OpenDB(dataDir string) (database.Database, error) {
	path := filepath.Join(dataDir, dbDir)
	if err := os.MkdirAll(path, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := badgerdb.New(path, nil, "", nil)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	return db, nil
}
