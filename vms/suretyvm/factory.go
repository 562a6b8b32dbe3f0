// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package suretyvm

import (
	"github.com/luxfi/log"

	"github.com/luxfi/surety"
	"github.com/luxfi/surety/vms/suretyvm/config"
)

var _ surety.Factory = (*Factory)(nil)

// Factory creates Surety VM instances.
type Factory struct {
	config.Config
}

// New creates a VM. Config bytes passed to Initialize replace the factory
// config.
func (f *Factory) New(logger log.Logger) (surety.VM, error) {
	if f.Config.ConsensusThreshold == 0 {
		f.Config = config.DefaultConfig()
	}
	return &VM{
		Config: f.Config,
		log:    logger,
	}, nil
}

func NewFactory(cfg config.Config) *Factory {
	return &Factory{Config: cfg}
}
