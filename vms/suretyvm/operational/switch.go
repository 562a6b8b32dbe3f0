// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package operational implements the process-wide circuit breaker that gates
// every state-mutating operation.
package operational

import (
	"fmt"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/surety/vms/suretyvm/types"
)

// Store persists the operational flag.
type Store interface {
	IsOperational() (bool, error)
	SetOperational(bool) error
}

// Switch is owned by a single controller identity.
type Switch struct {
	store      Store
	controller ids.ShortID
	log        log.Logger
}

func New(store Store, controller ids.ShortID, logger log.Logger) *Switch {
	return &Switch{
		store:      store,
		controller: controller,
		log:        logger,
	}
}

// Controller returns the identity allowed to flip the switch.
func (s *Switch) Controller() ids.ShortID {
	return s.controller
}

// IsOperational returns the current flag. A storage failure reads as paused.
func (s *Switch) IsOperational() bool {
	operational, err := s.store.IsOperational()
	if err != nil {
		s.log.Error("failed to read operational flag", "error", err)
		return false
	}
	return operational
}

// Check returns types.ErrSystemPaused when mutations are disabled.
func (s *Switch) Check() error {
	if !s.IsOperational() {
		return types.ErrSystemPaused
	}
	return nil
}

// SetOperationalStatus sets the flag. Only the controller may call it.
func (s *Switch) SetOperationalStatus(operational bool, caller ids.ShortID) error {
	if caller != s.controller {
		return fmt.Errorf("%w: %s is not the controller", types.ErrUnauthorized, caller)
	}
	current, err := s.store.IsOperational()
	if err != nil {
		return err
	}
	if current == operational {
		return nil
	}
	if err := s.store.SetOperational(operational); err != nil {
		return err
	}
	s.log.Info("operational status changed", "operational", operational, "caller", caller)
	return nil
}
