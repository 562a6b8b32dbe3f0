// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package genesis seeds a fresh surety chain.
package genesis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/luxfi/ids"

	"github.com/luxfi/surety/vms/suretyvm/governance"
	"github.com/luxfi/surety/vms/suretyvm/types"
)

// Airline is an airline admitted at genesis. Funding is in whole units and
// may be empty.
type Airline struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Funding string `json:"funding,omitempty"`
}

// Genesis is the initial chain state. The first airline is admitted by
// bootstrap and nominates every later one, so it must be funded when more
// than one airline is listed.
type Genesis struct {
	Timestamp   uint64    `json:"timestamp"`
	Operational *bool     `json:"operational,omitempty"`
	Airlines    []Airline `json:"airlines"`
}

// Parse decodes genesis bytes. Empty bytes yield an empty genesis.
func Parse(b []byte) (*Genesis, error) {
	g := &Genesis{}
	if len(b) == 0 {
		return g, nil
	}
	if err := json.Unmarshal(b, g); err != nil {
		return nil, fmt.Errorf("%w: genesis: %w", types.ErrInvalidArgument, err)
	}
	return g, nil
}

// Bytes encodes the genesis.
func (g *Genesis) Bytes() ([]byte, error) {
	return json.Marshal(g)
}

// Apply replays the genesis through the facade on behalf of the first
// airline and the controller.
func (g *Genesis) Apply(ctx context.Context, f *governance.Facade) error {
	if g.Timestamp != 0 {
		f.Clock().Set(time.Unix(int64(g.Timestamp), 0))
	}

	var sponsor ids.ShortID
	for i, a := range g.Airlines {
		addr, err := ids.ShortFromString(a.Address)
		if err != nil {
			return fmt.Errorf("%w: genesis airline %d: %w", types.ErrInvalidArgument, i, err)
		}
		if i == 0 {
			sponsor = addr
		}
		if _, err := f.RegisterAirline(ctx, sponsor, a.Name, addr); err != nil {
			return fmt.Errorf("genesis airline %q: %w", a.Name, err)
		}
		if a.Funding == "" {
			continue
		}
		amount, err := types.ParseUnits(a.Funding)
		if err != nil {
			return fmt.Errorf("genesis airline %q funding: %w", a.Name, err)
		}
		if _, err := f.FundAirline(ctx, addr, addr, amount); err != nil {
			return fmt.Errorf("genesis airline %q funding: %w", a.Name, err)
		}
	}
	if g.Operational != nil && !*g.Operational {
		if err := f.SetOperatingStatus(ctx, f.Controller(), false); err != nil {
			return fmt.Errorf("genesis operational flag: %w", err)
		}
	}
	return nil
}
