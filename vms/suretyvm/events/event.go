// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package events defines the notifications emitted by committed operations.
package events

import (
	"context"
	"sync"

	"github.com/luxfi/ids"
)

// Kind names a committed state change.
type Kind string

const (
	AirlineNominated   Kind = "AirlineNominated"
	AirlineRegistered  Kind = "AirlineRegistered"
	VoteCast           Kind = "VoteCast"
	AirlineFunded      Kind = "AirlineFunded"
	PolicyPurchased    Kind = "PolicyPurchased"
	PolicyCredited     Kind = "PolicyCredited"
	CreditWithdrawn    Kind = "CreditWithdrawn"
	OperationalChanged Kind = "OperationalChanged"
	StatusRequested    Kind = "StatusRequested"
	StatusResolved     Kind = "StatusResolved"
	StatusExpired      Kind = "StatusExpired"
)

// Event is a single notification. Amount is a decimal string in whole units.
type Event struct {
	Kind    Kind              `json:"kind"`
	Time    uint64            `json:"time"`
	Actor   ids.ShortID       `json:"actor"`
	Subject string            `json:"subject"`
	Amount  string            `json:"amount,omitempty"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

// Sink receives the events of each committed operation, in order.
type Sink interface {
	Record(ctx context.Context, evs []Event) error
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Record(_ context.Context, evs []Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, evs...)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the kinds of the recorded events.
func (r *Recorder) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Kind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

// Reset drops the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = nil
}

// Fanout delivers to every sink and returns the first error.
type Fanout []Sink

func (f Fanout) Record(ctx context.Context, evs []Event) error {
	var firstErr error
	for _, s := range f {
		if err := s.Record(ctx, evs); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
