// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package surety

// State is the lifecycle state of a VM instance.
type State uint8

const (
	Unknown State = iota

	// Bootstrapping serves reads and accepts blocks but runs no background
	// work.
	Bootstrapping

	// NormalOp also expires stale oracle requests in the background.
	NormalOp
)

func (s State) String() string {
	switch s {
	case Bootstrapping:
		return "Bootstrapping"
	case NormalOp:
		return "NormalOp"
	default:
		return "Unknown"
	}
}
