// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package surety

import "github.com/luxfi/log"

// Factory creates VM instances.
type Factory interface {
	New(log.Logger) (VM, error)
}
