// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package governance

import (
	"fmt"
	"time"

	"github.com/luxfi/surety/vms/suretyvm/types"
)

// AcceptBlock records the next block and moves the clock to its timestamp.
// Heights must be consecutive and timestamps must not go backwards.
func (f *Facade) AcceptBlock(height, timestamp uint64) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	lastHeight, lastTimestamp, err := f.state.LastBlock()
	if err != nil {
		return err
	}
	if height != lastHeight+1 {
		return fmt.Errorf("%w: block height %d after %d", types.ErrInvalidState, height, lastHeight)
	}
	if timestamp < lastTimestamp {
		return fmt.Errorf("%w: block timestamp %d before %d", types.ErrInvalidState, timestamp, lastTimestamp)
	}
	if err := f.state.SetLastBlock(height, timestamp); err != nil {
		f.state.Abort()
		return err
	}
	if err := f.state.Commit(); err != nil {
		f.state.Abort()
		return err
	}
	f.clock.Set(time.Unix(int64(timestamp), 0))
	return nil
}

// LastBlock returns the height and timestamp of the last accepted block.
func (f *Facade) LastBlock() (uint64, uint64, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()

	return f.state.LastBlock()
}
