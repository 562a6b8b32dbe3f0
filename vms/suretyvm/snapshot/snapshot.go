// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package snapshot exports the key space of a surety database to a single
// compressed file and restores it into an empty database.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/luxfi/constants"
	"github.com/luxfi/database"
	"github.com/luxfi/log"

	"github.com/luxfi/surety/utils/compression"
	"github.com/luxfi/surety/utils/timer"
	"github.com/luxfi/surety/utils/wrappers"
)

const (
	version = 1

	// DefaultMaxSize bounds the uncompressed snapshot.
	DefaultMaxSize = 256 * constants.MiB

	maxKeySize       = constants.KiB
	batchSize        = constants.MiB
	progressInterval = 5 * time.Second
	etaSamples       = 3
)

var (
	magic = []byte("SRTY")

	ErrNotEmpty        = errors.New("target database is not empty")
	errBadMagic        = errors.New("not a surety snapshot")
	errBadVersion      = errors.New("unsupported snapshot version")
	errCountMismatched = errors.New("record count mismatch")
)

// Snapshotter moves database contents to and from snapshot files.
type Snapshotter struct {
	compressor compression.Compressor
	maxSize    int
	log        log.Logger
}

// New returns a snapshotter for snapshots of at most maxSize uncompressed
// bytes.
func New(maxSize int, logger log.Logger) (*Snapshotter, error) {
	compressor, err := compression.NewZstdCompressor(int64(maxSize))
	if err != nil {
		return nil, err
	}
	return &Snapshotter{
		compressor: compressor,
		maxSize:    maxSize,
		log:        logger,
	}, nil
}

// Export writes every key of db to w and returns the number of records.
func (s *Snapshotter) Export(ctx context.Context, db database.Iteratee, w io.Writer) (uint64, error) {
	p := wrappers.Packer{MaxSize: s.maxSize}
	p.PackFixedBytes(magic)
	p.PackByte(version)

	records := wrappers.Packer{MaxSize: s.maxSize}
	it := db.NewIterator()
	defer it.Release()

	var count uint64
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		records.PackBytes(it.Key())
		records.PackBytes(it.Value())
		if records.Errored() {
			return 0, fmt.Errorf("pack record %d: %w", count, records.Err)
		}
		count++
	}
	if err := it.Error(); err != nil {
		return 0, err
	}

	p.PackLong(count)
	p.PackFixedBytes(records.Bytes)
	if p.Errored() {
		return 0, p.Err
	}
	compressed, err := s.compressor.Compress(p.Bytes)
	if err != nil {
		return 0, err
	}
	if _, err := w.Write(compressed); err != nil {
		return 0, err
	}

	s.log.Info("snapshot exported",
		"records", count,
		"size", len(p.Bytes),
		"compressed", len(compressed),
	)
	return count, nil
}

// Import restores a snapshot read from r into db, which must be empty. It
// returns the number of records written.
func (s *Snapshotter) Import(ctx context.Context, r io.Reader, db database.Database) (uint64, error) {
	empty, err := isEmpty(db)
	if err != nil {
		return 0, err
	}
	if !empty {
		return 0, ErrNotEmpty
	}

	compressed, err := io.ReadAll(io.LimitReader(r, int64(s.maxSize)+1))
	if err != nil {
		return 0, err
	}
	raw, err := s.compressor.Decompress(compressed)
	if err != nil {
		return 0, err
	}

	p := wrappers.Packer{Bytes: raw}
	if !bytes.Equal(p.UnpackFixedBytes(len(magic)), magic) {
		return 0, errBadMagic
	}
	if v := p.UnpackByte(); v != version {
		return 0, fmt.Errorf("%w: %d", errBadVersion, v)
	}
	total := p.UnpackLong()
	if p.Errored() {
		return 0, p.Err
	}

	var (
		batch    = db.NewBatch()
		tracker  = timer.NewEtaTracker(etaSamples)
		lastLog  = time.Now()
		imported uint64
	)
	for p.Remaining() > 0 {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		key := p.UnpackLimitedBytes(uint32(maxKeySize))
		value := p.UnpackLimitedBytes(uint32(s.maxSize))
		if p.Errored() {
			return 0, fmt.Errorf("unpack record %d: %w", imported, p.Err)
		}
		if err := batch.Put(key, value); err != nil {
			return 0, err
		}
		imported++

		if batch.Size() >= batchSize {
			if err := batch.Write(); err != nil {
				return 0, err
			}
			batch.Reset()
		}
		if now := time.Now(); now.Sub(lastLog) >= progressInterval {
			lastLog = now
			if eta, pct := tracker.AddSample(imported, total, now); eta != nil {
				s.log.Info("importing snapshot",
					"progress", fmt.Sprintf("%.1f%%", pct),
					"eta", *eta,
				)
			}
		}
	}
	if imported != total {
		return 0, fmt.Errorf("%w: header says %d, read %d", errCountMismatched, total, imported)
	}
	if err := batch.Write(); err != nil {
		return 0, err
	}

	s.log.Info("snapshot imported", "records", imported)
	return imported, nil
}

func isEmpty(db database.Iteratee) (bool, error) {
	it := db.NewIterator()
	defer it.Release()
	if it.Next() {
		return false, nil
	}
	return true, it.Error()
}
