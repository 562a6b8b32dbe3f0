// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package profiler captures rotating CPU, heap and mutex profiles of a
// running node.
package profiler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/luxfi/log"
)

const (
	cpuProfileFile  = "cpu.profile"
	memProfileFile  = "mem.profile"
	lockProfileFile = "lock.profile"

	dirPerms  = 0o750
	filePerms = 0o600
)

var (
	errInvalidInterval = errors.New("profile interval must be positive")
	errNoMutexProfile  = errors.New("mutex profile not found")
)

// Config for the continuous profiler.
type Config struct {
	Dir         string
	Interval    time.Duration
	MaxNumFiles int
}

// Continuous writes one set of profiles per interval, keeping at most
// MaxNumFiles generations of each.
type Continuous struct {
	cfg Config
	log log.Logger

	cpuName  string
	memName  string
	lockName string
}

func New(cfg Config, logger log.Logger) (*Continuous, error) {
	if cfg.Interval <= 0 {
		return nil, errInvalidInterval
	}
	if err := os.MkdirAll(cfg.Dir, dirPerms); err != nil {
		return nil, err
	}
	return &Continuous{
		cfg:      cfg,
		log:      logger,
		cpuName:  filepath.Join(cfg.Dir, cpuProfileFile),
		memName:  filepath.Join(cfg.Dir, memProfileFile),
		lockName: filepath.Join(cfg.Dir, lockProfileFile),
	}, nil
}

// Run profiles until ctx is done. The final partial interval is flushed
// before returning.
func (p *Continuous) Run(ctx context.Context) error {
	t := time.NewTicker(p.cfg.Interval)
	defer t.Stop()

	for {
		cpu, err := p.startCPU()
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return p.flush(cpu)
		case <-t.C:
		}
		if err := p.flush(cpu); err != nil {
			return err
		}
		if err := p.rotate(); err != nil {
			return err
		}
		p.log.Debug("profiles rotated", "dir", p.cfg.Dir)
	}
}

func (p *Continuous) startCPU() (*os.File, error) {
	f, err := os.OpenFile(p.cpuName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerms)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func (p *Continuous) flush(cpu *os.File) error {
	pprof.StopCPUProfile()
	return errors.Join(
		cpu.Close(),
		writeProfile(p.memName, func(f *os.File) error {
			runtime.GC()
			return pprof.WriteHeapProfile(f)
		}),
		writeProfile(p.lockName, func(f *os.File) error {
			profile := pprof.Lookup("mutex")
			if profile == nil {
				return errNoMutexProfile
			}
			return profile.WriteTo(f, 0)
		}),
	)
}

func (p *Continuous) rotate() error {
	g := errgroup.Group{}
	for _, name := range []string{p.cpuName, p.memName, p.lockName} {
		g.Go(func() error { return rotate(name, p.cfg.MaxNumFiles) })
	}
	return g.Wait()
}

func writeProfile(name string, write func(*os.File) error) error {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerms)
	if err != nil {
		return err
	}
	return errors.Join(write(f), f.Close())
}

// rotate shifts name.i to name.i+1, dropping generations past maxNumFiles.
func rotate(name string, maxNumFiles int) error {
	for i := maxNumFiles - 1; i > 0; i-- {
		src := fmt.Sprintf("%s.%d", name, i)
		dst := fmt.Sprintf("%s.%d", name, i+1)
		if err := renameIfExists(src, dst); err != nil {
			return err
		}
	}
	if maxNumFiles <= 0 {
		return nil
	}
	return renameIfExists(name, name+".1")
}

func renameIfExists(src, dst string) error {
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}
	return os.Rename(src, dst)
}
