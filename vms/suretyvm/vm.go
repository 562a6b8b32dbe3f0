// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package suretyvm implements the Surety VM: a consortium of airlines selling
// flight-delay insurance, settled by an off-chain oracle.
package suretyvm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/luxfi/log"
	"github.com/luxfi/version"

	"github.com/luxfi/surety"
	"github.com/luxfi/surety/utils/wrappers"
	"github.com/luxfi/surety/vms/suretyvm/api"
	"github.com/luxfi/surety/vms/suretyvm/config"
	"github.com/luxfi/surety/vms/suretyvm/genesis"
	"github.com/luxfi/surety/vms/suretyvm/governance"
	"github.com/luxfi/surety/vms/suretyvm/metrics"
	"github.com/luxfi/surety/vms/suretyvm/oracle/natsbridge"
	"github.com/luxfi/surety/vms/suretyvm/state"
	"github.com/luxfi/surety/vms/suretyvm/txs"
	"github.com/luxfi/surety/vms/suretyvm/types"

	eventsqlite "github.com/luxfi/surety/vms/suretyvm/events/sqlite"
)

const (
	// VMID is the unique identifier for the Surety VM
	VMID = "suretyvm"

	metricsNamespace = "surety"
)

var (
	_ surety.VM = (*VM)(nil)

	// Version of the Surety VM
	Version = &version.Semantic{
		Major: 1,
		Minor: 0,
		Patch: 0,
	}

	errNotInitialized = errors.New("VM is not initialized")
	errVMShutdown     = errors.New("VM is shutting down")
	errUnknownState   = errors.New("unknown VM state")
	errBrokerDown     = errors.New("oracle broker disconnected")
)

// VM hosts the governance facade and its optional collaborators: the event
// journal, the oracle broker and the RPC handler.
type VM struct {
	config.Config

	log log.Logger

	state   *state.State
	facade  *governance.Facade
	journal *eventsqlite.Store
	bridge  *natsbridge.Bridge
	handler http.Handler

	lock         sync.RWMutex
	status       surety.State
	shuttingDown bool
	stopPruning  context.CancelFunc
	pruneDone    chan struct{}
}

// Initialize opens state over cfg.DB, applies genesis on first run and
// connects the configured collaborators.
func (vm *VM) Initialize(ctx context.Context, cfg *surety.Config) error {
	if len(cfg.ConfigBytes) > 0 {
		parsed, err := config.ParseConfig(cfg.ConfigBytes)
		if err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
		vm.Config = parsed
	}
	if err := vm.Config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if vm.log == nil {
		vm.log = log.NoLog{}
	}

	if err := vm.initialize(ctx, cfg); err != nil {
		if closeErr := vm.close(); closeErr != nil {
			vm.log.Warn("failed to release resources after init failure", "error", closeErr)
		}
		return err
	}

	vm.lock.Lock()
	vm.status = surety.Bootstrapping
	vm.lock.Unlock()

	vm.log.Info("Surety VM initialized",
		"version", Version.String(),
		"threshold", vm.ConsensusThreshold,
		"oracles", len(vm.Oracles),
		"journal", vm.JournalPath != "",
		"nats", vm.NATSURL != "",
	)
	return nil
}

func (vm *VM) initialize(ctx context.Context, cfg *surety.Config) error {
	govCfg, err := vm.Config.Governance()
	if err != nil {
		return err
	}
	deps := governance.Deps{Log: vm.log}
	if cfg.Registerer != nil {
		deps.Metrics, err = metrics.New(metricsNamespace, cfg.Registerer)
		if err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	if vm.JournalPath != "" {
		vm.journal, err = eventsqlite.Open(ctx, vm.JournalPath)
		if err != nil {
			return fmt.Errorf("failed to open event journal: %w", err)
		}
		deps.Sink = vm.journal
	}

	vm.state = state.New(cfg.DB, vm.Config.State())
	vm.facade, err = governance.New(vm.state, govCfg, deps)
	if err != nil {
		return err
	}
	if err := vm.applyGenesis(ctx, cfg.GenesisBytes); err != nil {
		return err
	}

	_, timestamp, err := vm.facade.LastBlock()
	if err != nil {
		return err
	}
	if timestamp != 0 {
		vm.facade.Clock().Set(time.Unix(int64(timestamp), 0))
	}

	if vm.NATSURL != "" {
		vm.bridge, err = natsbridge.Connect(vm.Config.NATS(), vm.log)
		if err != nil {
			return err
		}
		vm.facade.SetDispatcher(vm.bridge)
		if err := vm.bridge.Subscribe(vm.facade); err != nil {
			return err
		}
	}

	var auth *api.Authenticator
	if vm.JWTSecret != "" {
		auth, err = api.NewAuthenticator(vm.JWTSecret)
		if err != nil {
			return err
		}
	}
	vm.handler, err = api.NewHandler(vm.facade, auth, vm.log)
	return err
}

func (vm *VM) applyGenesis(ctx context.Context, genesisBytes []byte) error {
	initialized, err := vm.state.IsInitialized()
	if err != nil {
		return err
	}
	if initialized {
		return nil
	}

	g, err := genesis.Parse(genesisBytes)
	if err != nil {
		return err
	}
	if err := g.Apply(ctx, vm.facade); err != nil {
		return fmt.Errorf("failed to apply genesis: %w", err)
	}
	if err := vm.state.SetInitialized(); err != nil {
		return err
	}
	if err := vm.state.Commit(); err != nil {
		return err
	}
	vm.log.Info("genesis applied", "airlines", len(g.Airlines))
	return nil
}

// Facade returns the operation surface. It is nil before Initialize.
func (vm *VM) Facade() *governance.Facade {
	return vm.facade
}

// ProcessBlock accepts the block at height and applies its transactions in
// order. A failed transaction is reported at its index and leaves the others
// untouched; only a bad height or timestamp rejects the block.
func (vm *VM) ProcessBlock(ctx context.Context, height, timestamp uint64, txBytes [][]byte) ([]error, error) {
	if err := vm.ready(); err != nil {
		return nil, err
	}
	if err := vm.facade.AcceptBlock(height, timestamp); err != nil {
		return nil, err
	}

	results := make([]error, len(txBytes))
	failed := 0
	for i, b := range txBytes {
		tx, err := txs.Parse(b)
		if err == nil {
			err = txs.Execute(ctx, vm.facade, tx)
		}
		if err != nil {
			failed++
			results[i] = err
			vm.log.Debug("transaction rejected",
				"height", height,
				"index", i,
				"kind", types.KindOf(err),
				"error", err,
			)
		}
	}

	vm.log.Info("block processed",
		"height", height,
		"timestamp", timestamp,
		"txs", len(txBytes),
		"failed", failed,
	)
	return results, nil
}

// SetState starts background request expiry in NormalOp and stops it
// otherwise.
func (vm *VM) SetState(_ context.Context, s surety.State) error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if vm.facade == nil {
		return errNotInitialized
	}
	if vm.shuttingDown {
		return errVMShutdown
	}
	switch s {
	case surety.Bootstrapping:
		vm.stopPruneLoop()
	case surety.NormalOp:
		vm.startPruneLoop()
	default:
		return fmt.Errorf("%w: %s", errUnknownState, s)
	}
	vm.status = s
	vm.log.Info("Surety VM state transition", "state", s)
	return nil
}

// startPruneLoop must be called with the lock held.
func (vm *VM) startPruneLoop() {
	if vm.stopPruning != nil || vm.PruneInterval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	vm.stopPruning = cancel
	vm.pruneDone = make(chan struct{})
	go vm.pruneLoop(ctx, vm.PruneInterval, vm.pruneDone)
}

// stopPruneLoop must be called with the lock held.
func (vm *VM) stopPruneLoop() {
	if vm.stopPruning == nil {
		return
	}
	vm.stopPruning()
	<-vm.pruneDone
	vm.stopPruning = nil
	vm.pruneDone = nil
}

func (vm *VM) pruneLoop(ctx context.Context, interval time.Duration, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			vm.prune(ctx)
		}
	}
}

func (vm *VM) prune(ctx context.Context) {
	expired, err := vm.facade.PruneRequests(ctx, vm.facade.Controller())
	switch {
	case errors.Is(err, types.ErrSystemPaused):
		vm.log.Debug("skipping request expiry while paused")
	case err != nil:
		vm.log.Warn("failed to expire status requests", "error", err)
	case len(expired) > 0:
		vm.log.Debug("expired status requests", "count", len(expired))
	}
}

func (vm *VM) ready() error {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	switch {
	case vm.shuttingDown:
		return errVMShutdown
	case vm.facade == nil:
		return errNotInitialized
	default:
		return nil
	}
}

// Shutdown stops background work and releases every collaborator. The
// database handed to Initialize is left open.
func (vm *VM) Shutdown(context.Context) error {
	vm.lock.Lock()
	if vm.shuttingDown {
		vm.lock.Unlock()
		return nil
	}
	vm.shuttingDown = true
	vm.stopPruneLoop()
	vm.lock.Unlock()

	vm.log.Info("shutting down Surety VM")
	return vm.close()
}

func (vm *VM) close() error {
	errs := wrappers.Errs{}
	if vm.bridge != nil {
		errs.Add(vm.bridge.Close())
	}
	if vm.journal != nil {
		errs.Add(vm.journal.Close())
	}
	if vm.state != nil {
		errs.Add(vm.state.Close())
	}
	return errs.Err
}

// Version returns the VM version.
func (*VM) Version(context.Context) (string, error) {
	return Version.String(), nil
}

// HealthCheck returns VM health status.
func (vm *VM) HealthCheck(context.Context) (interface{}, error) {
	if err := vm.ready(); err != nil {
		return nil, err
	}
	vm.lock.RLock()
	status := vm.status
	vm.lock.RUnlock()

	height, _, err := vm.facade.LastBlock()
	if err != nil {
		return nil, err
	}
	size, err := vm.facade.ConsortiumSize()
	if err != nil {
		return nil, err
	}
	open, err := vm.facade.OpenRequests()
	if err != nil {
		return nil, err
	}

	details := map[string]interface{}{
		"version":        Version.String(),
		"state":          status.String(),
		"operational":    vm.facade.IsOperational(),
		"consortiumSize": size,
		"openRequests":   len(open),
		"height":         height,
	}
	if vm.bridge != nil {
		details["nats"] = vm.bridge.Connected()
		if !vm.bridge.Connected() {
			return details, errBrokerDown
		}
	}
	return details, nil
}

// CreateHandlers returns HTTP handlers for the VM.
func (vm *VM) CreateHandlers(context.Context) (map[string]http.Handler, error) {
	if err := vm.ready(); err != nil {
		return nil, err
	}
	return map[string]http.Handler{
		"/rpc": vm.handler,
	}, nil
}
