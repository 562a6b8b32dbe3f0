// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package suretyvm

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/surety"
	"github.com/luxfi/surety/vms/suretyvm/config"
	"github.com/luxfi/surety/vms/suretyvm/genesis"
	"github.com/luxfi/surety/vms/suretyvm/txs"
	"github.com/luxfi/surety/vms/suretyvm/types"

	eventsqlite "github.com/luxfi/surety/vms/suretyvm/events/sqlite"
)

const genesisTime = 1_700_000_000

type testEnv struct {
	vm         *VM
	db         database.Database
	cfg        config.Config
	controller ids.ShortID
	oracle     ids.ShortID
	airline    ids.ShortID
}

func testConfig(t *testing.T, controller, oracleAddr ids.ShortID) config.Config {
	cfg := config.DefaultConfig()
	cfg.Controller = controller.String()
	cfg.Oracles = []string{oracleAddr.String()}
	cfg.RequestTTL = time.Hour
	cfg.PruneInterval = 5 * time.Millisecond
	cfg.JournalPath = filepath.Join(t.TempDir(), "events.db")
	return cfg
}

func testGenesis(t *testing.T, airlines ...ids.ShortID) []byte {
	g := &genesis.Genesis{Timestamp: genesisTime}
	for _, a := range airlines {
		g.Airlines = append(g.Airlines, genesis.Airline{
			Name:    "Genesis Air",
			Address: a.String(),
			Funding: "10",
		})
	}
	b, err := g.Bytes()
	require.NoError(t, err)
	return b
}

func newVM(t *testing.T, cfg config.Config) *VM {
	t.Helper()
	vm, err := NewFactory(cfg).New(log.NoLog{})
	require.NoError(t, err)
	return vm.(*VM)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	require := require.New(t)

	controller := ids.GenerateTestShortID()
	oracleAddr := ids.GenerateTestShortID()
	airlineAddr := ids.GenerateTestShortID()
	cfg := testConfig(t, controller, oracleAddr)
	db := memdb.New()

	vm := newVM(t, cfg)
	require.NoError(vm.Initialize(context.Background(), &surety.Config{
		DB:           db,
		GenesisBytes: testGenesis(t, airlineAddr),
	}))
	t.Cleanup(func() {
		require.NoError(vm.Shutdown(context.Background()))
	})
	return &testEnv{
		vm:         vm,
		db:         db,
		cfg:        cfg,
		controller: controller,
		oracle:     oracleAddr,
		airline:    airlineAddr,
	}
}

func (e *testEnv) txBytes(t *testing.T, unsigned txs.UnsignedTx, sender ids.ShortID) []byte {
	t.Helper()
	tx, err := txs.NewTx(unsigned, sender)
	require.NoError(t, err)
	return tx.Bytes()
}

func TestInitializeAppliesGenesisOnce(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t)

	f := env.vm.Facade()
	require.True(f.IsAirlineFunded(env.airline))
	require.Equal(uint64(genesisTime), f.Clock().Unix())

	// A restart over the same database ignores a different genesis.
	require.NoError(env.vm.Shutdown(ctx))
	other := ids.GenerateTestShortID()
	vm := newVM(t, env.cfg)
	require.NoError(vm.Initialize(ctx, &surety.Config{
		DB:           env.db,
		GenesisBytes: testGenesis(t, other),
	}))
	defer func() {
		require.NoError(vm.Shutdown(ctx))
	}()
	require.True(vm.Facade().IsAirlineFunded(env.airline))
	require.False(vm.Facade().IsAirlineRegistered(other))
}

func TestInitializeRejectsInvalidConfig(t *testing.T) {
	vm := newVM(t, config.DefaultConfig())
	err := vm.Initialize(context.Background(), &surety.Config{DB: memdb.New()})
	require.ErrorIs(t, err, config.ErrInvalidController)
}

func TestInitializeRejectsBadGenesis(t *testing.T) {
	cfg := testConfig(t, ids.GenerateTestShortID(), ids.GenerateTestShortID())
	vm := newVM(t, cfg)
	err := vm.Initialize(context.Background(), &surety.Config{
		DB:           memdb.New(),
		GenesisBytes: []byte("{"),
	})
	require.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestProcessBlock(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t)

	passenger := ids.GenerateTestShortID()
	flight := types.Flight{Airline: env.airline, Code: "ND1309", Departure: genesisTime + 3600}
	buy := env.txBytes(t, &txs.BuyInsuranceTx{Flight: flight, Amount: *types.FractionOfUnit(1, 2)}, passenger)

	results, err := env.vm.ProcessBlock(ctx, 1, genesisTime+60, [][]byte{
		buy,
		[]byte("garbage"),
		buy,
	})
	require.NoError(err)
	require.Len(results, 3)
	require.NoError(results[0])
	require.ErrorIs(results[1], types.ErrInvalidArgument)
	require.ErrorIs(results[2], types.ErrAlreadyExists)

	policies, err := env.vm.Facade().GetPolicies(passenger)
	require.NoError(err)
	require.Len(policies, 1)
	require.Equal(uint64(genesisTime+60), policies[0].PurchasedAt)

	_, err = env.vm.ProcessBlock(ctx, 3, genesisTime+120, nil)
	require.ErrorIs(err, types.ErrInvalidState)
	_, err = env.vm.ProcessBlock(ctx, 2, genesisTime, nil)
	require.ErrorIs(err, types.ErrInvalidState)

	credit := env.txBytes(t, &txs.CreditDelayTx{Flight: flight}, env.oracle)
	withdraw := env.txBytes(t, &txs.WithdrawCreditTx{}, passenger)
	results, err = env.vm.ProcessBlock(ctx, 2, genesisTime+120, [][]byte{credit, withdraw})
	require.NoError(err)
	require.NoError(results[0])
	require.NoError(results[1])

	balance, err := env.vm.Facade().WalletBalance(passenger)
	require.NoError(err)
	require.Equal(types.FractionOfUnit(3, 4), balance)

	// Every successful mutation reached the journal.
	journal, err := eventsqlite.Open(ctx, env.cfg.JournalPath)
	require.NoError(err)
	defer journal.Close()
	count, err := journal.Count(ctx)
	require.NoError(err)
	require.Positive(count)
}

func TestNormalOpExpiresRequests(t *testing.T) {
	ignore := goleak.IgnoreCurrent()
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t)

	flight := types.Flight{Airline: env.airline, Code: "ND1309", Departure: genesisTime + 3600}
	request := env.txBytes(t, &txs.RequestFlightStatusTx{Flight: flight}, ids.GenerateTestShortID())
	results, err := env.vm.ProcessBlock(ctx, 1, genesisTime, [][]byte{request})
	require.NoError(err)
	require.NoError(results[0])

	// Requests age by block time.
	_, err = env.vm.ProcessBlock(ctx, 2, genesisTime+2*3600, nil)
	require.NoError(err)

	require.NoError(env.vm.SetState(ctx, surety.NormalOp))
	require.Eventually(func() bool {
		open, err := env.vm.Facade().OpenRequests()
		return err == nil && len(open) == 0
	}, time.Second, 5*time.Millisecond)

	require.NoError(env.vm.SetState(ctx, surety.Bootstrapping))
	require.ErrorIs(env.vm.SetState(ctx, surety.Unknown), errUnknownState)

	require.NoError(env.vm.SetState(ctx, surety.NormalOp))
	require.NoError(env.vm.Shutdown(ctx))
	goleak.VerifyNone(t, ignore)
}

func TestHealthAndHandlers(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	uninitialized := newVM(t, config.DefaultConfig())
	_, err := uninitialized.HealthCheck(ctx)
	require.ErrorIs(err, errNotInitialized)
	_, err = uninitialized.CreateHandlers(ctx)
	require.ErrorIs(err, errNotInitialized)

	env := newTestEnv(t)
	details, err := env.vm.HealthCheck(ctx)
	require.NoError(err)
	health := details.(map[string]interface{})
	require.Equal(Version.String(), health["version"])
	require.Equal(surety.Bootstrapping.String(), health["state"])
	require.Equal(true, health["operational"])
	require.Equal(uint64(1), health["consortiumSize"])

	handlers, err := env.vm.CreateHandlers(ctx)
	require.NoError(err)
	require.Contains(handlers, "/rpc")

	version, err := env.vm.Version(ctx)
	require.NoError(err)
	require.Equal(Version.String(), version)
}

func TestShutdownRejectsBlocks(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t)

	require.NoError(env.vm.Shutdown(ctx))
	_, err := env.vm.ProcessBlock(ctx, 1, genesisTime, nil)
	require.ErrorIs(err, errVMShutdown)
	require.ErrorIs(env.vm.SetState(ctx, surety.NormalOp), errVMShutdown)
}
