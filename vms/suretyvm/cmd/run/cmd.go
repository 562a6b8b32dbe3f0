// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package run

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/log"

	"github.com/luxfi/surety"
	"github.com/luxfi/surety/api/health"
	"github.com/luxfi/surety/api/metrics"
	"github.com/luxfi/surety/api/server"
	"github.com/luxfi/surety/utils/profiler"
	"github.com/luxfi/surety/vms/suretyvm"
	"github.com/luxfi/surety/vms/suretyvm/api"
	"github.com/luxfi/surety/vms/suretyvm/cmd/flags"
	"github.com/luxfi/surety/vms/suretyvm/config"
)

const (
	GenesisFileKey = "genesis-file"

	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 2 * time.Minute
)

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "run",
		Short: "Runs a Surety node serving the JSON-RPC API",
		RunE:  runFunc,
	}
	flags.AddFlags(c.Flags())
	c.Flags().String(GenesisFileKey, "", "Genesis file applied on first start")
	return c
}

func runFunc(c *cobra.Command, _ []string) error {
	cfg, err := flags.Load(c.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	genesisPath, err := c.Flags().GetString(GenesisFileKey)
	if err != nil {
		return err
	}
	var genesisBytes []byte
	if genesisPath != "" {
		genesisBytes, err = os.ReadFile(genesisPath)
		if err != nil {
			return fmt.Errorf("read genesis file: %w", err)
		}
	}

	logger := log.NewLogger("surety")

	gatherer := metrics.NewMultiGatherer()
	vmRegistry, err := metrics.MakeAndRegister(gatherer, "vm")
	if err != nil {
		return err
	}
	processRegistry, err := metrics.MakeAndRegister(gatherer, "process")
	if err != nil {
		return err
	}
	if err := errors.Join(
		processRegistry.Register(collectors.NewGoCollector()),
		processRegistry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})),
	); err != nil {
		return err
	}
	apiRegistry, err := metrics.MakeAndRegister(gatherer, "api")
	if err != nil {
		return err
	}

	db, err := flags.OpenDB(cfg.DataDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close database", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vm, err := suretyvm.NewFactory(cfg).New(logger)
	if err != nil {
		return err
	}
	if err := vm.Initialize(ctx, &surety.Config{
		DB:           db,
		GenesisBytes: genesisBytes,
		Registerer:   vmRegistry,
	}); err != nil {
		return err
	}
	defer func() {
		if err := vm.Shutdown(context.Background()); err != nil {
			logger.Warn("failed to shut down VM", "error", err)
		}
	}()
	if err := vm.SetState(ctx, surety.NormalOp); err != nil {
		return err
	}

	checks, err := health.New(logger, apiRegistry)
	if err != nil {
		return err
	}
	if err := checks.Register("vm", vm); err != nil {
		return err
	}

	handlers, err := vm.CreateHandlers(ctx)
	if err != nil {
		return err
	}
	handlers["/health"] = checks
	handlers["/metrics"] = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})

	var prof *profiler.Continuous
	if cfg.ProfileDir != "" {
		prof, err = profiler.New(cfg.Profiler(), logger)
		if err != nil {
			return err
		}
	}

	listener, err := net.Listen("tcp", cfg.HTTPAddress())
	if err != nil {
		return err
	}
	srv, err := newServer(logger, listener, cfg, apiRegistry, handlers)
	if err != nil {
		_ = listener.Close()
		return err
	}

	logger.Info("serving API", "address", listener.Addr().String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Dispatch)
	if prof != nil {
		g.Go(func() error {
			return prof.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down API server")
		return srv.Shutdown()
	})
	return g.Wait()
}

// newServer mounts the VM handlers under /ext/surety and the node handlers
// under /ext/<name>.
func newServer(
	logger log.Logger,
	listener net.Listener,
	cfg config.Config,
	registerer prometheus.Registerer,
	handlers map[string]http.Handler,
) (server.Server, error) {
	srv, err := server.New(logger, listener, cfg.AllowedOrigins, cfg.ShutdownTimeout, registerer, server.HTTPConfig{
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	})
	if err != nil {
		return nil, err
	}
	for endpoint, handler := range handlers {
		switch endpoint {
		case "/health", "/metrics":
			err = srv.AddRoute(handler, endpoint[1:], "")
		default:
			err = srv.AddRoute(handler, api.ServiceName, endpoint)
		}
		if err != nil {
			return nil, err
		}
	}
	return srv, nil
}
