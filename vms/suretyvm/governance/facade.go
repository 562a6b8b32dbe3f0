// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package governance exposes every surety operation behind one authorization
// table and one writer lock. Each mutation commits as a unit or not at all.
package governance

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/trace"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/luxfi/surety/utils/timer/mockable"
	"github.com/luxfi/surety/vms/suretyvm/airline"
	"github.com/luxfi/surety/vms/suretyvm/events"
	"github.com/luxfi/surety/vms/suretyvm/insurance"
	"github.com/luxfi/surety/vms/suretyvm/metrics"
	"github.com/luxfi/surety/vms/suretyvm/operational"
	"github.com/luxfi/surety/vms/suretyvm/oracle"
	"github.com/luxfi/surety/vms/suretyvm/state"
	"github.com/luxfi/surety/vms/suretyvm/types"
)

const tracerName = "github.com/luxfi/surety/vms/suretyvm/governance"

var errNilState = errors.New("state is required")

// Config holds the rules of every component.
type Config struct {
	Controller ids.ShortID
	Registry   airline.Config
	Ledger     insurance.Config
	Oracle     oracle.Config
}

// Deps are the optional collaborators of the facade. Zero values fall back
// to in-state wallets, no dispatch, no journal, no metrics and the global
// tracer.
type Deps struct {
	Transferer insurance.Transferer
	Dispatcher oracle.Dispatcher
	Sink       events.Sink
	Metrics    *metrics.Metrics
	Tracer     trace.Tracer
	Clock      *mockable.Clock
	Log        log.Logger
}

// Facade serializes mutations over the shared state.
type Facade struct {
	lock sync.RWMutex

	state    *state.State
	switcher *operational.Switch
	registry *airline.Registry
	ledger   *insurance.Ledger
	oracle   *oracle.Manager

	sink    events.Sink
	metrics *metrics.Metrics
	tracer  trace.Tracer
	clock   *mockable.Clock
	log     log.Logger
}

// globalTracer adapts the process-wide otel tracer. Its provider is owned by
// whoever installed it, so Close is a no-op.
type globalTracer struct {
	oteltrace.Tracer
}

func (globalTracer) Close() error {
	return nil
}

// New wires the components over st.
func New(st *state.State, cfg Config, deps Deps) (*Facade, error) {
	if st == nil {
		return nil, errNilState
	}
	if deps.Clock == nil {
		deps.Clock = &mockable.Clock{}
	}
	if deps.Log == nil {
		deps.Log = log.NoLog{}
	}
	if deps.Tracer == nil {
		deps.Tracer = globalTracer{otel.Tracer(tracerName)}
	}
	if deps.Transferer == nil {
		deps.Transferer = insurance.NewWalletTransferer(st)
	}

	switcher := operational.New(st, cfg.Controller, deps.Log)
	registry := airline.NewRegistry(st, switcher, cfg.Registry, deps.Clock, deps.Log)
	ledger := insurance.NewLedger(st, registry, switcher, deps.Transferer, cfg.Ledger, deps.Clock, deps.Log)
	manager, err := oracle.NewManager(st, registry, ledger, switcher, deps.Dispatcher, cfg.Oracle, deps.Clock, deps.Log)
	if err != nil {
		return nil, err
	}

	f := &Facade{
		state:    st,
		switcher: switcher,
		registry: registry,
		ledger:   ledger,
		oracle:   manager,
		sink:     deps.Sink,
		metrics:  deps.Metrics,
		tracer:   deps.Tracer,
		clock:    deps.Clock,
		log:      deps.Log,
	}
	f.refreshGauges()
	return f, nil
}

// SetDispatcher replaces the oracle dispatcher.
func (f *Facade) SetDispatcher(d oracle.Dispatcher) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.oracle.SetDispatcher(d)
}

// SetSink replaces the event sink.
func (f *Facade) SetSink(s events.Sink) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.sink = s
}

// Clock returns the clock stamping records.
func (f *Facade) Clock() *mockable.Clock {
	return f.clock
}

// mutate runs fn as one atomic operation on behalf of caller. The write set
// is committed only when authorization and fn both succeed. Events are
// delivered after the commit.
func (f *Facade) mutate(
	ctx context.Context,
	op Operation,
	caller ids.ShortID,
	fn func(context.Context) ([]events.Event, error),
) error {
	ctx, span := f.tracer.Start(ctx, "surety."+string(op), oteltrace.WithAttributes(
		attribute.Stringer("caller", caller),
	))
	defer span.End()

	f.lock.Lock()
	defer f.lock.Unlock()

	evs, err := f.apply(ctx, op, caller, fn)
	if f.metrics != nil {
		f.metrics.Observe(string(op), err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, types.KindOf(err).String())
		f.log.Debug("operation failed",
			"op", op,
			"caller", caller,
			"error", err,
		)
		return err
	}

	f.refreshGauges()
	f.emit(ctx, evs)
	return nil
}

func (f *Facade) apply(
	ctx context.Context,
	op Operation,
	caller ids.ShortID,
	fn func(context.Context) ([]events.Event, error),
) ([]events.Event, error) {
	if op != OpSetOperatingStatus {
		if err := f.switcher.Check(); err != nil {
			return nil, err
		}
	}
	if err := f.authorize(op, caller); err != nil {
		return nil, err
	}

	evs, err := fn(ctx)
	if err == nil {
		err = f.state.Commit()
	}
	if err != nil {
		f.state.Abort()
		if rebuildErr := f.oracle.Rebuild(); rebuildErr != nil {
			f.log.Error("failed to rebuild oracle index", "error", rebuildErr)
		}
		return nil, err
	}
	return evs, nil
}

func (f *Facade) emit(ctx context.Context, evs []events.Event) {
	if f.sink == nil || len(evs) == 0 {
		return
	}
	if err := f.sink.Record(ctx, evs); err != nil {
		f.log.Warn("failed to journal events",
			"count", len(evs),
			"error", err,
		)
	}
}

func (f *Facade) refreshGauges() {
	if f.metrics == nil {
		return
	}
	f.metrics.SetOperational(f.switcher.IsOperational())
	f.metrics.SetOpenRequests(f.oracle.OpenCount())

	all, err := f.registry.All()
	if err != nil {
		f.log.Warn("failed to count airlines", "error", err)
		return
	}
	counts := make(map[types.AirlineStatus]int, 3)
	for _, a := range all {
		counts[a.Status]++
	}
	f.metrics.SetAirlines(counts)
}

func (f *Facade) event(kind events.Kind, actor ids.ShortID, subject string) events.Event {
	return events.Event{
		Kind:    kind,
		Time:    f.clock.Unix(),
		Actor:   actor,
		Subject: subject,
	}
}

// SetOperatingStatus turns mutations on or off.
func (f *Facade) SetOperatingStatus(ctx context.Context, caller ids.ShortID, operational bool) error {
	return f.mutate(ctx, OpSetOperatingStatus, caller, func(context.Context) ([]events.Event, error) {
		if f.switcher.IsOperational() == operational {
			return nil, nil
		}
		if err := f.switcher.SetOperationalStatus(operational, caller); err != nil {
			return nil, err
		}
		ev := f.event(events.OperationalChanged, caller, caller.String())
		ev.Attrs = map[string]string{"operational": strconv.FormatBool(operational)}
		return []events.Event{ev}, nil
	})
}

// RegisterAirline nominates addr on behalf of caller.
func (f *Facade) RegisterAirline(ctx context.Context, caller ids.ShortID, name string, addr ids.ShortID) (*types.Airline, error) {
	var out *types.Airline
	err := f.mutate(ctx, OpRegisterAirline, caller, func(context.Context) ([]events.Event, error) {
		a, err := f.registry.Nominate(name, addr, caller)
		if err != nil {
			return nil, err
		}
		out = a

		nominated := f.event(events.AirlineNominated, caller, addr.String())
		nominated.Attrs = map[string]string{"name": name}
		evs := []events.Event{nominated}
		if a.Status == types.AirlineRegistered {
			evs = append(evs, f.event(events.AirlineRegistered, caller, addr.String()))
		}
		return evs, nil
	})
	return out, err
}

// VoteForAirline records caller's vote for the pending airline addr.
func (f *Facade) VoteForAirline(ctx context.Context, caller ids.ShortID, addr ids.ShortID) (*types.Airline, error) {
	var out *types.Airline
	err := f.mutate(ctx, OpVoteForAirline, caller, func(context.Context) ([]events.Event, error) {
		a, err := f.registry.Vote(addr, caller)
		if err != nil {
			return nil, err
		}
		out = a

		vote := f.event(events.VoteCast, caller, addr.String())
		vote.Attrs = map[string]string{"votes": strconv.Itoa(len(a.Votes))}
		evs := []events.Event{vote}
		if a.Status == types.AirlineRegistered {
			evs = append(evs, f.event(events.AirlineRegistered, caller, addr.String()))
		}
		return evs, nil
	})
	return out, err
}

// FundAirline deposits amount into addr's funding balance.
func (f *Facade) FundAirline(ctx context.Context, caller ids.ShortID, addr ids.ShortID, amount *uint256.Int) (*types.Airline, error) {
	var out *types.Airline
	err := f.mutate(ctx, OpFundAirline, caller, func(context.Context) ([]events.Event, error) {
		a, err := f.registry.Fund(addr, amount)
		if err != nil {
			return nil, err
		}
		out = a

		ev := f.event(events.AirlineFunded, caller, addr.String())
		ev.Amount = types.FormatUnits(amount)
		ev.Attrs = map[string]string{"funding": types.FormatUnits(&a.Funding)}
		return []events.Event{ev}, nil
	})
	return out, err
}

// BuyInsurance insures caller on flight.
func (f *Facade) BuyInsurance(ctx context.Context, caller ids.ShortID, flight types.Flight, amount *uint256.Int) (*types.Policy, error) {
	var out *types.Policy
	err := f.mutate(ctx, OpBuyInsurance, caller, func(context.Context) ([]events.Event, error) {
		p, err := f.ledger.Purchase(flight, caller, amount)
		if err != nil {
			return nil, err
		}
		out = p

		ev := f.event(events.PolicyPurchased, caller, p.ID.String())
		ev.Amount = types.FormatUnits(amount)
		ev.Attrs = flightAttrs(flight)
		return []events.Event{ev}, nil
	})
	if err == nil && f.metrics != nil {
		f.metrics.PolicyPurchased()
	}
	return out, err
}

// RequestFlightStatus asks the oracles for flight's status. The request is
// dispatched only after it has been committed; a failed dispatch leaves it
// open for oracles polling OpenRequests.
func (f *Facade) RequestFlightStatus(ctx context.Context, caller ids.ShortID, flight types.Flight) (*types.StatusRequest, error) {
	var out *types.StatusRequest
	err := f.mutate(ctx, OpRequestFlightStatus, caller, func(context.Context) ([]events.Event, error) {
		req, err := f.oracle.RequestStatus(flight, caller)
		if err != nil {
			return nil, err
		}
		out = req

		ev := f.event(events.StatusRequested, caller, req.ID.String())
		ev.Attrs = flightAttrs(flight)
		return []events.Event{ev}, nil
	})
	if err != nil {
		return nil, err
	}

	f.lock.RLock()
	err = f.oracle.Dispatch(ctx, out)
	f.lock.RUnlock()
	if err != nil {
		f.log.Warn("failed to dispatch status request",
			"requestID", out.ID,
			"error", err,
		)
	}
	return out, nil
}

// SubmitOracleResponse applies an oracle verdict.
func (f *Facade) SubmitOracleResponse(ctx context.Context, caller ids.ShortID, requestID ids.ID, code types.StatusCode) (*oracle.Resolution, error) {
	var out *oracle.Resolution
	err := f.mutate(ctx, OpSubmitOracleResponse, caller, func(context.Context) ([]events.Event, error) {
		res, err := f.oracle.SubmitResponse(requestID, caller, code)
		if err != nil {
			return nil, err
		}
		out = res

		resolved := f.event(events.StatusResolved, caller, requestID.String())
		resolved.Attrs = map[string]string{
			"status":     code.String(),
			"qualifying": strconv.FormatBool(code.Qualifying()),
		}
		return append([]events.Event{resolved}, f.creditEvents(caller, res.Credited)...), nil
	})
	if err == nil && f.metrics != nil {
		f.metrics.PoliciesCredited(len(out.Credited))
	}
	return out, err
}

// CreditDelay credits every active policy on flight.
func (f *Facade) CreditDelay(ctx context.Context, caller ids.ShortID, flight types.Flight) ([]*types.Policy, error) {
	var out []*types.Policy
	err := f.mutate(ctx, OpCreditDelay, caller, func(context.Context) ([]events.Event, error) {
		credited, err := f.ledger.CreditDelay(flight)
		if err != nil {
			return nil, err
		}
		out = credited
		return f.creditEvents(caller, credited), nil
	})
	if err == nil && f.metrics != nil {
		f.metrics.PoliciesCredited(len(out))
	}
	return out, err
}

// PruneRequests expires stale status requests.
func (f *Facade) PruneRequests(ctx context.Context, caller ids.ShortID) ([]*types.StatusRequest, error) {
	var out []*types.StatusRequest
	err := f.mutate(ctx, OpPruneRequests, caller, func(context.Context) ([]events.Event, error) {
		expired, err := f.oracle.Prune()
		if err != nil {
			return nil, err
		}
		out = expired

		evs := make([]events.Event, 0, len(expired))
		for _, req := range expired {
			evs = append(evs, f.event(events.StatusExpired, caller, req.ID.String()))
		}
		return evs, nil
	})
	return out, err
}

// WithdrawCredit pays out caller's balance.
func (f *Facade) WithdrawCredit(ctx context.Context, caller ids.ShortID) (*uint256.Int, error) {
	var out *uint256.Int
	err := f.mutate(ctx, OpWithdrawCredit, caller, func(ctx context.Context) ([]events.Event, error) {
		amount, err := f.ledger.Withdraw(ctx, caller)
		if err != nil {
			return nil, err
		}
		out = amount

		ev := f.event(events.CreditWithdrawn, caller, caller.String())
		ev.Amount = types.FormatUnits(amount)
		return []events.Event{ev}, nil
	})
	if err == nil && f.metrics != nil {
		f.metrics.Withdrawn()
	}
	return out, err
}

func (f *Facade) creditEvents(caller ids.ShortID, credited []*types.Policy) []events.Event {
	evs := make([]events.Event, 0, len(credited))
	for _, p := range credited {
		ev := f.event(events.PolicyCredited, caller, p.ID.String())
		ev.Amount = types.FormatUnits(&p.Payout)
		ev.Attrs = map[string]string{"passenger": p.Passenger.String()}
		evs = append(evs, ev)
	}
	return evs
}

func flightAttrs(flight types.Flight) map[string]string {
	return map[string]string{
		"airline":   flight.Airline.String(),
		"flight":    flight.Code,
		"departure": strconv.FormatUint(flight.Departure, 10),
	}
}
