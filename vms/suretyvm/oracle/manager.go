// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package oracle tracks flight status requests handed to the off-chain
// oracle collaborator and turns qualifying verdicts into delay credits.
package oracle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/btree"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	lru "github.com/hashicorp/golang-lru"

	"github.com/luxfi/surety/utils/timer/mockable"
	"github.com/luxfi/surety/vms/suretyvm/types"
)

const btreeDegree = 32

var errNotOpen = errors.New("request is not open")

// Store persists status requests.
type Store interface {
	GetRequest(ids.ID) (*types.StatusRequest, error)
	PutRequest(*types.StatusRequest) error
	Requests() ([]*types.StatusRequest, error)
	NextRequestNonce() (uint64, error)
}

// Airlines answers whether an airline may be asked about.
type Airlines interface {
	IsRegistered(ids.ShortID) bool
}

// Crediter consumes qualifying verdicts.
type Crediter interface {
	CreditDelay(types.Flight) ([]*types.Policy, error)
}

// Gate rejects mutations while the system is paused.
type Gate interface {
	Check() error
}

//go:generate go run go.uber.org/mock/mockgen -package=${GOPACKAGE}mock -destination=${GOPACKAGE}mock/dispatcher.go -mock_names=Dispatcher=Dispatcher . Dispatcher

// Dispatcher delivers a status request to the oracle collaborator.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *types.StatusRequest) error
}

// Config controls request expiry, the replay guard and the oracle set.
type Config struct {
	RequestTTL        time.Duration
	ResolvedCacheSize int
	Oracles           []ids.ShortID
}

// Resolution is the outcome of an oracle response.
type Resolution struct {
	Request  *types.StatusRequest
	Credited []*types.Policy
}

type openEntry struct {
	openedAt uint64
	id       ids.ID
}

func lessOpen(a, b openEntry) bool {
	if a.openedAt != b.openedAt {
		return a.openedAt < b.openedAt
	}
	return bytes.Compare(a.id[:], b.id[:]) < 0
}

// Manager records status requests and resolves them. The open-request index
// and the replay guard are in-memory views of the store; Rebuild resyncs them
// after a discarded write.
type Manager struct {
	store      Store
	airlines   Airlines
	crediter   Crediter
	gate       Gate
	dispatcher Dispatcher
	cfg        Config
	clock      *mockable.Clock
	log        log.Logger

	oracles  map[ids.ShortID]struct{}
	open     *btree.BTreeG[openEntry]
	resolved *lru.Cache
}

// NewManager builds a manager. A nil dispatcher leaves requests to be polled
// through OpenRequests.
func NewManager(
	store Store,
	airlines Airlines,
	crediter Crediter,
	gate Gate,
	dispatcher Dispatcher,
	cfg Config,
	clock *mockable.Clock,
	logger log.Logger,
) (*Manager, error) {
	resolved, err := lru.New(max(cfg.ResolvedCacheSize, 1))
	if err != nil {
		return nil, err
	}
	oracles := make(map[ids.ShortID]struct{}, len(cfg.Oracles))
	for _, o := range cfg.Oracles {
		oracles[o] = struct{}{}
	}
	m := &Manager{
		store:      store,
		airlines:   airlines,
		crediter:   crediter,
		gate:       gate,
		dispatcher: dispatcher,
		cfg:        cfg,
		clock:      clock,
		log:        logger,
		oracles:    oracles,
		resolved:   resolved,
	}
	return m, m.Rebuild()
}

// IsOracle reports whether addr may submit status responses.
func (m *Manager) IsOracle(addr ids.ShortID) bool {
	_, ok := m.oracles[addr]
	return ok
}

// SetDispatcher replaces the request dispatcher.
func (m *Manager) SetDispatcher(d Dispatcher) {
	m.dispatcher = d
}

// RequestStatus opens a status request for flight. The request is not
// dispatched; call Dispatch once it has been committed.
func (m *Manager) RequestStatus(flight types.Flight, requester ids.ShortID) (*types.StatusRequest, error) {
	if err := m.gate.Check(); err != nil {
		return nil, err
	}
	if flight.Code == "" {
		return nil, fmt.Errorf("%w: flight code required", types.ErrInvalidArgument)
	}
	if !m.airlines.IsRegistered(flight.Airline) {
		return nil, fmt.Errorf("%w: airline %s is not registered", types.ErrNotFound, flight.Airline)
	}

	nonce, err := m.store.NextRequestNonce()
	if err != nil {
		return nil, err
	}
	req := &types.StatusRequest{
		ID:        types.RequestID(flight.Key(), nonce),
		Flight:    flight,
		Requester: requester,
		Status:    types.RequestOpen,
		OpenedAt:  m.clock.Unix(),
	}
	if err := m.store.PutRequest(req); err != nil {
		return nil, err
	}
	m.open.ReplaceOrInsert(openEntry{openedAt: req.OpenedAt, id: req.ID})

	m.log.Info("flight status requested",
		"requestID", req.ID,
		"airline", flight.Airline,
		"flight", flight.Code,
		"departure", flight.Departure,
	)
	return req, nil
}

// Dispatch hands a committed request to the oracle collaborator. It is a
// no-op without a dispatcher.
func (m *Manager) Dispatch(ctx context.Context, req *types.StatusRequest) error {
	if m.dispatcher == nil {
		return nil
	}
	if err := m.dispatcher.Dispatch(ctx, req); err != nil {
		return fmt.Errorf("dispatch request %s: %w", req.ID, err)
	}
	return nil
}

// SubmitResponse closes an open request with the oracle's verdict. A
// qualifying verdict credits every active policy on the flight.
func (m *Manager) SubmitResponse(requestID ids.ID, oracle ids.ShortID, code types.StatusCode) (*Resolution, error) {
	if err := m.gate.Check(); err != nil {
		return nil, err
	}
	if !code.Valid() {
		return nil, fmt.Errorf("%w: status code %d", types.ErrInvalidArgument, code)
	}
	if m.resolved.Contains(requestID) {
		return nil, fmt.Errorf("%w: request %s: %w", types.ErrNotFound, requestID, errNotOpen)
	}

	req, err := m.store.GetRequest(requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != types.RequestOpen {
		return nil, fmt.Errorf("%w: request %s is %s: %w", types.ErrNotFound, requestID, req.Status, errNotOpen)
	}

	req.Status = types.RequestResolved
	req.Code = code
	req.ResolvedAt = m.clock.Unix()
	if err := m.store.PutRequest(req); err != nil {
		return nil, err
	}

	res := &Resolution{Request: req}
	if code.Qualifying() {
		res.Credited, err = m.crediter.CreditDelay(req.Flight)
		if err != nil {
			return nil, err
		}
	}

	m.open.Delete(openEntry{openedAt: req.OpenedAt, id: req.ID})
	m.resolved.Add(requestID, code)

	m.log.Info("flight status resolved",
		"requestID", requestID,
		"oracle", oracle,
		"status", code,
		"credited", len(res.Credited),
	)
	return res, nil
}

// Prune expires open requests older than the configured TTL.
func (m *Manager) Prune() ([]*types.StatusRequest, error) {
	if err := m.gate.Check(); err != nil {
		return nil, err
	}
	if m.cfg.RequestTTL <= 0 {
		return nil, nil
	}

	now := m.clock.Unix()
	ttl := uint64(m.cfg.RequestTTL / time.Second)
	var stale []openEntry
	m.open.Ascend(func(e openEntry) bool {
		if e.openedAt+ttl > now {
			return false
		}
		stale = append(stale, e)
		return true
	})

	var expired []*types.StatusRequest
	for _, e := range stale {
		req, err := m.store.GetRequest(e.id)
		if err != nil && !errors.Is(err, types.ErrNotFound) {
			return nil, err
		}
		if err == nil && req.Status == types.RequestOpen {
			req.Status = types.RequestExpired
			req.ResolvedAt = now
			if err := m.store.PutRequest(req); err != nil {
				return nil, err
			}
			expired = append(expired, req)
		}
		m.open.Delete(e)
	}
	if len(expired) > 0 {
		m.log.Info("expired flight status requests", "count", len(expired))
	}
	return expired, nil
}

// GetRequest returns a request by identity.
func (m *Manager) GetRequest(id ids.ID) (*types.StatusRequest, error) {
	return m.store.GetRequest(id)
}

// OpenRequests returns the open requests, oldest first.
func (m *Manager) OpenRequests() ([]*types.StatusRequest, error) {
	var requestIDs []ids.ID
	m.open.Ascend(func(e openEntry) bool {
		requestIDs = append(requestIDs, e.id)
		return true
	})
	out := make([]*types.StatusRequest, 0, len(requestIDs))
	for _, id := range requestIDs {
		req, err := m.store.GetRequest(id)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

// OpenCount returns the number of open requests.
func (m *Manager) OpenCount() int {
	return m.open.Len()
}

// Rebuild reloads the open-request index from the store and clears the
// replay guard.
func (m *Manager) Rebuild() error {
	reqs, err := m.store.Requests()
	if err != nil {
		return err
	}
	open := btree.NewG(btreeDegree, lessOpen)
	for _, req := range reqs {
		if req.Status == types.RequestOpen {
			open.ReplaceOrInsert(openEntry{openedAt: req.OpenedAt, id: req.ID})
		}
	}
	m.open = open
	m.resolved.Purge()
	return nil
}
