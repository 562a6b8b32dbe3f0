// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state persists airlines, policies, credit accounts and the
// operational flag for the Surety VM.
package state

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/luxfi/cache"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/ids"

	"github.com/luxfi/surety/vms/suretyvm/types"
)

var (
	ErrStateCorrupted = errors.New("state corrupted")

	prefixAirline   = []byte("airline")
	prefixPolicy    = []byte("policy")
	prefixFlight    = []byte("flight")
	prefixPassenger = []byte("passenger")
	prefixCredit    = []byte("credit")
	prefixRequest   = []byte("request")
	prefixWallet    = []byte("wallet")
	prefixMeta      = []byte("meta")

	keyOperational  = []byte("operational")
	keyConsortium   = []byte("consortium")
	keyAirlineCount = []byte("airlineCount")
	keyTotals       = []byte("totals")
	keyRequestNonce = []byte("requestNonce")
	keyInitialized  = []byte("initialized")
	keyLastBlock    = []byte("lastBlock")
)

// Config sizes the decoded-record caches.
type Config struct {
	AirlineCacheSize int
	PolicyCacheSize  int
}

// State is the explicit owned store of every durable record. Writes are
// buffered until Commit and discarded by Abort. State does no locking of its
// own; callers serialize writers.
type State struct {
	baseDB *versiondb.Database

	airlineDB   database.Database
	policyDB    database.Database
	flightDB    database.Database
	passengerDB database.Database
	creditDB    database.Database
	requestDB   database.Database
	walletDB    database.Database
	metaDB      database.Database

	airlineCache *cache.LRU[ids.ShortID, *types.Airline]
	policyCache  *cache.LRU[ids.ID, *types.Policy]
}

// New wraps db with a version layer and splits it into record prefixes.
func New(db database.Database, cfg Config) *State {
	baseDB := versiondb.New(db)
	return &State{
		baseDB:       baseDB,
		airlineDB:    prefixdb.New(prefixAirline, baseDB),
		policyDB:     prefixdb.New(prefixPolicy, baseDB),
		flightDB:     prefixdb.New(prefixFlight, baseDB),
		passengerDB:  prefixdb.New(prefixPassenger, baseDB),
		creditDB:     prefixdb.New(prefixCredit, baseDB),
		requestDB:    prefixdb.New(prefixRequest, baseDB),
		walletDB:     prefixdb.New(prefixWallet, baseDB),
		metaDB:       prefixdb.New(prefixMeta, baseDB),
		airlineCache: &cache.LRU[ids.ShortID, *types.Airline]{Size: max(cfg.AirlineCacheSize, 1)},
		policyCache:  &cache.LRU[ids.ID, *types.Policy]{Size: max(cfg.PolicyCacheSize, 1)},
	}
}

// IsInitialized reports whether genesis has been applied.
func (s *State) IsInitialized() (bool, error) {
	return s.metaDB.Has(keyInitialized)
}

// SetInitialized marks genesis as applied.
func (s *State) SetInitialized() error {
	return s.metaDB.Put(keyInitialized, nil)
}

// GetAirline returns a copy of the airline record or types.ErrNotFound.
func (s *State) GetAirline(addr ids.ShortID) (*types.Airline, error) {
	if a, ok := s.airlineCache.Get(addr); ok {
		return a.Clone(), nil
	}
	data, err := s.airlineDB.Get(addr[:])
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: airline %s", types.ErrNotFound, addr)
	}
	if err != nil {
		return nil, err
	}
	a := &types.Airline{}
	if _, err := Codec.Unmarshal(data, a); err != nil {
		return nil, fmt.Errorf("%w: airline %s: %w", ErrStateCorrupted, addr, err)
	}
	s.airlineCache.Put(addr, a)
	return a.Clone(), nil
}

// HasAirline reports whether a record exists for addr.
func (s *State) HasAirline(addr ids.ShortID) (bool, error) {
	if _, ok := s.airlineCache.Get(addr); ok {
		return true, nil
	}
	return s.airlineDB.Has(addr[:])
}

// PutAirline writes the airline record.
func (s *State) PutAirline(a *types.Airline) error {
	data, err := Codec.Marshal(CodecVersion, a)
	if err != nil {
		return err
	}
	if err := s.airlineDB.Put(a.Address[:], data); err != nil {
		return err
	}
	s.airlineCache.Put(a.Address, a.Clone())
	return nil
}

// Airlines returns every airline record in key order.
func (s *State) Airlines() ([]*types.Airline, error) {
	iter := s.airlineDB.NewIterator()
	defer iter.Release()

	var out []*types.Airline
	for iter.Next() {
		a := &types.Airline{}
		if _, err := Codec.Unmarshal(iter.Value(), a); err != nil {
			return nil, fmt.Errorf("%w: airline: %w", ErrStateCorrupted, err)
		}
		out = append(out, a)
	}
	return out, iter.Error()
}

// ConsortiumSize returns the number of Registered or Funded airlines.
func (s *State) ConsortiumSize() (uint64, error) {
	return s.getUint64(keyConsortium)
}

// SetConsortiumSize persists the consortium counter.
func (s *State) SetConsortiumSize(n uint64) error {
	return database.PutUInt64(s.metaDB, keyConsortium, n)
}

// AirlineCount returns the number of airline records in any state.
func (s *State) AirlineCount() (uint64, error) {
	return s.getUint64(keyAirlineCount)
}

// SetAirlineCount persists the airline record counter.
func (s *State) SetAirlineCount(n uint64) error {
	return database.PutUInt64(s.metaDB, keyAirlineCount, n)
}

// GetPolicy returns a copy of the policy or types.ErrNotFound.
func (s *State) GetPolicy(id ids.ID) (*types.Policy, error) {
	if p, ok := s.policyCache.Get(id); ok {
		c := *p
		return &c, nil
	}
	data, err := s.policyDB.Get(id[:])
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: policy %s", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	p := &types.Policy{}
	if _, err := Codec.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("%w: policy %s: %w", ErrStateCorrupted, id, err)
	}
	s.policyCache.Put(id, p)
	c := *p
	return &c, nil
}

// HasPolicy reports whether a policy with id exists.
func (s *State) HasPolicy(id ids.ID) (bool, error) {
	if _, ok := s.policyCache.Get(id); ok {
		return true, nil
	}
	return s.policyDB.Has(id[:])
}

// PutPolicy writes the policy and maintains the flight and passenger indices.
func (s *State) PutPolicy(p *types.Policy) error {
	data, err := Codec.Marshal(CodecVersion, p)
	if err != nil {
		return err
	}
	flightKey := p.Flight.Key()
	if err := s.policyDB.Put(p.ID[:], data); err != nil {
		return err
	}
	if err := s.flightDB.Put(indexKey(flightKey[:], p.ID), nil); err != nil {
		return err
	}
	if err := s.passengerDB.Put(indexKey(p.Passenger[:], p.ID), nil); err != nil {
		return err
	}
	c := *p
	s.policyCache.Put(p.ID, &c)
	return nil
}

// PoliciesByFlight returns every policy written for the flight key.
func (s *State) PoliciesByFlight(flightKey ids.ID) ([]*types.Policy, error) {
	return s.policiesByIndex(s.flightDB, flightKey[:])
}

// PoliciesByPassenger returns every policy held by the passenger.
func (s *State) PoliciesByPassenger(passenger ids.ShortID) ([]*types.Policy, error) {
	return s.policiesByIndex(s.passengerDB, passenger[:])
}

func (s *State) policiesByIndex(db database.Database, prefix []byte) ([]*types.Policy, error) {
	iter := db.NewIteratorWithPrefix(prefix)
	defer iter.Release()

	var policyIDs []ids.ID
	for iter.Next() {
		key := iter.Key()
		if len(key) != len(prefix)+ids.IDLen {
			return nil, fmt.Errorf("%w: index key length %d", ErrStateCorrupted, len(key))
		}
		policyID, err := ids.ToID(key[len(prefix):])
		if err != nil {
			return nil, err
		}
		policyIDs = append(policyIDs, policyID)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	policies := make([]*types.Policy, 0, len(policyIDs))
	for _, id := range policyIDs {
		p, err := s.GetPolicy(id)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, nil
}

// GetCreditAccount returns the passenger's account, zero valued if absent.
func (s *State) GetCreditAccount(passenger ids.ShortID) (*types.CreditAccount, error) {
	data, err := s.creditDB.Get(passenger[:])
	if errors.Is(err, database.ErrNotFound) {
		return &types.CreditAccount{Passenger: passenger}, nil
	}
	if err != nil {
		return nil, err
	}
	acc := &types.CreditAccount{}
	if _, err := Codec.Unmarshal(data, acc); err != nil {
		return nil, fmt.Errorf("%w: credit %s: %w", ErrStateCorrupted, passenger, err)
	}
	return acc, nil
}

// PutCreditAccount writes the passenger's account.
func (s *State) PutCreditAccount(acc *types.CreditAccount) error {
	data, err := Codec.Marshal(CodecVersion, acc)
	if err != nil {
		return err
	}
	return s.creditDB.Put(acc.Passenger[:], data)
}

// WalletBalance returns the value paid out to addr.
func (s *State) WalletBalance(addr ids.ShortID) (*uint256.Int, error) {
	data, err := s.walletDB.Get(addr[:])
	if errors.Is(err, database.ErrNotFound) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) != 32 {
		return nil, fmt.Errorf("%w: wallet %s length %d", ErrStateCorrupted, addr, len(data))
	}
	return new(uint256.Int).SetBytes32(data), nil
}

// CreditWallet adds amount to the value paid out to addr.
func (s *State) CreditWallet(addr ids.ShortID, amount *uint256.Int) error {
	balance, err := s.WalletBalance(addr)
	if err != nil {
		return err
	}
	balance, err = types.AddChecked(balance, amount)
	if err != nil {
		return err
	}
	data := balance.Bytes32()
	return s.walletDB.Put(addr[:], data[:])
}

// GetTotals returns the ledger-wide totals.
func (s *State) GetTotals() (*types.Totals, error) {
	data, err := s.metaDB.Get(keyTotals)
	if errors.Is(err, database.ErrNotFound) {
		return &types.Totals{}, nil
	}
	if err != nil {
		return nil, err
	}
	totals := &types.Totals{}
	if _, err := Codec.Unmarshal(data, totals); err != nil {
		return nil, fmt.Errorf("%w: totals: %w", ErrStateCorrupted, err)
	}
	return totals, nil
}

// PutTotals writes the ledger-wide totals.
func (s *State) PutTotals(totals *types.Totals) error {
	data, err := Codec.Marshal(CodecVersion, totals)
	if err != nil {
		return err
	}
	return s.metaDB.Put(keyTotals, data)
}

// IsOperational returns the operational flag. An unset flag reads as true.
func (s *State) IsOperational() (bool, error) {
	data, err := s.metaDB.Get(keyOperational)
	if errors.Is(err, database.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if len(data) != 1 {
		return false, fmt.Errorf("%w: operational flag length %d", ErrStateCorrupted, len(data))
	}
	return data[0] == 1, nil
}

// SetOperational persists the operational flag.
func (s *State) SetOperational(operational bool) error {
	var b byte
	if operational {
		b = 1
	}
	return s.metaDB.Put(keyOperational, []byte{b})
}

// GetRequest returns the oracle request or types.ErrNotFound.
func (s *State) GetRequest(id ids.ID) (*types.StatusRequest, error) {
	data, err := s.requestDB.Get(id[:])
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: request %s", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	req := &types.StatusRequest{}
	if _, err := Codec.Unmarshal(data, req); err != nil {
		return nil, fmt.Errorf("%w: request %s: %w", ErrStateCorrupted, id, err)
	}
	return req, nil
}

// PutRequest writes the oracle request.
func (s *State) PutRequest(req *types.StatusRequest) error {
	data, err := Codec.Marshal(CodecVersion, req)
	if err != nil {
		return err
	}
	return s.requestDB.Put(req.ID[:], data)
}

// Requests returns every oracle request.
func (s *State) Requests() ([]*types.StatusRequest, error) {
	iter := s.requestDB.NewIterator()
	defer iter.Release()

	var out []*types.StatusRequest
	for iter.Next() {
		req := &types.StatusRequest{}
		if _, err := Codec.Unmarshal(iter.Value(), req); err != nil {
			return nil, fmt.Errorf("%w: request: %w", ErrStateCorrupted, err)
		}
		out = append(out, req)
	}
	return out, iter.Error()
}

// NextRequestNonce returns the current request nonce and persists its successor.
func (s *State) NextRequestNonce() (uint64, error) {
	nonce, err := s.getUint64(keyRequestNonce)
	if err != nil {
		return 0, err
	}
	return nonce, database.PutUInt64(s.metaDB, keyRequestNonce, nonce+1)
}

// LastBlock returns the height and timestamp of the last accepted block, or
// zeros before the first block.
func (s *State) LastBlock() (uint64, uint64, error) {
	data, err := s.metaDB.Get(keyLastBlock)
	if errors.Is(err, database.ErrNotFound) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	if len(data) != 2*database.Uint64Size {
		return 0, 0, fmt.Errorf("%w: last block length %d", ErrStateCorrupted, len(data))
	}
	return binary.BigEndian.Uint64(data), binary.BigEndian.Uint64(data[database.Uint64Size:]), nil
}

// SetLastBlock persists the last accepted block.
func (s *State) SetLastBlock(height, timestamp uint64) error {
	data := make([]byte, 2*database.Uint64Size)
	binary.BigEndian.PutUint64(data, height)
	binary.BigEndian.PutUint64(data[database.Uint64Size:], timestamp)
	return s.metaDB.Put(keyLastBlock, data)
}

// Commit writes every buffered change to the underlying database atomically.
func (s *State) Commit() error {
	return s.baseDB.Commit()
}

// Abort discards every buffered change and drops cached records that may
// reflect them.
func (s *State) Abort() {
	s.baseDB.Abort()
	s.airlineCache.Flush()
	s.policyCache.Flush()
}

// Close closes the version layer. The underlying database is left open.
func (s *State) Close() error {
	return s.baseDB.Close()
}

func (s *State) getUint64(key []byte) (uint64, error) {
	n, err := database.GetUInt64(s.metaDB, key)
	if errors.Is(err, database.ErrNotFound) {
		return 0, nil
	}
	return n, err
}

func indexKey(prefix []byte, id ids.ID) []byte {
	key := make([]byte, 0, len(prefix)+ids.IDLen)
	key = append(key, prefix...)
	return append(key, id[:]...)
}
