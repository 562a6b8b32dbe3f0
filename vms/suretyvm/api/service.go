// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package api serves the surety JSON-RPC service.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/holiman/uint256"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/utils/json"

	"github.com/luxfi/surety/vms/suretyvm/oracle"
	"github.com/luxfi/surety/vms/suretyvm/types"
)

// Backend is the operation surface served over RPC.
type Backend interface {
	IsOperational() bool
	SetOperatingStatus(ctx context.Context, caller ids.ShortID, operational bool) error
	RegisterAirline(ctx context.Context, caller ids.ShortID, name string, addr ids.ShortID) (*types.Airline, error)
	VoteForAirline(ctx context.Context, caller ids.ShortID, addr ids.ShortID) (*types.Airline, error)
	FundAirline(ctx context.Context, caller ids.ShortID, addr ids.ShortID, amount *uint256.Int) (*types.Airline, error)
	BuyInsurance(ctx context.Context, caller ids.ShortID, flight types.Flight, amount *uint256.Int) (*types.Policy, error)
	RequestFlightStatus(ctx context.Context, caller ids.ShortID, flight types.Flight) (*types.StatusRequest, error)
	SubmitOracleResponse(ctx context.Context, caller ids.ShortID, requestID ids.ID, code types.StatusCode) (*oracle.Resolution, error)
	CreditDelay(ctx context.Context, caller ids.ShortID, flight types.Flight) ([]*types.Policy, error)
	WithdrawCredit(ctx context.Context, caller ids.ShortID) (*uint256.Int, error)

	IsAirlineRegistered(ids.ShortID) bool
	IsAirlineFunded(ids.ShortID) bool
	IsAirlinePending(ids.ShortID) bool
	GetAirline(ids.ShortID) (*types.Airline, error)
	ConsortiumSize() (uint64, error)
	GetPolicy(ids.ID) (*types.Policy, error)
	GetPolicies(ids.ShortID) ([]*types.Policy, error)
	GetAccount(ids.ShortID) (*types.CreditAccount, error)
	GetRequest(ids.ID) (*types.StatusRequest, error)
	Totals() (*types.Totals, error)
}

// Error carries the caller-visible kind of a failed call.
type Error struct {
	Kind types.Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: types.KindOf(err), Err: err}
}

// Service is the "surety" JSON-RPC service.
type Service struct {
	backend Backend
	log     log.Logger
}

func NewService(backend Backend, logger log.Logger) *Service {
	return &Service{
		backend: backend,
		log:     logger,
	}
}

func requireCaller(r *http.Request) (ids.ShortID, error) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		return ids.ShortEmpty, wrap(fmt.Errorf("%w: bearer token required", types.ErrUnauthorized))
	}
	return caller, nil
}

func parseAddress(field, s string) (ids.ShortID, error) {
	addr, err := ids.ShortFromString(s)
	if err != nil {
		return ids.ShortEmpty, wrap(fmt.Errorf("%w: %s: %w", types.ErrInvalidArgument, field, err))
	}
	return addr, nil
}

func parseID(field, s string) (ids.ID, error) {
	id, err := ids.FromString(s)
	if err != nil {
		return ids.Empty, wrap(fmt.Errorf("%w: %s: %w", types.ErrInvalidArgument, field, err))
	}
	return id, nil
}

func parseAmount(s string) (*uint256.Int, error) {
	amount, err := types.ParseUnits(s)
	if err != nil {
		return nil, wrap(err)
	}
	return amount, nil
}

// FlightArgs identifies a flight.
type FlightArgs struct {
	Airline   string      `json:"airline"`
	Flight    string      `json:"flight"`
	Departure json.Uint64 `json:"departure"`
}

func (a *FlightArgs) parse() (types.Flight, error) {
	addr, err := parseAddress("airline", a.Airline)
	if err != nil {
		return types.Flight{}, err
	}
	return types.Flight{Airline: addr, Code: a.Flight, Departure: uint64(a.Departure)}, nil
}

type EmptyArgs struct{}

type AddressArgs struct {
	Address string `json:"address"`
}

type BoolReply struct {
	Value bool `json:"value"`
}

type IsOperationalReply struct {
	Operational bool `json:"operational"`
}

func (s *Service) IsOperational(_ *http.Request, _ *EmptyArgs, reply *IsOperationalReply) error {
	reply.Operational = s.backend.IsOperational()
	return nil
}

type SetOperatingStatusArgs struct {
	Operational bool `json:"operational"`
}

func (s *Service) SetOperatingStatus(r *http.Request, args *SetOperatingStatusArgs, reply *IsOperationalReply) error {
	caller, err := requireCaller(r)
	if err != nil {
		return err
	}
	if err := s.backend.SetOperatingStatus(r.Context(), caller, args.Operational); err != nil {
		return wrap(err)
	}
	reply.Operational = s.backend.IsOperational()
	return nil
}

type RegisterAirlineArgs struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type AirlineReply struct {
	Airline Airline `json:"airline"`
}

func (s *Service) RegisterAirline(r *http.Request, args *RegisterAirlineArgs, reply *AirlineReply) error {
	caller, err := requireCaller(r)
	if err != nil {
		return err
	}
	addr, err := parseAddress("address", args.Address)
	if err != nil {
		return err
	}
	a, err := s.backend.RegisterAirline(r.Context(), caller, args.Name, addr)
	if err != nil {
		return wrap(err)
	}
	reply.Airline = newAirline(a)
	return nil
}

type VoteForAirlineArgs struct {
	Airline string `json:"airline"`
}

func (s *Service) VoteForAirline(r *http.Request, args *VoteForAirlineArgs, reply *AirlineReply) error {
	caller, err := requireCaller(r)
	if err != nil {
		return err
	}
	addr, err := parseAddress("airline", args.Airline)
	if err != nil {
		return err
	}
	a, err := s.backend.VoteForAirline(r.Context(), caller, addr)
	if err != nil {
		return wrap(err)
	}
	reply.Airline = newAirline(a)
	return nil
}

type FundAirlineArgs struct {
	Airline string `json:"airline"`
	// Amount is in whole units, e.g. "10" or "12.5".
	Amount string `json:"amount"`
}

func (s *Service) FundAirline(r *http.Request, args *FundAirlineArgs, reply *AirlineReply) error {
	caller, err := requireCaller(r)
	if err != nil {
		return err
	}
	addr, err := parseAddress("airline", args.Airline)
	if err != nil {
		return err
	}
	amount, err := parseAmount(args.Amount)
	if err != nil {
		return err
	}
	a, err := s.backend.FundAirline(r.Context(), caller, addr, amount)
	if err != nil {
		return wrap(err)
	}
	reply.Airline = newAirline(a)
	return nil
}

func (s *Service) IsAirlineRegistered(_ *http.Request, args *AddressArgs, reply *BoolReply) error {
	addr, err := parseAddress("address", args.Address)
	if err != nil {
		return err
	}
	reply.Value = s.backend.IsAirlineRegistered(addr)
	return nil
}

func (s *Service) IsAirlineFunded(_ *http.Request, args *AddressArgs, reply *BoolReply) error {
	addr, err := parseAddress("address", args.Address)
	if err != nil {
		return err
	}
	reply.Value = s.backend.IsAirlineFunded(addr)
	return nil
}

func (s *Service) IsAirlinePending(_ *http.Request, args *AddressArgs, reply *BoolReply) error {
	addr, err := parseAddress("address", args.Address)
	if err != nil {
		return err
	}
	reply.Value = s.backend.IsAirlinePending(addr)
	return nil
}

func (s *Service) GetAirline(_ *http.Request, args *AddressArgs, reply *AirlineReply) error {
	addr, err := parseAddress("address", args.Address)
	if err != nil {
		return err
	}
	a, err := s.backend.GetAirline(addr)
	if err != nil {
		return wrap(err)
	}
	reply.Airline = newAirline(a)
	return nil
}

type BuyArgs struct {
	FlightArgs
	// Amount is in whole units, at most the insurance cap.
	Amount string `json:"amount"`
}

type PolicyReply struct {
	Policy Policy `json:"policy"`
}

// Buy insures the caller on a flight.
func (s *Service) Buy(r *http.Request, args *BuyArgs, reply *PolicyReply) error {
	caller, err := requireCaller(r)
	if err != nil {
		return err
	}
	flight, err := args.FlightArgs.parse()
	if err != nil {
		return err
	}
	amount, err := parseAmount(args.Amount)
	if err != nil {
		return err
	}
	p, err := s.backend.BuyInsurance(r.Context(), caller, flight, amount)
	if err != nil {
		return wrap(err)
	}
	reply.Policy = newPolicy(p)
	return nil
}

type GetPolicyArgs struct {
	PolicyID string `json:"policyID"`
}

func (s *Service) GetPolicy(_ *http.Request, args *GetPolicyArgs, reply *PolicyReply) error {
	id, err := parseID("policyID", args.PolicyID)
	if err != nil {
		return err
	}
	p, err := s.backend.GetPolicy(id)
	if err != nil {
		return wrap(err)
	}
	reply.Policy = newPolicy(p)
	return nil
}

type GetPoliciesArgs struct {
	Passenger string `json:"passenger"`
}

type PoliciesReply struct {
	Policies []Policy `json:"policies"`
}

func (s *Service) GetPolicies(_ *http.Request, args *GetPoliciesArgs, reply *PoliciesReply) error {
	passenger, err := parseAddress("passenger", args.Passenger)
	if err != nil {
		return err
	}
	policies, err := s.backend.GetPolicies(passenger)
	if err != nil {
		return wrap(err)
	}
	reply.Policies = newPolicies(policies)
	return nil
}

type RequestReply struct {
	Request StatusRequest `json:"request"`
}

// FetchFlightStatus opens an oracle request for a flight.
func (s *Service) FetchFlightStatus(r *http.Request, args *FlightArgs, reply *RequestReply) error {
	caller, err := requireCaller(r)
	if err != nil {
		return err
	}
	flight, err := args.parse()
	if err != nil {
		return err
	}
	req, err := s.backend.RequestFlightStatus(r.Context(), caller, flight)
	if err != nil {
		return wrap(err)
	}
	reply.Request = newStatusRequest(req)
	return nil
}

type GetRequestArgs struct {
	RequestID string `json:"requestID"`
}

func (s *Service) GetRequest(_ *http.Request, args *GetRequestArgs, reply *RequestReply) error {
	id, err := parseID("requestID", args.RequestID)
	if err != nil {
		return err
	}
	req, err := s.backend.GetRequest(id)
	if err != nil {
		return wrap(err)
	}
	reply.Request = newStatusRequest(req)
	return nil
}

type SubmitOracleResponseArgs struct {
	RequestID string `json:"requestID"`
	Status    uint8  `json:"status"`
}

type SubmitOracleResponseReply struct {
	Request  StatusRequest `json:"request"`
	Credited []Policy      `json:"credited"`
}

func (s *Service) SubmitOracleResponse(r *http.Request, args *SubmitOracleResponseArgs, reply *SubmitOracleResponseReply) error {
	caller, err := requireCaller(r)
	if err != nil {
		return err
	}
	id, err := parseID("requestID", args.RequestID)
	if err != nil {
		return err
	}
	res, err := s.backend.SubmitOracleResponse(r.Context(), caller, id, types.StatusCode(args.Status))
	if err != nil {
		return wrap(err)
	}
	reply.Request = newStatusRequest(res.Request)
	reply.Credited = newPolicies(res.Credited)
	return nil
}

type CreditDelayReply struct {
	Credited []Policy `json:"credited"`
}

func (s *Service) CreditDelay(r *http.Request, args *FlightArgs, reply *CreditDelayReply) error {
	caller, err := requireCaller(r)
	if err != nil {
		return err
	}
	flight, err := args.parse()
	if err != nil {
		return err
	}
	credited, err := s.backend.CreditDelay(r.Context(), caller, flight)
	if err != nil {
		return wrap(err)
	}
	reply.Credited = newPolicies(credited)
	return nil
}

type GetPassengerCreditArgs struct {
	Passenger string `json:"passenger"`
}

type CreditReply struct {
	Balance   string `json:"balance"`
	Credited  string `json:"credited"`
	Withdrawn string `json:"withdrawn"`
}

func (s *Service) GetPassengerCredit(_ *http.Request, args *GetPassengerCreditArgs, reply *CreditReply) error {
	passenger, err := parseAddress("passenger", args.Passenger)
	if err != nil {
		return err
	}
	acc, err := s.backend.GetAccount(passenger)
	if err != nil {
		return wrap(err)
	}
	reply.Balance = types.FormatUnits(&acc.Balance)
	reply.Credited = types.FormatUnits(&acc.Credited)
	reply.Withdrawn = types.FormatUnits(&acc.Withdrawn)
	return nil
}

type WithdrawCreditReply struct {
	Amount string `json:"amount"`
}

// WithdrawCredit pays out the caller's balance.
func (s *Service) WithdrawCredit(r *http.Request, _ *EmptyArgs, reply *WithdrawCreditReply) error {
	caller, err := requireCaller(r)
	if err != nil {
		return err
	}
	amount, err := s.backend.WithdrawCredit(r.Context(), caller)
	if err != nil {
		return wrap(err)
	}
	reply.Amount = types.FormatUnits(amount)
	s.log.Debug("credit withdrawn over rpc", "passenger", caller)
	return nil
}

type GetLedgerReply struct {
	Premiums       string `json:"premiums"`
	Credited       string `json:"credited"`
	Withdrawn      string `json:"withdrawn"`
	ConsortiumSize uint64 `json:"consortiumSize"`
	Operational    bool   `json:"operational"`
}

func (s *Service) GetLedger(_ *http.Request, _ *EmptyArgs, reply *GetLedgerReply) error {
	totals, err := s.backend.Totals()
	if err != nil {
		return wrap(err)
	}
	size, err := s.backend.ConsortiumSize()
	if err != nil {
		return wrap(err)
	}
	reply.Premiums = types.FormatUnits(&totals.Premiums)
	reply.Credited = types.FormatUnits(&totals.Credited)
	reply.Withdrawn = types.FormatUnits(&totals.Withdrawn)
	reply.ConsortiumSize = size
	reply.Operational = s.backend.IsOperational()
	return nil
}
