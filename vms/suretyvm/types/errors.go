// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import "errors"

var (
	ErrSystemPaused        = errors.New("system paused")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrRequesterNotFunded  = errors.New("requester is not a funded airline")
	ErrAlreadyExists       = errors.New("already exists")
	ErrDuplicateVote       = errors.New("duplicate vote")
	ErrInsufficientFunding = errors.New("insufficient funding")
	ErrAmountOutOfRange    = errors.New("amount out of range")
	ErrNoCreditAvailable   = errors.New("no credit available")
	ErrNotFound            = errors.New("not found")
	ErrInvalidState        = errors.New("invalid state")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInsolventLedger     = errors.New("ledger solvency violated")
)

// Kind classifies an error returned to callers.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindSystemPaused
	KindUnauthorized
	KindRequesterNotFunded
	KindAlreadyExists
	KindDuplicateVote
	KindInsufficientFunding
	KindAmountOutOfRange
	KindNoCreditAvailable
	KindNotFound
	KindInvalidState
	KindInvalidArgument
	KindInsolventLedger
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrSystemPaused, KindSystemPaused},
	{ErrUnauthorized, KindUnauthorized},
	{ErrRequesterNotFunded, KindRequesterNotFunded},
	{ErrAlreadyExists, KindAlreadyExists},
	{ErrDuplicateVote, KindDuplicateVote},
	{ErrInsufficientFunding, KindInsufficientFunding},
	{ErrAmountOutOfRange, KindAmountOutOfRange},
	{ErrNoCreditAvailable, KindNoCreditAvailable},
	{ErrNotFound, KindNotFound},
	{ErrInvalidState, KindInvalidState},
	{ErrInvalidArgument, KindInvalidArgument},
	{ErrInsolventLedger, KindInsolventLedger},
}

// KindOf returns the kind of the first sentinel found in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

func (k Kind) String() string {
	switch k {
	case KindSystemPaused:
		return "SystemPaused"
	case KindUnauthorized:
		return "Unauthorized"
	case KindRequesterNotFunded:
		return "RequesterNotFunded"
	case KindAlreadyExists:
		return "AlreadyExists"
	case KindDuplicateVote:
		return "DuplicateVote"
	case KindInsufficientFunding:
		return "InsufficientFunding"
	case KindAmountOutOfRange:
		return "AmountOutOfRange"
	case KindNoCreditAvailable:
		return "NoCreditAvailable"
	case KindNotFound:
		return "NotFound"
	case KindInvalidState:
		return "InvalidState"
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindInsolventLedger:
		return "InsolventLedger"
	default:
		return "Unknown"
	}
}
