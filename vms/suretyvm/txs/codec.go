// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"errors"
	"math"

	"github.com/luxfi/codec"
	"github.com/luxfi/codec/linearcodec"
)

const CodecVersion = 0

var Codec codec.Manager

func init() {
	Codec = codec.NewManager(math.MaxInt)
	lc := linearcodec.NewDefault()

	// Registration order fixes the wire type IDs; append only.
	err := errors.Join(
		lc.RegisterType(&SetOperatingStatusTx{}),
		lc.RegisterType(&RegisterAirlineTx{}),
		lc.RegisterType(&VoteForAirlineTx{}),
		lc.RegisterType(&FundAirlineTx{}),
		lc.RegisterType(&BuyInsuranceTx{}),
		lc.RegisterType(&RequestFlightStatusTx{}),
		lc.RegisterType(&SubmitOracleResponseTx{}),
		lc.RegisterType(&CreditDelayTx{}),
		lc.RegisterType(&WithdrawCreditTx{}),
		lc.RegisterType(&PruneRequestsTx{}),
		Codec.RegisterCodec(CodecVersion, lc),
	)
	if err != nil {
		panic(err)
	}
}
