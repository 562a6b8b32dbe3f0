// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package insurance

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/luxfi/ids"
)

var _ Transferer = (*WalletTransferer)(nil)

// WalletStore records value paid out of the ledger per address.
type WalletStore interface {
	CreditWallet(ids.ShortID, *uint256.Int) error
}

// WalletTransferer pays withdrawals into chain-held wallets.
type WalletTransferer struct {
	store WalletStore
}

func NewWalletTransferer(store WalletStore) *WalletTransferer {
	return &WalletTransferer{store: store}
}

func (w *WalletTransferer) Transfer(_ context.Context, to ids.ShortID, amount *uint256.Int) error {
	return w.store.CreditWallet(to, amount)
}
