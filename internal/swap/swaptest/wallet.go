// Package swaptest provides an in-memory wallet for tests of quote calculation and execution.
package swaptest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vultisig/swap-quote/internal/swap"
	"github.com/vultisig/swap-quote/internal/util"
)

var ErrNoBalance = errors.New("no balance for asset")

// Wallet records every call it receives. Zero-valued hooks fall back to simple defaults.
type Wallet struct {
	*util.DecimalsConverter

	WalletID   string
	Currency   string
	NetworkFee decimal.Decimal
	// Balances is keyed by AssetRef.String().
	Balances map[string]decimal.Decimal

	MaxSpendableFn func(spend swap.SpendInstruction) (decimal.Decimal, error)
	MaxTxFn        func(params swap.TxParams) (decimal.Decimal, error)
	MakeSpendFn    func(spend swap.SpendInstruction) (*swap.Transaction, error)
	BroadcastFn    func(tx *swap.Transaction) error
	SaveFn         func(tx *swap.Transaction) error

	mu         sync.Mutex
	txCount    int
	Spends     []swap.SpendInstruction
	Params     []swap.TxParams
	MaxQueries []swap.SpendInstruction
	Signed     []*swap.Transaction
	Broadcasts []*swap.Transaction
	Saved      []*swap.Transaction
}

func NewWallet(currency string) *Wallet {
	return &Wallet{
		DecimalsConverter: util.NewDecimalsConverter(),
		WalletID:          "wallet-" + currency,
		Currency:          currency,
		NetworkFee:        decimal.NewFromInt(1000),
		Balances:          map[string]decimal.Decimal{},
	}
}

func (w *Wallet) ID() string {
	return w.WalletID
}

func (w *Wallet) CurrencyCode() string {
	return w.Currency
}

func (w *Wallet) Address(_ context.Context, asset swap.AssetRef) (string, error) {
	return "addr-" + asset.PluginID, nil
}

func (w *Wallet) Balance(_ context.Context, asset swap.AssetRef) (decimal.Decimal, error) {
	b, ok := w.Balances[asset.String()]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNoBalance, asset)
	}
	return b, nil
}

func (w *Wallet) MaxSpendable(_ context.Context, spend swap.SpendInstruction) (decimal.Decimal, error) {
	w.mu.Lock()
	w.MaxQueries = append(w.MaxQueries, spend)
	w.mu.Unlock()

	if w.MaxSpendableFn != nil {
		return w.MaxSpendableFn(spend)
	}
	return decimal.Zero, errors.New("max spendable not configured")
}

func (w *Wallet) MaxTx(_ context.Context, params swap.TxParams) (decimal.Decimal, error) {
	if w.MaxTxFn != nil {
		return w.MaxTxFn(params)
	}
	return decimal.Zero, errors.New("max tx not configured")
}

func (w *Wallet) MakeSpend(_ context.Context, spend swap.SpendInstruction) (*swap.Transaction, error) {
	w.mu.Lock()
	w.Spends = append(w.Spends, spend)
	w.mu.Unlock()

	if w.MakeSpendFn != nil {
		return w.MakeSpendFn(spend)
	}
	return &swap.Transaction{
		CurrencyCode: w.Currency,
		NetworkFee:   w.NetworkFee,
	}, nil
}

func (w *Wallet) MakeTx(_ context.Context, params swap.TxParams) (*swap.Transaction, error) {
	w.mu.Lock()
	w.Params = append(w.Params, params)
	w.mu.Unlock()

	return &swap.Transaction{
		CurrencyCode: w.Currency,
		NetworkFee:   w.NetworkFee,
	}, nil
}

func (w *Wallet) Sign(_ context.Context, tx *swap.Transaction) (*swap.Transaction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	signed := *tx
	signed.Raw = []byte("signed")
	w.Signed = append(w.Signed, &signed)
	return &signed, nil
}

func (w *Wallet) Broadcast(_ context.Context, tx *swap.Transaction) (*swap.Transaction, error) {
	if w.BroadcastFn != nil {
		if err := w.BroadcastFn(tx); err != nil {
			return nil, err
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.txCount++
	out := *tx
	out.TxID = fmt.Sprintf("tx-%d", w.txCount)
	w.Broadcasts = append(w.Broadcasts, &out)
	return &out, nil
}

func (w *Wallet) Save(_ context.Context, tx *swap.Transaction) error {
	if w.SaveFn != nil {
		if err := w.SaveFn(tx); err != nil {
			return err
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.Saved = append(w.Saved, tx)
	return nil
}

func (w *Wallet) BroadcastCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.Broadcasts)
}
