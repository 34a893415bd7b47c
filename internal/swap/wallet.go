package swap

import (
	"context"

	"github.com/shopspring/decimal"
)

type Metadata struct {
	Name     string
	Category string
	Notes    string
}

// Merge returns m with every empty field taken from base.
func (m Metadata) Merge(base Metadata) Metadata {
	out := m
	if out.Name == "" {
		out.Name = base.Name
	}
	if out.Category == "" {
		out.Category = base.Category
	}
	if out.Notes == "" {
		out.Notes = base.Notes
	}
	return out
}

type Transaction struct {
	TxID         string
	CurrencyCode string
	NetworkFee   decimal.Decimal
	// ParentNetworkFee is set when a token transaction pays its fee in the parent currency.
	ParentNetworkFee   *decimal.Decimal
	ParentCurrencyCode string
	Metadata           Metadata
	Raw                []byte
}

// Fee returns the fee actually paid by the transaction and the unit it is denominated in.
func (t *Transaction) Fee() (decimal.Decimal, string) {
	if t.ParentNetworkFee != nil {
		return *t.ParentNetworkFee, t.ParentCurrencyCode
	}
	return t.NetworkFee, t.CurrencyCode
}

// UnitConverter converts between an asset's smallest on-chain unit and its reference unit.
type UnitConverter interface {
	NativeToReference(ctx context.Context, asset AssetRef, native decimal.Decimal) (decimal.Decimal, error)
	ReferenceToNative(ctx context.Context, asset AssetRef, reference decimal.Decimal) (decimal.Decimal, error)
}

// Wallet is the signing/broadcasting collaborator. Its internals are not part of this module.
type Wallet interface {
	UnitConverter

	ID() string
	CurrencyCode() string
	Address(ctx context.Context, asset AssetRef) (string, error)
	Balance(ctx context.Context, asset AssetRef) (decimal.Decimal, error)
	MaxSpendable(ctx context.Context, spend SpendInstruction) (decimal.Decimal, error)
	MakeSpend(ctx context.Context, spend SpendInstruction) (*Transaction, error)
	MakeTx(ctx context.Context, params TxParams) (*Transaction, error)
	Sign(ctx context.Context, tx *Transaction) (*Transaction, error)
	Broadcast(ctx context.Context, tx *Transaction) (*Transaction, error)
	Save(ctx context.Context, tx *Transaction) error
}

// MaxTxEstimator is implemented by wallets able to size a TxParams payload to the full balance.
type MaxTxEstimator interface {
	MaxTx(ctx context.Context, params TxParams) (decimal.Decimal, error)
}
