package swap

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AssetRef names one tradeable asset: a wallet plugin (chain) plus an optional token.
type AssetRef struct {
	PluginID     string
	TokenID      string
	CurrencyCode string
}

func (a AssetRef) IsNative() bool {
	return a.TokenID == ""
}

func (a AssetRef) String() string {
	if a.IsNative() {
		return fmt.Sprintf("%s:%s", a.PluginID, a.CurrencyCode)
	}
	return fmt.Sprintf("%s:%s(%s)", a.PluginID, a.CurrencyCode, a.TokenID)
}

// Pool is a provider's published rate snapshot for one asset.
type Pool struct {
	Asset                string
	PriceInReferenceUnit decimal.Decimal
	PriceInUSD           decimal.Decimal
}

type Direction string

const (
	DirectionFrom Direction = "from"
	DirectionTo   Direction = "to"
	DirectionMax  Direction = "max"
)

func (d Direction) Valid() bool {
	switch d {
	case DirectionFrom, DirectionTo, DirectionMax:
		return true
	default:
		return false
	}
}

type Request struct {
	From         AssetRef
	To           AssetRef
	NativeAmount decimal.Decimal
	Direction    Direction
	// SessionID ties together wallet fee estimates made while building one quote.
	SessionID string
}

type ProviderInfo struct {
	PluginID    string
	DisplayName string
	IsDex       bool
	// OrderURI may contain a {{TXID}} placeholder filled in after broadcast.
	OrderURI string
}

// Order is the computed, unsigned result of a quote calculation. It is never mutated after creation.
type Order struct {
	Request               Request
	Provider              ProviderInfo
	FromAmount            decimal.Decimal
	ToAmount              decimal.Decimal
	MinReceiveAmount      *decimal.Decimal
	Payload               SettlementPayload
	PreTx                 *SpendInstruction
	DestinationAddress    string
	ExpiresAt             time.Time
	MaxFulfillmentSeconds int64
	CanBePartial          bool
	OrderID               string
	MetadataNotes         string
	IsEstimate            bool
	SessionID             string
}

// EnsureInFuture pushes t forward so that it lies at least margin after now.
func EnsureInFuture(now, t time.Time, margin time.Duration) time.Time {
	target := now.Add(margin)
	if target.Before(t) {
		return t
	}
	return target
}
