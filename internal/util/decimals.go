package util

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vultisig/swap-quote/internal/swap"
)

// NativeDecimals maps wallet plugin id to native coin decimals
var NativeDecimals = map[string]int32{
	"avalanche":         18,
	"base":              18,
	"binancesmartchain": 18,
	"bitcoin":           8,
	"bitcoincash":       8,
	"dash":              8,
	"dogecoin":          8,
	"ethereum":          18,
	"litecoin":          8,
	"thorchainrune":     8,
}

// GetNativeDecimals returns the native coin decimals for a wallet plugin
func GetNativeDecimals(pluginID string) (int32, error) {
	decimals, ok := NativeDecimals[pluginID]
	if !ok {
		return 0, fmt.Errorf("unknown plugin: %s", pluginID)
	}
	return decimals, nil
}

// IsNativeToken checks if the token id represents a native coin
func IsNativeToken(token string) bool {
	return token == "" || strings.EqualFold(token, "native")
}

// ParseBaseUnits converts a human-readable amount to base units
// e.g., "10" USDC (6 decimals) -> 10000000. Digits beyond the precision are truncated.
func ParseBaseUnits(amount string, decimals int32) (decimal.Decimal, error) {
	if amount == "" {
		return decimal.Zero, fmt.Errorf("amount cannot be empty")
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return ToBaseUnits(d, decimals).Truncate(0), nil
}

// ToBaseUnits moves the decimal point right by decimals places
func ToBaseUnits(amount decimal.Decimal, decimals int32) decimal.Decimal {
	return amount.Shift(decimals)
}

// FromBaseUnits converts base units to a reference amount
// e.g., 10000000 with 6 decimals -> 10
func FromBaseUnits(amount decimal.Decimal, decimals int32) decimal.Decimal {
	return amount.Shift(-decimals)
}

type assetKey struct {
	pluginID string
	tokenID  string
}

// DecimalsConverter implements swap.UnitConverter from a table of asset decimals.
// Native coins fall back to NativeDecimals.
type DecimalsConverter struct {
	mu     sync.RWMutex
	tokens map[assetKey]int32
}

func NewDecimalsConverter() *DecimalsConverter {
	return &DecimalsConverter{
		tokens: make(map[assetKey]int32),
	}
}

func (c *DecimalsConverter) Register(asset swap.AssetRef, decimals int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[keyOf(asset)] = decimals
}

func (c *DecimalsConverter) Decimals(asset swap.AssetRef) (int32, error) {
	c.mu.RLock()
	decimals, ok := c.tokens[keyOf(asset)]
	c.mu.RUnlock()
	if ok {
		return decimals, nil
	}
	if IsNativeToken(asset.TokenID) {
		return GetNativeDecimals(asset.PluginID)
	}
	return 0, fmt.Errorf("unknown decimals for %s", asset)
}

func (c *DecimalsConverter) NativeToReference(_ context.Context, asset swap.AssetRef, native decimal.Decimal) (decimal.Decimal, error) {
	decimals, err := c.Decimals(asset)
	if err != nil {
		return decimal.Zero, err
	}
	return FromBaseUnits(native, decimals), nil
}

func (c *DecimalsConverter) ReferenceToNative(_ context.Context, asset swap.AssetRef, reference decimal.Decimal) (decimal.Decimal, error) {
	decimals, err := c.Decimals(asset)
	if err != nil {
		return decimal.Zero, err
	}
	return ToBaseUnits(reference, decimals), nil
}

func keyOf(asset swap.AssetRef) assetKey {
	return assetKey{pluginID: asset.PluginID, tokenID: strings.ToLower(asset.TokenID)}
}
