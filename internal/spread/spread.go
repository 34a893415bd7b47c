// Package spread selects the volatility spread applied to a quote.
//
// Rules are scanned in list order and the first match wins. A nil matcher matches anything.
package spread

import (
	"github.com/shopspring/decimal"

	"github.com/vultisig/swap-quote/internal/swap"
)

type Rule struct {
	SourcePluginID     *string         `json:"sourcePluginId,omitempty"`
	SourceTokenID      *string         `json:"sourceTokenId,omitempty"`
	SourceCurrencyCode *string         `json:"sourceCurrencyCode,omitempty"`
	DestPluginID       *string         `json:"destPluginId,omitempty"`
	DestTokenID        *string         `json:"destTokenId,omitempty"`
	DestCurrencyCode   *string         `json:"destCurrencyCode,omitempty"`
	Spread             decimal.Decimal `json:"volatilitySpread"`
}

func (r Rule) Matches(from, to swap.AssetRef) bool {
	return matches(r.SourcePluginID, from.PluginID) &&
		matches(r.SourceTokenID, from.TokenID) &&
		matches(r.SourceCurrencyCode, from.CurrencyCode) &&
		matches(r.DestPluginID, to.PluginID) &&
		matches(r.DestTokenID, to.TokenID) &&
		matches(r.DestCurrencyCode, to.CurrencyCode)
}

func matches(want *string, got string) bool {
	return want == nil || *want == got
}

// Track is the spread configuration for one execution style.
type Track struct {
	Rules    []Rule
	Default  decimal.Decimal
	LikeKind decimal.Decimal
}

type Config struct {
	Atomic    Track
	Streaming Track
}

// Track returns the streaming track when the execution can be partial.
func (c Config) Track(streaming bool) Track {
	if streaming {
		return c.Streaming
	}
	return c.Atomic
}

func Select(track Track, from, to swap.AssetRef) decimal.Decimal {
	for _, rule := range track.Rules {
		if rule.Matches(from, to) {
			return rule.Spread
		}
	}
	if IsLikeKind(from.CurrencyCode, to.CurrencyCode) {
		return track.LikeKind
	}
	return track.Default
}

var likeKindClasses = [][]string{
	{"BTC", "WBTC", "SBTC", "RBTC"},
	{"ETH", "WETH"},
	{"USDC", "USDT", "DAI"},
}

// IsLikeKind reports whether both currency codes belong to the same equivalence class.
func IsLikeKind(fromCurrencyCode, toCurrencyCode string) bool {
	for _, class := range likeKindClasses {
		if contains(class, fromCurrencyCode) && contains(class, toCurrencyCode) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
