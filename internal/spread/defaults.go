package spread

import (
	"github.com/shopspring/decimal"
)

// Slow-block chains get wider spreads: BTC/BCH have ~10 minute blocks, DASH/DOGE/LTC a few minutes.
var (
	DefaultVolatilitySpread                  = decimal.RequireFromString("0.0075")
	DefaultLikeKindVolatilitySpread          = decimal.RequireFromString("0.005")
	DefaultVolatilitySpreadStreaming         = decimal.RequireFromString("0.001")
	DefaultLikeKindVolatilitySpreadStreaming = decimal.Zero
)

func DefaultRules() []Rule {
	return []Rule{
		sourceRule("bitcoin", "0.015"),
		sourceRule("bitcoincash", "0.015"),
		sourceRule("dash", "0.01"),
		sourceRule("dogecoin", "0.01"),
		sourceRule("litecoin", "0.01"),
	}
}

func DefaultConfig() Config {
	return Config{
		Atomic: Track{
			Rules:    DefaultRules(),
			Default:  DefaultVolatilitySpread,
			LikeKind: DefaultLikeKindVolatilitySpread,
		},
		Streaming: Track{
			Rules:    DefaultRules(),
			Default:  DefaultVolatilitySpreadStreaming,
			LikeKind: DefaultLikeKindVolatilitySpreadStreaming,
		},
	}
}

func sourceRule(pluginID, value string) Rule {
	id := pluginID
	return Rule{
		SourcePluginID: &id,
		Spread:         decimal.RequireFromString(value),
	}
}
