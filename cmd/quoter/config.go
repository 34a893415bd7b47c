package main

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/vultisig/swap-quote/internal/logging"
	"github.com/vultisig/swap-quote/internal/metrics"
	"github.com/vultisig/swap-quote/internal/swap"
	"github.com/vultisig/swap-quote/internal/util"
)

type config struct {
	LogFormat logging.LogFormat `envconfig:"LOG_FORMAT" default:"text"`
	LogLevel  string            `envconfig:"LOG_LEVEL" default:"info"`
	Metrics   metrics.Config
	Thorchain thorchainConfig
	Quote     quoteConfig
}

type thorchainConfig struct {
	InfoServers     []string      `envconfig:"INFO_SERVERS"`
	AppID           string        `envconfig:"APP_ID" default:"edge"`
	ThornodeServers []string      `envconfig:"THORNODE_SERVERS"`
	MidgardServers  []string      `envconfig:"MIDGARD_SERVERS"`
	Thorname        string        `envconfig:"THORNAME" default:"ej"`
	ClientID        string        `envconfig:"CLIENT_ID"`
	RaceTimeout     time.Duration `envconfig:"RACE_TIMEOUT" default:"5s"`
}

type assetConfig struct {
	PluginID     string `envconfig:"PLUGIN_ID" required:"true"`
	CurrencyCode string `envconfig:"CURRENCY_CODE" required:"true"`
	TokenID      string `envconfig:"TOKEN_ID"`
	// Decimals is required for tokens; native coins fall back to the known chain decimals.
	Decimals int32 `envconfig:"DECIMALS"`
}

func (a assetConfig) ref() swap.AssetRef {
	tokenID := a.TokenID
	if util.IsNativeToken(tokenID) {
		tokenID = ""
	}
	return swap.AssetRef{
		PluginID:     a.PluginID,
		CurrencyCode: a.CurrencyCode,
		TokenID:      tokenID,
	}
}

func (a assetConfig) decimals() (int32, error) {
	if a.Decimals > 0 {
		return a.Decimals, nil
	}
	if !a.ref().IsNative() {
		return 0, fmt.Errorf("decimals are required for token %s", a.ref())
	}
	return util.GetNativeDecimals(a.PluginID)
}

type quoteConfig struct {
	From assetConfig
	To   assetConfig
	// Amount is human readable, in units of the asset the direction refers to.
	Amount      string         `envconfig:"AMOUNT" required:"true"`
	Direction   swap.Direction `envconfig:"DIRECTION" default:"from"`
	Destination string         `envconfig:"DESTINATION"`
	Interval    time.Duration  `envconfig:"INTERVAL" default:"1m"`
}

// request converts the configured pair and amount into a quote request plus the unit converter
// both sides need.
func (q quoteConfig) request() (swap.Request, *util.DecimalsConverter, error) {
	if q.Direction != swap.DirectionFrom && q.Direction != swap.DirectionTo {
		return swap.Request{}, nil, fmt.Errorf("unsupported direction %q (must be 'from' or 'to')", q.Direction)
	}

	units := util.NewDecimalsConverter()
	fromDecimals, err := q.From.decimals()
	if err != nil {
		return swap.Request{}, nil, fmt.Errorf("failed to get source decimals: %w", err)
	}
	toDecimals, err := q.To.decimals()
	if err != nil {
		return swap.Request{}, nil, fmt.Errorf("failed to get destination decimals: %w", err)
	}
	units.Register(q.From.ref(), fromDecimals)
	units.Register(q.To.ref(), toDecimals)

	decimals := fromDecimals
	if q.Direction == swap.DirectionTo {
		decimals = toDecimals
	}
	amount, err := util.ParseBaseUnits(q.Amount, decimals)
	if err != nil {
		return swap.Request{}, nil, fmt.Errorf("failed to parse amount: %w", err)
	}

	return swap.Request{
		From:         q.From.ref(),
		To:           q.To.ref(),
		NativeAmount: amount,
		Direction:    q.Direction,
	}, units, nil
}

// newConfig reads the environment, after loading a local .env file when one exists.
// Variables already set in the environment win over the file.
func newConfig() (config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return config{}, fmt.Errorf("failed to process env var: %w", err)
	}
	return cfg, nil
}
