package thorchain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vultisig/swap-quote/internal/exchangeinfo"
	"github.com/vultisig/swap-quote/internal/spread"
	"github.com/vultisig/swap-quote/internal/swap"
)

const (
	PluginID    = "thorchain"
	DisplayName = "Thorchain"
	OrderURI    = "https://track.ninerealms.com/{{TXID}}"

	// Expiration is how long a computed order is offered before it must be re-quoted.
	Expiration = 60 * time.Second

	DefaultAffiliateFeeBasis = "50"
	DefaultThorname          = "ej"
	DefaultAppID             = "edge"

	defaultStreamingInterval = 10
	defaultStreamingQuantity = 10
	noStreamInterval         = 1
	noStreamQuantity         = 1

	runePluginID = "thorchainrune"
	runeAsset    = "THOR.RUNE"
	btcAsset     = "BTC.BTC"

	txTypeDeposit = "MakeTxDeposit"
	actionSwap    = "swap"
)

var (
	DefaultThornodeServers = []string{"https://thornode.ninerealms.com/thorchain"}
	DefaultMidgardServers  = []string{"https://midgard.thorchain.info"}

	// thorUnits converts reference amounts to THORChain's fixed 8-decimal amounts.
	thorUnits = decimal.New(1, 8)

	// maxTrialAmount is the RUNE amount (10 RUNE) quoted before the wallet sizes a max deposit.
	maxTrialAmount = decimal.New(1, 9)
)

type thorNetwork string

const (
	avax thorNetwork = "AVAX"
	base thorNetwork = "BASE"
	bnb  thorNetwork = "BNB"
	bsc  thorNetwork = "BSC"
	btc  thorNetwork = "BTC"
	bch  thorNetwork = "BCH"
	doge thorNetwork = "DOGE"
	eth  thorNetwork = "ETH"
	ltc  thorNetwork = "LTC"
	thor thorNetwork = "THOR"
)

var mainnetCodes = map[string]thorNetwork{
	"avalanche":         avax,
	"base":              base,
	"binancechain":      bnb,
	"binancesmartchain": bsc,
	"bitcoin":           btc,
	"bitcoincash":       bch,
	"dogecoin":          doge,
	"ethereum":          eth,
	"litecoin":          ltc,
	runePluginID:        thor,
}

func networkFor(pluginID string) (thorNetwork, bool) {
	n, ok := mainnetCodes[pluginID]
	return n, ok
}

// Currency codes never routed through THORChain, by wallet plugin.
var (
	invalidFromCodes = map[string][]string{
		"optimism": {"VELO"},
	}
	invalidToCodes = map[string][]string{
		"zcash": {"ZEC"},
	}
)

func isInvalid(codes map[string][]string, asset swap.AssetRef) bool {
	for _, code := range codes[asset.PluginID] {
		if code == asset.CurrencyCode {
			return true
		}
	}
	return false
}

// DefaultInfo is used until the info servers answer, and whenever they cannot.
func DefaultInfo() exchangeinfo.Info {
	return exchangeinfo.Info{
		Spreads:           spread.DefaultConfig(),
		MidgardServers:    DefaultMidgardServers,
		ThornodeServers:   DefaultThornodeServers,
		AffiliateFeeBasis: DefaultAffiliateFeeBasis,
		StreamingInterval: defaultStreamingInterval,
		StreamingQuantity: defaultStreamingQuantity,
	}
}
