package thorchain

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/swap-quote/internal/exchangeinfo"
	"github.com/vultisig/swap-quote/internal/feecache"
	"github.com/vultisig/swap-quote/internal/race"
	"github.com/vultisig/swap-quote/internal/swap"
	"github.com/vultisig/swap-quote/internal/swap/swaptest"
)

const (
	testInbound = "0x1111111111111111111111111111111111111111"
	testRouter  = "0x2222222222222222222222222222222222222222"
	testExpiry  = int64(1700000000)
	usdcToken   = "a0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
)

var (
	btcRef  = swap.AssetRef{PluginID: "bitcoin", CurrencyCode: "BTC"}
	ethRef  = swap.AssetRef{PluginID: "ethereum", CurrencyCode: "ETH"}
	usdcRef = swap.AssetRef{PluginID: "ethereum", CurrencyCode: "USDC", TokenID: usdcToken}
	runeRef = swap.AssetRef{PluginID: "thorchainrune", CurrencyCode: "RUNE"}
	fooRef  = swap.AssetRef{PluginID: "bitcoin", CurrencyCode: "FOO", TokenID: "xyz"}
)

const testPools = `[
  {"asset": "BTC.BTC", "assetPrice": "20000", "assetPriceUSD": "60000", "status": "available"},
  {"asset": "ETH.ETH", "assetPrice": "1000", "assetPriceUSD": "3000", "status": "available"},
  {"asset": "ETH.USDC-0XA0B86991C6218B36C1D19D4A2E9EB0CE3606EB48", "assetPrice": "0.00033", "assetPriceUSD": "1", "status": "available"},
  {"asset": "ETH.STAGED", "assetPrice": "1", "assetPriceUSD": "1", "status": "staged"},
  {"asset": "BTC.FOO-XYZ", "assetPrice": "1", "assetPriceUSD": "1", "status": "available"}
]`

// fakeNode answers quote requests with out = amount * rate, in THOR units.
type fakeNode struct {
	rate decimal.Decimal
	// streamingBonus multiplies the output of streaming quotes.
	streamingBonus decimal.Decimal
	minAmount      decimal.Decimal
	// failStreaming makes every streaming quote fail with a server error.
	failStreaming bool

	mu       sync.Mutex
	requests []url.Values
}

func newFakeNode(rate string) *fakeNode {
	return &fakeNode{
		rate:           decimal.RequireFromString(rate),
		streamingBonus: decimal.NewFromInt(1),
	}
}

func (n *fakeNode) queries() []url.Values {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]url.Values(nil), n.requests...)
}

func (n *fakeNode) amounts() []string {
	var out []string
	for _, q := range n.queries() {
		out = append(out, q.Get("amount"))
	}
	return out
}

func (n *fakeNode) serveQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	n.mu.Lock()
	n.requests = append(n.requests, q)
	n.mu.Unlock()

	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil {
		http.Error(w, `{"message":"bad amount"}`, http.StatusBadRequest)
		return
	}
	if amount.LessThan(n.minAmount) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = fmt.Fprint(w, `{"code":3,"message":"failed to simulate swap: swap too small","details":[]}`)
		return
	}

	interval := q.Get("streaming_interval")
	quantity := q.Get("streaming_quantity")
	streaming := interval != "1"
	if streaming && n.failStreaming {
		http.Error(w, `{"message":"streaming swaps paused"}`, http.StatusServiceUnavailable)
		return
	}
	out := amount.Mul(n.rate)
	blocks := 1
	if streaming {
		out = out.Mul(n.streamingBonus)
		blocks = 10
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{
  "inbound_address": %q,
  "router": %q,
  "expiry": %d,
  "memo": "=:%s:%s:0/%s/%s",
  "recommended_min_amount_in": %q,
  "expected_amount_out": %q,
  "streaming_swap_blocks": %d,
  "total_swap_seconds": 600
}`,
		testInbound, testRouter, testExpiry,
		q.Get("to_asset"), q.Get("destination"), interval, quantity,
		n.minAmount.String(), out.Floor().String(), blocks,
	)
}

type testEnv struct {
	srv    *httptest.Server
	node   *fakeNode
	plugin *Plugin
	fees   *feecache.Cache
	clk    *clock.Mock
}

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestEnv(t *testing.T, node *fakeNode) *testEnv {
	t.Helper()

	env := &testEnv{node: node, clk: clock.NewMock()}
	mux := http.NewServeMux()
	mux.HandleFunc("/thorchain/quote/swap", node.serveQuote)
	mux.HandleFunc("/v2/pools", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, testPools)
	})
	mux.HandleFunc("/v1/exchangeInfo/edge", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"swap":{"plugins":{"thorchain":{
  "perAssetSpread": [],
  "perAssetSpreadStreaming": [],
  "volatilitySpread": 0.01,
  "likeKindVolatilitySpread": 0.001,
  "volatilitySpreadStreaming": 0.005,
  "likeKindVolatilitySpreadStreaming": 0,
  "midgardServers": [%q],
  "thornodeServersWithPath": [%q]
}}}}`, env.srv.URL, env.srv.URL+"/thorchain")
	})
	env.srv = httptest.NewServer(mux)
	t.Cleanup(env.srv.Close)

	logger := discardLogger()
	fetcher := race.NewFetcher(nil, race.Config{Timeout: 2 * time.Second, Logger: logger})
	info := exchangeinfo.NewSource(
		exchangeinfo.NewClient(fetcher, []string{env.srv.URL}, DefaultAppID),
		PluginID,
		DefaultInfo(),
		env.clk,
		logger,
	)
	env.fees = feecache.New(env.clk)
	env.plugin = NewPlugin(NewClient(fetcher, "test-client", logger), info, env.fees, Options{
		Clock:  env.clk,
		Logger: logger,
	})
	return env
}

func newWallet(currency string) *swaptest.Wallet {
	w := swaptest.NewWallet(currency)
	w.Register(btcRef, 8)
	w.Register(ethRef, 18)
	w.Register(usdcRef, 6)
	w.Register(runeRef, 8)
	w.Register(fooRef, 8)
	return w
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
