package thorchain

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vultisig/swap-quote/internal/race"
	"github.com/vultisig/swap-quote/internal/swap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, string) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	fetcher := race.NewFetcher(nil, race.Config{Timeout: 2 * time.Second, Logger: discardLogger()})
	return NewClient(fetcher, "test-client", discardLogger()), server.URL
}

func TestGetQuote_SendsParamsAndHeaders(t *testing.T) {
	client, url := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/thorchain/quote/swap", r.URL.Path)
		assert.Equal(t, "test-client", r.Header.Get("x-client-id"))

		q := r.URL.Query()
		assert.Equal(t, "BTC.BTC", q.Get("from_asset"))
		assert.Equal(t, "ETH.ETH", q.Get("to_asset"))
		assert.Equal(t, "100000000", q.Get("amount"))
		assert.Equal(t, "0xdest", q.Get("destination"))
		assert.Equal(t, "ej", q.Get("affiliate"))
		assert.False(t, q.Has("streaming_interval"))

		_, _ = fmt.Fprint(w, `{"memo":"=:ETH.ETH:0xdest:0/1/0","expected_amount_out":"2000000000","router":"0xrouter"}`)
	})

	outcome, err := client.getQuote(context.Background(), []string{url + "/thorchain"}, quoteSwapRequest{
		FromAsset:   "BTC.BTC",
		ToAsset:     "ETH.ETH",
		Amount:      "100000000",
		Destination: "0xdest",
		Affiliate:   "ej",
	})
	require.NoError(t, err)
	assert.Nil(t, outcome.minAmount)
	require.NotNil(t, outcome.quote)
	assert.Equal(t, "0xrouter", outcome.quote.Router)

	out, err := outcome.quote.expectedOut()
	require.NoError(t, err)
	assert.Equal(t, "2000000000", out.String())
}

func TestGetQuote_StreamingOutputFallback(t *testing.T) {
	q := &quoteSwapResponse{ExpectedAmountOutStreaming: "42"}
	out, err := q.expectedOut()
	require.NoError(t, err)
	assert.Equal(t, "42", out.String())

	_, err = (&quoteSwapResponse{}).expectedOut()
	assert.Error(t, err)
}

func TestGetQuote_TooSmallProbesOnce(t *testing.T) {
	var (
		mu      sync.Mutex
		amounts []string
	)
	client, url := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		amount := r.URL.Query().Get("amount")
		mu.Lock()
		amounts = append(amounts, amount)
		mu.Unlock()
		if amount == "1000" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = fmt.Fprint(w, `{"message":"failed to simulate swap: swap too small"}`)
			return
		}
		_, _ = fmt.Fprint(w, `{"memo":"=:ETH.ETH::0/1/0","expected_amount_out":"1","recommended_min_amount_in":"5000"}`)
	})

	outcome, err := client.getQuote(context.Background(), []string{url}, quoteSwapRequest{
		FromAsset: "BTC.BTC",
		ToAsset:   "ETH.ETH",
		Amount:    "1000",
	})
	require.NoError(t, err)
	assert.Nil(t, outcome.quote)
	require.NotNil(t, outcome.minAmount)
	assert.Equal(t, "5000", outcome.minAmount.String())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"1000", "10000"}, amounts)
}

func TestGetQuote_ProbeWithoutMinimum(t *testing.T) {
	client, url := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("amount") == "1000" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = fmt.Fprint(w, `swap too small`)
			return
		}
		_, _ = fmt.Fprint(w, `{"memo":"=:ETH.ETH::0/1/0","expected_amount_out":"1"}`)
	})

	_, err := client.getQuote(context.Background(), []string{url}, quoteSwapRequest{Amount: "1000"})
	assert.ErrorIs(t, err, errMinUnknown)
}

func TestGetQuote_ErrorStatus(t *testing.T) {
	client, url := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprint(w, `halted`)
	})

	_, err := client.getQuote(context.Background(), []string{url}, quoteSwapRequest{Amount: "1000"})
	require.Error(t, err)

	var statusErr *swap.HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, "halted", statusErr.Body)
}

func TestGetQuote_MissingMemo(t *testing.T) {
	client, url := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"expected_amount_out":"1"}`)
	})

	_, err := client.getQuote(context.Background(), []string{url}, quoteSwapRequest{Amount: "1000"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no memo")
}

func TestGetPools(t *testing.T) {
	client, url := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/pools", r.URL.Path)
		_, _ = fmt.Fprint(w, testPools)
	})

	pools, err := client.getPools(context.Background(), []string{url})
	require.NoError(t, err)
	require.Len(t, pools, 5)
	assert.Equal(t, "BTC.BTC", pools[0].Asset)
	assert.Equal(t, "20000", pools[0].AssetPrice)
	assert.Equal(t, "staged", pools[3].Status)
}

func TestGetPools_ErrorStatus(t *testing.T) {
	client, url := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.getPools(context.Background(), []string{url})
	assert.Error(t, err)
}
