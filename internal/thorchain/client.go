package thorchain

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/swap-quote/internal/race"
)

const (
	quotePath = "quote/swap"
	poolsPath = "v2/pools"

	swapTooSmall = "swap too small"
)

var errMinUnknown = errors.New("swap too small and minimum amount could not be determined")

type Client struct {
	fetcher  *race.Fetcher
	clientID string
	logger   logrus.FieldLogger
}

func NewClient(fetcher *race.Fetcher, clientID string, logger logrus.FieldLogger) *Client {
	return &Client{
		fetcher:  fetcher,
		clientID: clientID,
		logger:   logger,
	}
}

type quoteSwapRequest struct {
	FromAsset         string `url:"from_asset"`
	ToAsset           string `url:"to_asset"`
	Amount            string `url:"amount"`
	Destination       string `url:"destination,omitempty"`
	StreamingInterval string `url:"streaming_interval,omitempty"`
	StreamingQuantity string `url:"streaming_quantity,omitempty"`
	AffiliateBps      string `url:"affiliate_bps,omitempty"`
	Affiliate         string `url:"affiliate,omitempty"`
}

func (r quoteSwapRequest) values() url.Values {
	params := url.Values{}
	params.Set("from_asset", r.FromAsset)
	params.Set("to_asset", r.ToAsset)
	params.Set("amount", r.Amount)

	if r.Destination != "" {
		params.Set("destination", r.Destination)
	}
	if r.StreamingInterval != "" {
		params.Set("streaming_interval", r.StreamingInterval)
	}
	if r.StreamingQuantity != "" {
		params.Set("streaming_quantity", r.StreamingQuantity)
	}
	if r.AffiliateBps != "" {
		params.Set("affiliate_bps", r.AffiliateBps)
	}
	if r.Affiliate != "" {
		params.Set("affiliate", r.Affiliate)
	}
	return params
}

type quoteSwapResponse struct {
	InboundAddress             string `json:"inbound_address"`
	Router                     string `json:"router"`
	Expiry                     int64  `json:"expiry"`
	Memo                       string `json:"memo"`
	RecommendedMinAmountIn     string `json:"recommended_min_amount_in"`
	ExpectedAmountOut          string `json:"expected_amount_out"`
	ExpectedAmountOutStreaming string `json:"expected_amount_out_streaming"`
	StreamingSwapBlocks        int64  `json:"streaming_swap_blocks"`
	TotalSwapSeconds           int64  `json:"total_swap_seconds"`
}

// expectedOut is the quoted output in THOR units.
func (q *quoteSwapResponse) expectedOut() (decimal.Decimal, error) {
	raw := q.ExpectedAmountOut
	if raw == "" {
		raw = q.ExpectedAmountOutStreaming
	}
	out, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse expected amount out %q: %w", raw, err)
	}
	return out, nil
}

// quoteOutcome is either a usable quote or the minimum input (THOR units) the node would accept.
type quoteOutcome struct {
	quote     *quoteSwapResponse
	minAmount *decimal.Decimal
}

type midgardPool struct {
	Asset         string `json:"asset"`
	AssetPrice    string `json:"assetPrice"`
	AssetPriceUSD string `json:"assetPriceUSD"`
	Status        string `json:"status"`
}

func (c *Client) headers() map[string]string {
	h := map[string]string{"Content-Type": "application/json"}
	if c.clientID != "" {
		h["x-client-id"] = c.clientID
	}
	return h
}

// getQuote asks the thornodes for a swap quote. A "swap too small" answer is retried once with ten
// times the amount, only to learn the recommended minimum.
func (c *Client) getQuote(ctx context.Context, thornodes []string, req quoteSwapRequest) (quoteOutcome, error) {
	quote, tooSmall, err := c.fetchQuote(ctx, thornodes, req)
	if err != nil {
		return quoteOutcome{}, err
	}
	if !tooSmall {
		return quoteOutcome{quote: quote}, nil
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return quoteOutcome{}, fmt.Errorf("failed to parse quote amount %q: %w", req.Amount, err)
	}
	retry := req
	retry.Amount = amount.Mul(decimal.NewFromInt(10)).String()

	c.logger.WithFields(logrus.Fields{
		"from_asset": req.FromAsset,
		"to_asset":   req.ToAsset,
		"amount":     req.Amount,
	}).Debug("swap too small, probing for minimum")

	probe, tooSmall, err := c.fetchQuote(ctx, thornodes, retry)
	if err != nil {
		return quoteOutcome{}, fmt.Errorf("failed to probe minimum amount: %w", err)
	}
	if tooSmall {
		return quoteOutcome{}, errMinUnknown
	}

	minAmount, err := decimal.NewFromString(probe.RecommendedMinAmountIn)
	if err != nil {
		return quoteOutcome{}, fmt.Errorf("%w: %q", errMinUnknown, probe.RecommendedMinAmountIn)
	}
	return quoteOutcome{minAmount: &minAmount}, nil
}

func (c *Client) fetchQuote(ctx context.Context, thornodes []string, req quoteSwapRequest) (*quoteSwapResponse, bool, error) {
	resp, err := c.fetcher.Fetch(ctx, thornodes, quotePath, race.Request{
		Headers: c.headers(),
		Query:   req.values(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get quote: %w", err)
	}
	if !resp.OK() {
		if strings.Contains(string(resp.Body), swapTooSmall) {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("failed to get quote: %w", resp.StatusError())
	}

	var quote quoteSwapResponse
	if err := sonic.Unmarshal(resp.Body, &quote); err != nil {
		return nil, false, fmt.Errorf("failed to decode quote: %w", err)
	}
	if quote.Memo == "" {
		return nil, false, errors.New("quote response has no memo")
	}
	return &quote, false, nil
}

func (c *Client) getPools(ctx context.Context, midgard []string) ([]midgardPool, error) {
	resp, err := c.fetcher.Fetch(ctx, midgard, poolsPath, race.Request{Headers: c.headers()})
	if err != nil {
		return nil, fmt.Errorf("failed to get pools: %w", err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("failed to get pools: %w", resp.StatusError())
	}

	var pools []midgardPool
	if err := sonic.Unmarshal(resp.Body, &pools); err != nil {
		return nil, fmt.Errorf("failed to decode pools: %w", err)
	}
	return pools, nil
}
