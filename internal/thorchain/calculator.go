package thorchain

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vultisig/swap-quote/internal/metrics"
	"github.com/vultisig/swap-quote/internal/spread"
	"github.com/vultisig/swap-quote/internal/swap"
)

// Input is everything needed to price one swap against THORChain pools.
type Input struct {
	Request     swap.Request
	SourcePool  swap.Pool
	DestPool    swap.Pool
	Destination string

	FromUnits swap.UnitConverter
	ToUnits   swap.UnitConverter

	Spreads           spread.Config
	Thornodes         []string
	Affiliate         string
	AffiliateBps      string
	StreamingInterval int
	StreamingQuantity int

	// IsEstimate quotes without a volatility spread and leaves the memo limit at zero.
	IsEstimate bool
}

type Result struct {
	FromNative    decimal.Decimal
	FromReference decimal.Decimal
	ToNative      decimal.Decimal
	ToReference   decimal.Decimal
	// PreSpreadToNative is the destination amount the node quoted before the spread was taken off.
	PreSpreadToNative decimal.Decimal

	Memo           string
	Router         string
	InboundAddress string
	Expiry         int64

	MaxFulfillmentSeconds int64
	CanBePartial          bool
	Spread                decimal.Decimal
}

type Calculator struct {
	client  *Client
	logger  logrus.FieldLogger
	metrics *metrics.QuoteMetrics
}

func NewCalculator(client *Client, logger logrus.FieldLogger) *Calculator {
	return &Calculator{
		client:  client,
		logger:  logger,
		metrics: metrics.NewQuoteMetrics(),
	}
}

func (c *Calculator) Quote(ctx context.Context, in Input) (Result, error) {
	switch in.Request.Direction {
	case swap.DirectionFrom:
		return c.quoteFrom(ctx, in)
	case swap.DirectionTo:
		return c.quoteTo(ctx, in)
	default:
		return Result{}, fmt.Errorf("unsupported quote direction %q", in.Request.Direction)
	}
}

func (c *Calculator) quoteFrom(ctx context.Context, in Input) (Result, error) {
	fromRef, err := in.FromUnits.NativeToReference(ctx, in.Request.From, in.Request.NativeAmount)
	if err != nil {
		return Result{}, fmt.Errorf("failed to convert from amount: %w", err)
	}
	fromThor := fromRef.Mul(thorUnits).Round(0)

	best, toThor, err := c.bestQuote(ctx, in, fromThor)
	if err != nil {
		return Result{}, err
	}

	canBePartial := best.StreamingSwapBlocks > 1
	spr := c.spread(in, canBePartial)

	toThorWithSpread := toThor.Mul(decimal.NewFromInt(1).Sub(spr)).Floor()
	toRef := toThorWithSpread.Div(thorUnits)
	toNative, err := in.ToUnits.ReferenceToNative(ctx, in.Request.To, toRef)
	if err != nil {
		return Result{}, fmt.Errorf("failed to convert to amount: %w", err)
	}
	preSpread, err := in.ToUnits.ReferenceToNative(ctx, in.Request.To, toThor.Div(thorUnits))
	if err != nil {
		return Result{}, fmt.Errorf("failed to convert to amount: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"from_thor":   fromThor.String(),
		"to_thor":     toThor.String(),
		"limit":       toThorWithSpread.String(),
		"spread":      spr.String(),
		"streaming":   canBePartial,
		"is_estimate": in.IsEstimate,
	}).Debug("calculated from quote")

	return Result{
		FromNative:            in.Request.NativeAmount,
		FromReference:         fromRef,
		ToNative:              toNative.Floor(),
		ToReference:           toRef,
		PreSpreadToNative:     preSpread.Floor(),
		Memo:                  c.memo(in, best.Memo, toThorWithSpread),
		Router:                best.Router,
		InboundAddress:        best.InboundAddress,
		Expiry:                best.Expiry,
		MaxFulfillmentSeconds: best.TotalSwapSeconds,
		CanBePartial:          canBePartial,
		Spread:                spr,
	}, nil
}

func (c *Calculator) quoteTo(ctx context.Context, in Input) (Result, error) {
	toRef, err := in.ToUnits.NativeToReference(ctx, in.Request.To, in.Request.NativeAmount)
	if err != nil {
		return Result{}, fmt.Errorf("failed to convert to amount: %w", err)
	}
	requestedToThor := toRef.Mul(thorUnits)

	if in.SourcePool.PriceInReferenceUnit.IsZero() {
		return Result{}, fmt.Errorf("pool %s has zero price", in.SourcePool.Asset)
	}
	rate := in.DestPool.PriceInReferenceUnit.DivRound(in.SourcePool.PriceInReferenceUnit, 18)
	naiveFromThor := toRef.Mul(rate).Mul(thorUnits).Ceil()

	best, toThor, err := c.bestQuote(ctx, in, naiveFromThor)
	if err != nil {
		return Result{}, err
	}
	if !toThor.IsPositive() {
		return Result{}, errors.New("quote returned no output amount")
	}

	canBePartial := best.StreamingSwapBlocks > 1
	spr := c.spread(in, canBePartial)

	// Scale the send amount by how far the quoted output fell short of what was asked for.
	ratio := requestedToThor.DivRound(toThor, 18)
	if ratio.LessThan(decimal.NewFromInt(1)) {
		ratio = decimal.NewFromInt(1)
	}
	fromThor := naiveFromThor.Mul(ratio).Mul(decimal.NewFromInt(1).Add(spr)).Ceil()
	fromRef := fromThor.Div(thorUnits)
	fromNative, err := in.FromUnits.ReferenceToNative(ctx, in.Request.From, fromRef)
	if err != nil {
		return Result{}, fmt.Errorf("failed to convert from amount: %w", err)
	}
	preSpread, err := in.ToUnits.ReferenceToNative(ctx, in.Request.To, toThor.Div(thorUnits))
	if err != nil {
		return Result{}, fmt.Errorf("failed to convert to amount: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"requested_to_thor": requestedToThor.String(),
		"naive_from_thor":   naiveFromThor.String(),
		"quoted_to_thor":    toThor.String(),
		"ratio":             ratio.String(),
		"spread":            spr.String(),
		"streaming":         canBePartial,
	}).Debug("calculated to quote")

	return Result{
		FromNative:            fromNative.Ceil(),
		FromReference:         fromRef,
		ToNative:              in.Request.NativeAmount,
		ToReference:           toRef,
		PreSpreadToNative:     preSpread.Floor(),
		Memo:                  c.memo(in, best.Memo, requestedToThor.Floor()),
		Router:                best.Router,
		InboundAddress:        best.InboundAddress,
		Expiry:                best.Expiry,
		MaxFulfillmentSeconds: best.TotalSwapSeconds,
		CanBePartial:          canBePartial,
		Spread:                spr,
	}, nil
}

func (c *Calculator) spread(in Input, streaming bool) decimal.Decimal {
	if in.IsEstimate {
		return decimal.Zero
	}
	return spread.Select(in.Spreads.Track(streaming), in.Request.From, in.Request.To)
}

// memo writes the guaranteed output into the limit field of the node's memo.
func (c *Calculator) memo(in Input, memo string, limit decimal.Decimal) string {
	if in.IsEstimate {
		return memo
	}
	return strings.Replace(memo, ":0/", ":"+limit.String()+"/", 1)
}

// bestQuote requests an atomic and a streaming quote for amountThor concurrently and keeps the one
// with the larger output. On a tie the atomic quote wins. When neither is usable because the amount
// is too small, the largest reported minimum is returned as a LimitError.
func (c *Calculator) bestQuote(ctx context.Context, in Input, amountThor decimal.Decimal) (*quoteSwapResponse, decimal.Decimal, error) {
	noStream := quoteSwapRequest{
		FromAsset:         in.SourcePool.Asset,
		ToAsset:           in.DestPool.Asset,
		Amount:            amountThor.String(),
		Destination:       in.Destination,
		Affiliate:         in.Affiliate,
		AffiliateBps:      in.AffiliateBps,
		StreamingInterval: strconv.Itoa(noStreamInterval),
		StreamingQuantity: strconv.Itoa(noStreamQuantity),
	}
	stream := noStream
	stream.StreamingInterval = strconv.Itoa(in.StreamingInterval)
	stream.StreamingQuantity = strconv.Itoa(in.StreamingQuantity)

	params := []quoteSwapRequest{noStream, stream}

	type quoteResult struct {
		outcome quoteOutcome
		err     error
	}
	results := make([]quoteResult, len(params))

	// Failures stay in results so one track failing never cancels the other.
	var g errgroup.Group
	for i, p := range params {
		g.Go(func() error {
			outcome, err := c.client.getQuote(ctx, in.Thornodes, p)
			results[i] = quoteResult{outcome: outcome, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var (
		best    *quoteSwapResponse
		bestOut decimal.Decimal
		bestIdx int
		minThor *decimal.Decimal
		lastErr error
	)
	for i, res := range results {
		if res.err != nil {
			lastErr = res.err
			continue
		}
		if res.outcome.minAmount != nil {
			if minThor == nil || res.outcome.minAmount.GreaterThan(*minThor) {
				minThor = res.outcome.minAmount
			}
			continue
		}
		out, err := res.outcome.quote.expectedOut()
		if err != nil {
			lastErr = err
			continue
		}
		if best == nil || out.GreaterThan(bestOut) {
			best = res.outcome.quote
			bestOut = out
			bestIdx = i
		}
	}

	if best != nil {
		c.metrics.RecordTrack(PluginID, bestIdx == 1)
		return best, bestOut, nil
	}
	if minThor != nil {
		minNative, err := in.FromUnits.ReferenceToNative(ctx, in.Request.From, minThor.Div(thorUnits))
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("failed to convert minimum amount: %w", err)
		}
		return nil, decimal.Zero, swap.NewBelowLimitError(PluginID, minNative.Ceil(), swap.LimitSideFrom)
	}
	if lastErr != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to get quote: %w", lastErr)
	}
	return nil, decimal.Zero, errors.New("could not get quote")
}
