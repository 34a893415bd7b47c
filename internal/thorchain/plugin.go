package thorchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/swap-quote/internal/evm"
	"github.com/vultisig/swap-quote/internal/exchangeinfo"
	"github.com/vultisig/swap-quote/internal/feecache"
	"github.com/vultisig/swap-quote/internal/lifecycle"
	"github.com/vultisig/swap-quote/internal/maxamount"
	"github.com/vultisig/swap-quote/internal/metrics"
	"github.com/vultisig/swap-quote/internal/swap"
)

// depositExpiry is used for the router call when the node does not state an expiry.
const depositExpiry = time.Hour

type Options struct {
	Thorname string
	Clock    clock.Clock
	Logger   logrus.FieldLogger
}

// Plugin quotes and builds swaps routed through THORChain.
type Plugin struct {
	client   *Client
	calc     *Calculator
	info     *exchangeinfo.Source
	fees     *feecache.Cache
	approve  *evm.ApproveService
	thorname string
	clk      clock.Clock
	logger   logrus.FieldLogger
	metrics  *metrics.QuoteMetrics
}

func NewPlugin(client *Client, info *exchangeinfo.Source, fees *feecache.Cache, opts Options) *Plugin {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Thorname == "" {
		opts.Thorname = DefaultThorname
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	logger := opts.Logger.WithField("pkg", "thorchain")
	return &Plugin{
		client:   client,
		calc:     NewCalculator(client, logger),
		info:     info,
		fees:     fees,
		approve:  evm.NewApproveService(),
		thorname: opts.Thorname,
		clk:      opts.Clock,
		logger:   logger,
		metrics:  metrics.NewQuoteMetrics(),
	}
}

func (p *Plugin) Info() swap.ProviderInfo {
	return swap.ProviderInfo{
		PluginID:    PluginID,
		DisplayName: DisplayName,
		IsDex:       true,
		OrderURI:    OrderURI,
	}
}

// FetchQuote returns an executable quote for req. Max requests are sized to the wallet first.
func (p *Plugin) FetchQuote(ctx context.Context, req swap.Request, fromWallet, toWallet swap.Wallet) (q *lifecycle.Quote, err error) {
	start := p.clk.Now()
	defer func() {
		p.recordQuote(req.Direction, start, err)
	}()

	if req.SessionID == "" {
		req.SessionID = p.fees.NewSession()
	}

	var order swap.Order
	if req.Direction == swap.DirectionMax && req.From.PluginID == runePluginID {
		order, err = p.runeMaxOrder(ctx, req, fromWallet, toWallet)
	} else {
		var resolved swap.Request
		resolved, err = maxamount.Resolve(ctx, req, fromWallet, func(ctx context.Context, trial swap.Request) (*lifecycle.Quote, error) {
			o, err := p.Order(ctx, trial, fromWallet, toWallet)
			if err != nil {
				return nil, err
			}
			return lifecycle.New(ctx, o, fromWallet, p.lifecycleOptions())
		}, p.fees)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve max amount: %w", err)
		}
		order, err = p.Order(ctx, resolved, fromWallet, toWallet)
	}
	if err != nil {
		return nil, err
	}

	return lifecycle.New(ctx, order, fromWallet, p.lifecycleOptions())
}

// Estimate prices req without a wallet: no spread is applied and no payload is built.
func (p *Plugin) Estimate(ctx context.Context, req swap.Request, units swap.UnitConverter, destination string) (res Result, err error) {
	start := p.clk.Now()
	defer func() {
		p.recordQuote(req.Direction, start, err)
	}()

	pr, err := p.price(ctx, req, units, units, destination, true)
	if err != nil {
		return Result{}, err
	}
	return pr.Result, nil
}

// runeMaxOrder quotes a fixed RUNE amount, lets the wallet size the deposit to its balance and
// quotes again with that amount.
func (p *Plugin) runeMaxOrder(ctx context.Context, req swap.Request, fromWallet, toWallet swap.Wallet) (swap.Order, error) {
	estimator, ok := fromWallet.(swap.MaxTxEstimator)
	if !ok {
		return swap.Order{}, errors.New("wallet cannot estimate max deposit")
	}

	trial := req
	trial.NativeAmount = maxTrialAmount
	trial.Direction = swap.DirectionFrom

	order, err := p.Order(ctx, trial, fromWallet, toWallet)
	if err != nil {
		return swap.Order{}, fmt.Errorf("failed to get trial quote: %w", err)
	}
	params, ok := order.Payload.(swap.TxParams)
	if !ok {
		return swap.Order{}, fmt.Errorf("unexpected payload %T for %s", order.Payload, runePluginID)
	}

	maxAmount, err := estimator.MaxTx(ctx, params)
	if err != nil {
		return swap.Order{}, fmt.Errorf("failed to get max deposit: %w", err)
	}

	sized := req
	sized.NativeAmount = maxAmount
	sized.Direction = swap.DirectionFrom
	return p.Order(ctx, sized, fromWallet, toWallet)
}

type priced struct {
	Result
	sourcePool resolvedPool
	network    thorNetwork
}

// price runs the pool calculation for a from or to request.
func (p *Plugin) price(
	ctx context.Context,
	req swap.Request,
	fromUnits, toUnits swap.UnitConverter,
	destination string,
	isEstimate bool,
) (priced, error) {
	if !req.Direction.Valid() {
		return priced{}, fmt.Errorf("unsupported direction %q", req.Direction)
	}
	if req.From.PluginID == req.To.PluginID && req.From.CurrencyCode == req.To.CurrencyCode {
		return priced{}, p.unsupported(req, "same asset")
	}
	if isInvalid(invalidFromCodes, req.From) || isInvalid(invalidToCodes, req.To) {
		return priced{}, p.unsupported(req, "currency code not supported")
	}

	fromNet, ok := networkFor(req.From.PluginID)
	if !ok {
		return priced{}, p.unsupported(req, "source chain not supported")
	}
	toNet, ok := networkFor(req.To.PluginID)
	if !ok {
		return priced{}, p.unsupported(req, "destination chain not supported")
	}

	info := p.info.Get(ctx)

	pools, err := p.client.getPools(ctx, info.MidgardServers)
	if err != nil {
		return priced{}, err
	}
	sourcePool, err := getPool(pools, fromNet, req.From)
	if err != nil {
		return priced{}, p.unsupported(req, err.Error())
	}
	destPool, err := getPool(pools, toNet, req.To)
	if err != nil {
		return priced{}, p.unsupported(req, err.Error())
	}

	res, err := p.calc.Quote(ctx, Input{
		Request:           req,
		SourcePool:        sourcePool.Pool,
		DestPool:          destPool.Pool,
		Destination:       destination,
		FromUnits:         fromUnits,
		ToUnits:           toUnits,
		Spreads:           info.Spreads,
		Thornodes:         info.ThornodeServers,
		Affiliate:         p.thorname,
		AffiliateBps:      info.AffiliateFeeBasis,
		StreamingInterval: info.StreamingInterval,
		StreamingQuantity: info.StreamingQuantity,
		IsEstimate:        isEstimate,
	})
	if err != nil {
		return priced{}, err
	}
	return priced{Result: res, sourcePool: sourcePool, network: fromNet}, nil
}

// Order computes the unsigned swap order for a from or to request.
func (p *Plugin) Order(ctx context.Context, req swap.Request, fromWallet, toWallet swap.Wallet) (swap.Order, error) {
	if req.Direction == swap.DirectionMax {
		return swap.Order{}, errors.New("max requests must be resolved to a from amount first")
	}

	toAddress, err := toWallet.Address(ctx, req.To)
	if err != nil {
		return swap.Order{}, fmt.Errorf("failed to get destination address: %w", err)
	}

	pr, err := p.price(ctx, req, fromWallet, toWallet, toAddress, false)
	if err != nil {
		return swap.Order{}, err
	}

	payload, preTx, err := p.payload(req, pr)
	if err != nil {
		return swap.Order{}, err
	}

	minReceive := pr.ToNative
	return swap.Order{
		Request:               req,
		Provider:              p.Info(),
		FromAmount:            pr.FromNative,
		ToAmount:              pr.ToNative,
		MinReceiveAmount:      &minReceive,
		Payload:               payload,
		PreTx:                 preTx,
		DestinationAddress:    toAddress,
		ExpiresAt:             p.clk.Now().Add(Expiration),
		MaxFulfillmentSeconds: pr.MaxFulfillmentSeconds,
		CanBePartial:          pr.CanBePartial,
		SessionID:             req.SessionID,
	}, nil
}

// payload builds the settlement for the source chain family.
func (p *Plugin) payload(req swap.Request, pr priced) (swap.SettlementPayload, *swap.SpendInstruction, error) {
	switch {
	case evm.IsEVM(string(pr.network)):
		return p.evmPayload(req, pr)
	case req.From.PluginID == runePluginID:
		return swap.TxParams{
			Type: txTypeDeposit,
			Assets: []swap.TxAsset{{
				Asset:    runeAsset,
				Amount:   pr.FromNative,
				Decimals: thorUnits.String(),
			}},
			Memo:   pr.Memo,
			Action: actionSwap,
		}, nil, nil
	default:
		if !req.From.IsNative() {
			return nil, nil, p.unsupported(req, "tokens are not supported on "+string(pr.network))
		}
		if pr.InboundAddress == "" {
			return nil, nil, errors.New("quote has no inbound address")
		}
		amount := pr.FromNative
		return swap.SpendInstruction{
			Destination: pr.InboundAddress,
			Amount:      &amount,
			Memo:        pr.Memo,
			MemoType:    swap.MemoText,
			CustomFee:   p.customFee(req.SessionID, nil),
			Action:      actionSwap,
		}, nil, nil
	}
}

// evmPayload calls the router's depositWithExpiry. Token sources send no native value and need an
// approval pre-transaction for the router.
func (p *Plugin) evmPayload(req swap.Request, pr priced) (swap.SettlementPayload, *swap.SpendInstruction, error) {
	if pr.Router == "" {
		return nil, nil, fmt.Errorf("missing router address for %s", pr.network)
	}
	if pr.InboundAddress == "" {
		return nil, nil, errors.New("invalid vault address")
	}

	amountWei, err := evm.ToBigInt(pr.FromNative)
	if err != nil {
		return nil, nil, err
	}

	asset := evm.ZeroAddress
	value := pr.FromNative
	var preTx *swap.SpendInstruction
	var gas map[string]string

	if req.From.IsNative() {
		gas = map[string]string{"gasLimit": evm.GasLimit(string(pr.network), false)}
	} else {
		if pr.sourcePool.Contract == "" {
			return nil, nil, fmt.Errorf("missing token contract for %s", pr.sourcePool.Asset)
		}
		asset = common.HexToAddress(pr.sourcePool.Contract)
		value = decimal.Zero

		preTx, err = p.approve.ApprovalSpend(pr.sourcePool.Contract, pr.Router, pr.FromNative)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build approval: %w", err)
		}
	}

	expiry := pr.Expiry
	if expiry <= 0 {
		expiry = p.clk.Now().Add(depositExpiry).Unix()
	}

	data, err := evm.DepositWithExpiryData(
		common.HexToAddress(pr.InboundAddress),
		asset,
		amountWei,
		pr.Memo,
		big.NewInt(expiry),
	)
	if err != nil {
		return nil, nil, err
	}

	return swap.SpendInstruction{
		TokenID:     req.From.TokenID,
		Destination: pr.Router,
		Amount:      &value,
		Memo:        data,
		MemoType:    swap.MemoHex,
		CustomFee:   p.customFee(req.SessionID, gas),
		Action:      actionSwap,
	}, preTx, nil
}

// customFee merges the fee settings cached for the session with the plugin's own, which win.
func (p *Plugin) customFee(sessionID string, own map[string]string) map[string]string {
	cached, _ := p.fees.Get(sessionID)
	if len(cached) == 0 && len(own) == 0 {
		return nil
	}
	out := make(map[string]string, len(cached)+len(own))
	for k, v := range cached {
		out[k] = v
	}
	for k, v := range own {
		out[k] = v
	}
	return out
}

func (p *Plugin) unsupported(req swap.Request, reason string) error {
	return &swap.UnsupportedPairError{
		Provider: PluginID,
		From:     req.From,
		To:       req.To,
		Reason:   reason,
	}
}

func (p *Plugin) lifecycleOptions() lifecycle.Options {
	return lifecycle.Options{
		Clock:  p.clk,
		Logger: p.logger,
	}
}

func (p *Plugin) recordQuote(direction swap.Direction, start time.Time, err error) {
	status := metrics.StatusSuccess
	switch {
	case err == nil:
	case errors.Is(err, swap.ErrBelowMinimum):
		status = metrics.StatusBelowLimit
	case errors.Is(err, swap.ErrUnsupportedPair):
		status = metrics.StatusUnsupported
	default:
		status = metrics.StatusError
	}
	p.metrics.RecordQuote(PluginID, string(direction), status, p.clk.Now().Sub(start))

	if err != nil {
		p.logger.WithFields(logrus.Fields{
			"direction": direction,
			"status":    status,
		}).WithError(err).Debug("quote failed")
	}
}
