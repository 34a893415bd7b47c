// Package lifecycle wraps a computed swap order into an executable quote that can be approved
// (signed, broadcast, saved) or closed.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/swap-quote/internal/metrics"
	"github.com/vultisig/swap-quote/internal/status"
	"github.com/vultisig/swap-quote/internal/swap"
)

// MinExpiryMargin is the least time a freshly issued quote stays valid.
const MinExpiryMargin = 30 * time.Second

const txIDPlaceholder = "{{TXID}}"

var (
	ErrClosed        = errors.New("quote is closed")
	ErrPreTxRejected = errors.New("pre-transaction failed on chain")
	// ErrNotSaved means a transaction reached the network but the wallet failed to record it.
	// Approving again retries the save without broadcasting a second time.
	ErrNotSaved = errors.New("transaction broadcast but not saved")
)

type State int

const (
	StateNotApproved State = iota
	StatePreTxBroadcast
	StateBroadcast
)

func (s State) String() string {
	switch s {
	case StateNotApproved:
		return "not-approved"
	case StatePreTxBroadcast:
		return "pre-tx-broadcast"
	case StateBroadcast:
		return "broadcast"
	default:
		return "unknown"
	}
}

type Options struct {
	Clock  clock.Clock
	Logger logrus.FieldLogger
	// ConfirmInterval is the polling interval used when the wallet can report pre-transaction inclusion.
	ConfirmInterval time.Duration
}

// Fee is the total network fee of a quote. Amount is nil when the pre-transaction and main
// transaction pay in different units and cannot be summed.
type Fee struct {
	Amount       *decimal.Decimal
	CurrencyCode string
	MainFee      decimal.Decimal
	PreTxFee     *decimal.Decimal
	PreTxCode    string
}

type Result struct {
	Transaction        *swap.Transaction
	PreTx              *swap.Transaction
	OrderID            string
	OrderURI           string
	DestinationAddress string
}

// Quote is the executable wrapper around one Order.
type Quote struct {
	order   swap.Order
	wallet  swap.Wallet
	logger  logrus.FieldLogger
	clk     clock.Clock
	metrics *metrics.LifecycleMetrics
	confirm time.Duration

	mainTx *swap.Transaction
	preTx  *swap.Transaction
	fee    Fee

	closed atomic.Bool

	// mu guards state. run serializes Approve and guards the execution fields below it.
	mu    sync.Mutex
	state State

	run            sync.Mutex
	preTxSaved     bool
	preTxConfirmed bool
	preTxErr       error
	broadcast      *swap.Transaction
	result         *Result
}

// New validates the order and builds the unsigned main transaction and optional pre-transaction.
func New(ctx context.Context, order swap.Order, wallet swap.Wallet, opts Options) (*Quote, error) {
	if err := validate(order); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	mainTx, err := buildTx(ctx, wallet, order.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build swap transaction: %w", err)
	}

	var preTx *swap.Transaction
	if order.PreTx != nil {
		preTx, err = wallet.MakeSpend(ctx, *order.PreTx)
		if err != nil {
			return nil, fmt.Errorf("failed to build pre-transaction: %w", err)
		}
	}

	order.ExpiresAt = swap.EnsureInFuture(opts.Clock.Now(), order.ExpiresAt, MinExpiryMargin)

	return &Quote{
		order:   order,
		wallet:  wallet,
		logger:  opts.Logger.WithField("pkg", "lifecycle"),
		clk:     opts.Clock,
		metrics: metrics.NewLifecycleMetrics(),
		confirm: opts.ConfirmInterval,
		mainTx:  mainTx,
		preTx:   preTx,
		fee:     aggregateFee(mainTx, preTx),
	}, nil
}

func validate(order swap.Order) error {
	var missing []string
	if order.FromAmount.Sign() <= 0 {
		missing = append(missing, "fromAmount")
	}
	if order.ToAmount.Sign() <= 0 {
		missing = append(missing, "toAmount")
	}
	if order.DestinationAddress == "" {
		missing = append(missing, "destinationAddress")
	}
	if order.Payload == nil {
		missing = append(missing, "payload")
	}
	if len(missing) > 0 {
		return &swap.InvalidOrderError{Provider: order.Provider.PluginID, Missing: missing}
	}
	return nil
}

func buildTx(ctx context.Context, wallet swap.Wallet, payload swap.SettlementPayload) (*swap.Transaction, error) {
	switch p := payload.(type) {
	case swap.SpendInstruction:
		return wallet.MakeSpend(ctx, p)
	case *swap.SpendInstruction:
		return wallet.MakeSpend(ctx, *p)
	case swap.TxParams:
		return wallet.MakeTx(ctx, p)
	case *swap.TxParams:
		return wallet.MakeTx(ctx, *p)
	default:
		return nil, fmt.Errorf("unknown settlement payload %T", payload)
	}
}

func aggregateFee(mainTx, preTx *swap.Transaction) Fee {
	mainFee, mainCode := mainTx.Fee()
	fee := Fee{
		CurrencyCode: mainCode,
		MainFee:      mainFee,
	}
	if preTx == nil {
		fee.Amount = &mainFee
		return fee
	}

	preFee, preCode := preTx.Fee()
	fee.PreTxFee = &preFee
	fee.PreTxCode = preCode
	if preCode == mainCode {
		total := mainFee.Add(preFee)
		fee.Amount = &total
	}
	return fee
}

func (q *Quote) Order() swap.Order {
	return q.order
}

func (q *Quote) Fee() Fee {
	return q.fee
}

func (q *Quote) ExpiresAt() time.Time {
	return q.order.ExpiresAt
}

func (q *Quote) Expired() bool {
	return !q.clk.Now().Before(q.order.ExpiresAt)
}

func (q *Quote) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

func (q *Quote) setState(state State) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.state = state
}

// Approve executes the quote. Each transaction is broadcast at most once: a broadcast transaction
// is recorded before it is saved, so a failed save is retried on the next call instead of
// broadcasting again. Calling Approve after success returns the cached result.
func (q *Quote) Approve(ctx context.Context, meta *swap.Metadata) (*Result, error) {
	q.run.Lock()
	defer q.run.Unlock()

	if q.result != nil {
		return q.result, nil
	}
	if q.closed.Load() && q.broadcast == nil {
		return nil, ErrClosed
	}

	provider := q.order.Provider.PluginID
	logger := q.logger.WithFields(logrus.Fields{
		"provider": provider,
		"session":  q.order.SessionID,
	})

	if q.preTx != nil && q.broadcast == nil {
		if err := q.approvePreTx(ctx, provider, logger); err != nil {
			return nil, err
		}
		if err := q.awaitPreTx(ctx); err != nil {
			return nil, err
		}
		if q.closed.Load() {
			return nil, ErrClosed
		}
	}

	if q.broadcast == nil {
		mainTx := *q.mainTx
		mainTx.Metadata = q.metadata(mainTx.Metadata, meta)

		broadcast, err := q.signAndBroadcast(ctx, &mainTx)
		q.metrics.RecordBroadcast(provider, metrics.StageMainTx, err == nil)
		if err != nil {
			if q.preTx != nil {
				logger.WithError(err).WithField("pre_tx_id", q.preTx.TxID).Error("main transaction failed after pre-transaction")
				return nil, &swap.PartialExecutionError{PreTxID: q.preTx.TxID, Err: err}
			}
			return nil, err
		}
		q.broadcast = broadcast
		q.setState(StateBroadcast)
		logger.WithField("tx_id", broadcast.TxID).Info("swap transaction broadcast")
	}

	if err := q.wallet.Save(context.WithoutCancel(ctx), q.broadcast); err != nil {
		logger.WithError(err).WithField("tx_id", q.broadcast.TxID).Error("failed to save swap transaction")
		return nil, fmt.Errorf("%w: %s: %w", ErrNotSaved, q.broadcast.TxID, err)
	}

	q.result = &Result{
		Transaction:        q.broadcast,
		PreTx:              q.preTx,
		OrderID:            q.orderID(q.broadcast),
		OrderURI:           strings.ReplaceAll(q.order.Provider.OrderURI, txIDPlaceholder, q.broadcast.TxID),
		DestinationAddress: q.order.DestinationAddress,
	}
	logger.WithField("order_id", q.result.OrderID).Info("swap transaction saved")
	return q.result, nil
}

// approvePreTx broadcasts the pre-transaction unless that already happened, then saves it.
func (q *Quote) approvePreTx(ctx context.Context, provider string, logger logrus.FieldLogger) error {
	if q.State() == StateNotApproved {
		preTx, err := q.signAndBroadcast(ctx, q.preTx)
		q.metrics.RecordBroadcast(provider, metrics.StagePreTx, err == nil)
		if err != nil {
			return fmt.Errorf("failed to execute pre-transaction: %w", err)
		}
		q.preTx = preTx
		q.setState(StatePreTxBroadcast)
		logger.WithField("tx_id", preTx.TxID).Info("pre-transaction broadcast")
	}
	if q.preTxSaved {
		return nil
	}
	// Once broadcast, the approval must also be saved, so the caller cannot cancel mid-way.
	if err := q.wallet.Save(context.WithoutCancel(ctx), q.preTx); err != nil {
		logger.WithError(err).WithField("tx_id", q.preTx.TxID).Error("failed to save pre-transaction")
		return fmt.Errorf("%w: pre-transaction %s: %w", ErrNotSaved, q.preTx.TxID, err)
	}
	q.preTxSaved = true
	return nil
}

// awaitPreTx blocks until the pre-transaction is included when the wallet can report it.
func (q *Quote) awaitPreTx(ctx context.Context) error {
	if q.preTxErr != nil {
		return q.preTxErr
	}
	if q.preTxConfirmed {
		return nil
	}
	checker, ok := q.wallet.(status.Checker)
	if !ok {
		q.preTxConfirmed = true
		return nil
	}

	res, err := status.NewStatus(checker, q.confirm).WaitMined(ctx, q.preTx.TxID)
	if err != nil {
		return fmt.Errorf("failed to confirm pre-transaction %s: %w", q.preTx.TxID, err)
	}
	if res == status.TxFailed {
		q.preTxErr = fmt.Errorf("%w: %s", ErrPreTxRejected, q.preTx.TxID)
		return q.preTxErr
	}
	q.preTxConfirmed = true
	return nil
}

func (q *Quote) signAndBroadcast(ctx context.Context, tx *swap.Transaction) (*swap.Transaction, error) {
	signed, err := q.wallet.Sign(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	broadcast, err := q.wallet.Broadcast(ctx, signed)
	if err != nil {
		return nil, fmt.Errorf("failed to broadcast: %w", err)
	}
	return broadcast, nil
}

// metadata overlays the transaction's own metadata onto the caller's and puts the provider notes first.
func (q *Quote) metadata(txMeta swap.Metadata, meta *swap.Metadata) swap.Metadata {
	var caller swap.Metadata
	if meta != nil {
		caller = *meta
	}
	out := txMeta.Merge(caller)
	if notes := q.order.MetadataNotes; notes != "" {
		if out.Notes != "" {
			out.Notes = notes + "\n\n" + out.Notes
		} else {
			out.Notes = notes
		}
	}
	return out
}

func (q *Quote) orderID(tx *swap.Transaction) string {
	if q.order.Provider.IsDex {
		return tx.TxID
	}
	return q.order.OrderID
}

// Close releases the quote. It is safe to call at any time and more than once, and never waits
// for an Approve in progress; that call stops before its next broadcast.
func (q *Quote) Close() error {
	q.closed.Store(true)
	return nil
}
