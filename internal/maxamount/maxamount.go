// Package maxamount turns a "swap my whole balance" request into a concrete from-amount request.
package maxamount

import (
	"context"
	"fmt"

	"github.com/vultisig/swap-quote/internal/lifecycle"
	"github.com/vultisig/swap-quote/internal/swap"
)

// QuoteFunc produces an executable quote for a concrete request.
type QuoteFunc func(ctx context.Context, req swap.Request) (*lifecycle.Quote, error)

type FeeRecorder interface {
	Set(sessionID string, fees map[string]string)
}

// Resolve returns req unchanged unless its direction is max. Otherwise a trial quote over the full
// balance tells which transaction the provider wants, and the wallet sizes that transaction to the
// largest amount it can afford.
func Resolve(ctx context.Context, req swap.Request, wallet swap.Wallet, quote QuoteFunc, fees FeeRecorder) (swap.Request, error) {
	if req.Direction != swap.DirectionMax {
		return req, nil
	}

	balance, err := wallet.Balance(ctx, req.From)
	if err != nil {
		return req, fmt.Errorf("failed to get balance: %w", err)
	}

	trialReq := req
	trialReq.NativeAmount = balance
	trialReq.Direction = swap.DirectionFrom

	trial, err := quote(ctx, trialReq)
	if err != nil {
		return req, fmt.Errorf("failed to get trial quote: %w", err)
	}
	defer trial.Close()

	var spend swap.SpendInstruction
	switch p := trial.Order().Payload.(type) {
	case swap.SpendInstruction:
		spend = p
	case *swap.SpendInstruction:
		spend = *p
	case swap.TxParams, *swap.TxParams:
		// Only the wallet that built the params could size them; leave the request as it was.
		return req, nil
	default:
		return req, fmt.Errorf("unknown settlement payload %T", p)
	}

	if fees != nil && len(spend.CustomFee) > 0 {
		fees.Set(req.SessionID, spend.CustomFee)
	}

	maxAmount, err := wallet.MaxSpendable(ctx, spend.WithoutAmount())
	if err != nil {
		return req, fmt.Errorf("failed to get max spendable: %w", err)
	}

	fee := trial.Fee()
	if fee.PreTxFee != nil && req.From.CurrencyCode == wallet.CurrencyCode() {
		maxAmount = maxAmount.Sub(*fee.PreTxFee)
	}
	if maxAmount.Sign() <= 0 {
		return req, fmt.Errorf("%w: %s spendable after fees is %s", swap.ErrInsufficientFunds, req.From, maxAmount)
	}

	out := req
	out.NativeAmount = maxAmount
	out.Direction = swap.DirectionFrom
	return out, nil
}
