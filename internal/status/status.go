package status

import (
	"context"
	"time"
)

type TxStatus string

const (
	TxPending TxStatus = "pending"
	TxSuccess TxStatus = "success"
	TxFailed  TxStatus = "failed"
)

// Checker is implemented by wallets able to look up on-chain inclusion of a broadcast transaction.
type Checker interface {
	TxStatus(ctx context.Context, txID string) (TxStatus, error)
}

type Status struct {
	caller   Checker
	interval time.Duration
}

func NewStatus(caller Checker, interval time.Duration) *Status {
	if interval <= 0 {
		interval = time.Second
	}
	return &Status{
		caller:   caller,
		interval: interval,
	}
}

func (s *Status) WaitMined(ctx context.Context, txHash string) (TxStatus, error) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
			status, err := s.caller.TxStatus(ctx, txHash)
			if err != nil {
				return "", err
			}
			if status != TxPending {
				return status, nil
			}
		}
	}
}
