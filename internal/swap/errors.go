package swap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrBelowMinimum      = errors.New("swap amount below minimum")
	ErrAboveMaximum      = errors.New("swap amount above maximum")
	ErrUnsupportedPair   = errors.New("unsupported swap pair")
	ErrTransientFetch    = errors.New("all endpoints failed")
	ErrInvalidOrder      = errors.New("invalid order shape")
	ErrPartialExecution  = errors.New("pre-transaction broadcast but main transaction failed")
	ErrInsufficientFunds = errors.New("insufficient funds to cover swap fees")
)

type LimitSide string

const (
	LimitSideFrom LimitSide = "from"
	LimitSideTo   LimitSide = "to"
)

// LimitError carries a concrete native amount the UI can display.
type LimitError struct {
	Provider string
	Limit    decimal.Decimal
	Side     LimitSide
	Above    bool
}

func NewBelowLimitError(provider string, limit decimal.Decimal, side LimitSide) *LimitError {
	return &LimitError{Provider: provider, Limit: limit, Side: side}
}

func NewAboveLimitError(provider string, limit decimal.Decimal, side LimitSide) *LimitError {
	return &LimitError{Provider: provider, Limit: limit, Side: side, Above: true}
}

func (e *LimitError) Error() string {
	kind := "below minimum"
	if e.Above {
		kind = "above maximum"
	}
	return fmt.Sprintf("%s: %s amount %s %s", e.Provider, e.Side, kind, e.Limit.String())
}

func (e *LimitError) Is(target error) bool {
	if e.Above {
		return target == ErrAboveMaximum
	}
	return target == ErrBelowMinimum
}

type UnsupportedPairError struct {
	Provider string
	From     AssetRef
	To       AssetRef
	Reason   string
}

func (e *UnsupportedPairError) Error() string {
	msg := fmt.Sprintf("%s: unsupported pair %s -> %s", e.Provider, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *UnsupportedPairError) Is(target error) bool {
	return target == ErrUnsupportedPair
}

// HTTPStatusError is an upstream non-2xx response.
type HTTPStatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// FetchError is returned once every endpoint of a race has failed or timed out.
type FetchError struct {
	Endpoints []string
	Path      string
	Last      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf(
		"all %d endpoints failed for %q [%s], last error: %v",
		len(e.Endpoints),
		e.Path,
		strings.Join(e.Endpoints, ", "),
		e.Last,
	)
}

func (e *FetchError) Unwrap() error {
	return e.Last
}

func (e *FetchError) Is(target error) bool {
	return target == ErrTransientFetch
}

type InvalidOrderError struct {
	Provider string
	Missing  []string
}

func (e *InvalidOrderError) Error() string {
	return fmt.Sprintf("invalid order from %s: missing %s", e.Provider, strings.Join(e.Missing, ", "))
}

func (e *InvalidOrderError) Is(target error) bool {
	return target == ErrInvalidOrder
}

// PartialExecutionError wraps the main transaction failure; errors.Is/As still reach it.
type PartialExecutionError struct {
	PreTxID string
	Err     error
}

func (e *PartialExecutionError) Error() string {
	return fmt.Sprintf("pre-transaction %s broadcast, main transaction failed: %v", e.PreTxID, e.Err)
}

func (e *PartialExecutionError) Unwrap() error {
	return e.Err
}

func (e *PartialExecutionError) Is(target error) bool {
	return target == ErrPartialExecution
}
