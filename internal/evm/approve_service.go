package evm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/vultisig/swap-quote/internal/swap"
)

const ActionTokenApproval = "tokenApproval"

type ApproveService struct{}

func NewApproveService() *ApproveService {
	return &ApproveService{}
}

// ApprovalSpend builds the zero-value pre-transaction that lets spender pull amount of the token.
// It is always paid in the parent currency, so the instruction carries no token id.
func (a *ApproveService) ApprovalSpend(tokenAddress, spender string, amount decimal.Decimal) (*swap.SpendInstruction, error) {
	if !common.IsHexAddress(tokenAddress) {
		return nil, fmt.Errorf("invalid token address: %q", tokenAddress)
	}
	if !common.IsHexAddress(spender) {
		return nil, fmt.Errorf("invalid spender address: %q", spender)
	}

	wei, err := ToBigInt(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid approval amount: %w", err)
	}

	data, err := ApprovalData(common.HexToAddress(spender), wei)
	if err != nil {
		return nil, fmt.Errorf("failed to build approval data: %w", err)
	}

	zero := decimal.Zero
	return &swap.SpendInstruction{
		Destination: strings.ToLower(tokenAddress),
		Amount:      &zero,
		Memo:        data,
		MemoType:    swap.MemoHex,
		Action:      ActionTokenApproval,
	}, nil
}

// ToBigInt converts a whole native amount to *big.Int. Fractional amounts are rejected.
func ToBigInt(amount decimal.Decimal) (*big.Int, error) {
	if !amount.Equal(amount.Truncate(0)) {
		return nil, fmt.Errorf("amount %s is not a whole number of base units", amount)
	}
	return amount.BigInt(), nil
}
