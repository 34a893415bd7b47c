package evm

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20ABI = `[
	{"type":"function","name":"approve","stateMutability":"nonpayable",
	 "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]}
]`

const routerABI = `[
	{"type":"function","name":"depositWithExpiry","stateMutability":"payable",
	 "inputs":[
		{"name":"vault","type":"address"},
		{"name":"asset","type":"address"},
		{"name":"amount","type":"uint256"},
		{"name":"memo","type":"string"},
		{"name":"expiration","type":"uint256"}
	 ],
	 "outputs":[]}
]`

var (
	erc20Contract  = mustParseABI(erc20ABI)
	routerContract = mustParseABI(routerABI)
)

// ZeroAddress is the asset address the router expects for the chain's native coin.
var ZeroAddress = common.Address{}

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid abi: %v", err))
	}
	return parsed
}

// ApprovalData returns hex call data (no 0x prefix) for ERC20 approve(spender, amount).
func ApprovalData(spender common.Address, amount *big.Int) (string, error) {
	if amount == nil || amount.Sign() < 0 {
		return "", fmt.Errorf("invalid approval amount: %v", amount)
	}
	data, err := erc20Contract.Pack("approve", spender, amount)
	if err != nil {
		return "", fmt.Errorf("failed to pack approve: %w", err)
	}
	return hex.EncodeToString(data), nil
}

// DepositWithExpiryData returns hex call data (no 0x prefix) for the THORChain router deposit.
// asset is ZeroAddress when depositing the native coin.
func DepositWithExpiryData(
	vault, asset common.Address,
	amount *big.Int,
	memo string,
	expiry *big.Int,
) (string, error) {
	if amount == nil || amount.Sign() < 0 {
		return "", fmt.Errorf("invalid deposit amount: %v", amount)
	}
	if expiry == nil || expiry.Sign() <= 0 {
		return "", fmt.Errorf("invalid deposit expiry: %v", expiry)
	}
	data, err := routerContract.Pack("depositWithExpiry", vault, asset, amount, memo, expiry)
	if err != nil {
		return "", fmt.Errorf("failed to pack depositWithExpiry: %w", err)
	}
	return hex.EncodeToString(data), nil
}
