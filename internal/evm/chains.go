package evm

// Gas limit overrides for router deposits. Wallet estimators cannot size a native send that
// carries contract call data on their own.
const (
	SendGasLimit      = "80000"
	TokenSendGasLimit = "80000"
)

var evmNetworks = map[string]bool{
	"ARB":  true,
	"AVAX": true,
	"BASE": true,
	"BSC":  true,
	"ETC":  true,
	"ETH":  true,
	"FTM":  true,
}

// IsEVM checks whether a THORChain network code settles through the EVM router contract.
func IsEVM(networkCode string) bool {
	return evmNetworks[networkCode]
}

// GasLimit returns the override for a deposit from networkCode, or "" for non-EVM networks.
func GasLimit(networkCode string, isToken bool) string {
	if !IsEVM(networkCode) {
		return ""
	}
	if isToken {
		return TokenSendGasLimit
	}
	return SendGasLimit
}
