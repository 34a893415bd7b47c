package swap

import (
	"github.com/shopspring/decimal"
)

// SettlementPayload is either a SpendInstruction or opaque TxParams.
// The unexported marker keeps the set of variants closed.
type SettlementPayload interface {
	settlementPayload()
}

type MemoType string

const (
	MemoText MemoType = "text"
	MemoHex  MemoType = "hex"
)

// SpendInstruction is a generic "send amount to destination with memo" request the wallet can
// fee-estimate on its own.
type SpendInstruction struct {
	TokenID     string
	Destination string
	// Amount is nil when the wallet should decide it (max-spendable estimation).
	Amount    *decimal.Decimal
	Memo      string
	MemoType  MemoType
	CustomFee map[string]string
	Action    string
}

func (SpendInstruction) settlementPayload() {}

// WithoutAmount returns a copy with the fixed amount removed.
func (s SpendInstruction) WithoutAmount() SpendInstruction {
	out := s
	out.Amount = nil
	out.CustomFee = copyFee(s.CustomFee)
	return out
}

type TxAsset struct {
	Asset    string
	Amount   decimal.Decimal
	Decimals string
}

// TxParams are transaction-builder parameters only the wallet collaborator understands.
type TxParams struct {
	Type   string
	Assets []TxAsset
	Memo   string
	Action string
}

func (TxParams) settlementPayload() {}

func copyFee(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
