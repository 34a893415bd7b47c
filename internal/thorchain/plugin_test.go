package thorchain

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vultisig/swap-quote/internal/evm"
	"github.com/vultisig/swap-quote/internal/swap"
)

func TestOrder_EVMNativePayload(t *testing.T) {
	env := newTestEnv(t, newFakeNode("0.05"))

	order, err := env.plugin.Order(context.Background(), swap.Request{
		From:         ethRef,
		To:           btcRef,
		NativeAmount: d("1000000000000000000"),
		Direction:    swap.DirectionFrom,
	}, newWallet("ETH"), newWallet("BTC"))
	require.NoError(t, err)
	assert.Nil(t, order.PreTx)
	assert.Equal(t, "4950000", order.ToAmount.String())
	assert.Equal(t, env.clk.Now().Add(Expiration), order.ExpiresAt)

	spend, ok := order.Payload.(swap.SpendInstruction)
	require.True(t, ok)
	assert.Equal(t, testRouter, spend.Destination)
	assert.Equal(t, swap.MemoHex, spend.MemoType)
	require.NotNil(t, spend.Amount)
	assert.Equal(t, "1000000000000000000", spend.Amount.String())
	assert.Equal(t, map[string]string{"gasLimit": evm.SendGasLimit}, spend.CustomFee)

	want, err := evm.DepositWithExpiryData(
		common.HexToAddress(testInbound),
		evm.ZeroAddress,
		big.NewInt(1_000_000_000_000_000_000),
		"=:BTC.BTC:addr-bitcoin:4950000/1/1",
		big.NewInt(testExpiry),
	)
	require.NoError(t, err)
	assert.Equal(t, want, spend.Memo)
}

func TestOrder_EVMTokenPayloadNeedsApproval(t *testing.T) {
	env := newTestEnv(t, newFakeNode("0.00001"))

	order, err := env.plugin.Order(context.Background(), swap.Request{
		From:         usdcRef,
		To:           btcRef,
		NativeAmount: d("100000000"),
		Direction:    swap.DirectionFrom,
	}, newWallet("ETH"), newWallet("BTC"))
	require.NoError(t, err)

	spend, ok := order.Payload.(swap.SpendInstruction)
	require.True(t, ok)
	assert.Equal(t, usdcToken, spend.TokenID)
	assert.Equal(t, testRouter, spend.Destination)
	require.NotNil(t, spend.Amount)
	assert.True(t, spend.Amount.IsZero())
	assert.Empty(t, spend.CustomFee)

	want, err := evm.DepositWithExpiryData(
		common.HexToAddress(testInbound),
		common.HexToAddress(usdcToken),
		big.NewInt(100_000_000),
		"=:BTC.BTC:addr-bitcoin:99000/1/1",
		big.NewInt(testExpiry),
	)
	require.NoError(t, err)
	assert.Equal(t, want, spend.Memo)

	require.NotNil(t, order.PreTx)
	assert.Equal(t, "0x"+usdcToken, order.PreTx.Destination)
	assert.Equal(t, evm.ActionTokenApproval, order.PreTx.Action)
	assert.True(t, strings.HasPrefix(order.PreTx.Memo, "095ea7b3"), order.PreTx.Memo)
	assert.Empty(t, order.PreTx.TokenID)
}

func TestOrder_RunePayload(t *testing.T) {
	env := newTestEnv(t, newFakeNode("0.00005"))

	order, err := env.plugin.Order(context.Background(), swap.Request{
		From:         runeRef,
		To:           btcRef,
		NativeAmount: d("1000000000"),
		Direction:    swap.DirectionFrom,
	}, newWallet("RUNE"), newWallet("BTC"))
	require.NoError(t, err)

	params, ok := order.Payload.(swap.TxParams)
	require.True(t, ok)
	assert.Equal(t, txTypeDeposit, params.Type)
	assert.Equal(t, actionSwap, params.Action)
	require.Len(t, params.Assets, 1)
	assert.Equal(t, runeAsset, params.Assets[0].Asset)
	assert.Equal(t, "1000000000", params.Assets[0].Amount.String())
	assert.True(t, strings.HasPrefix(params.Memo, "=:BTC.BTC:addr-bitcoin:"), params.Memo)
	assert.Nil(t, order.PreTx)

	q := env.node.queries()
	require.NotEmpty(t, q)
	assert.Equal(t, runeAsset, q[0].Get("from_asset"))
}

func TestOrder_UTXOPayload(t *testing.T) {
	env := newTestEnv(t, newFakeNode("20"))

	order, err := env.plugin.Order(context.Background(), swap.Request{
		From:         btcRef,
		To:           ethRef,
		NativeAmount: d("100000000"),
		Direction:    swap.DirectionFrom,
	}, newWallet("BTC"), newWallet("ETH"))
	require.NoError(t, err)

	spend, ok := order.Payload.(swap.SpendInstruction)
	require.True(t, ok)
	assert.Equal(t, testInbound, spend.Destination)
	assert.Equal(t, swap.MemoText, spend.MemoType)
	assert.Equal(t, "100000000", spend.Amount.String())
	assert.Equal(t, "addr-ethereum", order.DestinationAddress)
	assert.Equal(t, PluginID, order.Provider.PluginID)
	assert.True(t, order.Provider.IsDex)
}

func TestOrder_Unsupported(t *testing.T) {
	tests := []struct {
		name string
		from swap.AssetRef
		to   swap.AssetRef
	}{
		{name: "same asset", from: btcRef, to: btcRef},
		{name: "unknown chain", from: swap.AssetRef{PluginID: "solana", CurrencyCode: "SOL"}, to: btcRef},
		{name: "blocked destination code", from: btcRef, to: swap.AssetRef{PluginID: "zcash", CurrencyCode: "ZEC"}},
		{name: "pool not available", from: btcRef, to: swap.AssetRef{PluginID: "ethereum", CurrencyCode: "STAGED"}},
		{name: "no pool", from: btcRef, to: swap.AssetRef{PluginID: "litecoin", CurrencyCode: "LTC"}},
		{name: "utxo token", from: fooRef, to: ethRef},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, newFakeNode("1"))

			_, err := env.plugin.Order(context.Background(), swap.Request{
				From:         tt.from,
				To:           tt.to,
				NativeAmount: d("100000000"),
				Direction:    swap.DirectionFrom,
			}, newWallet(tt.from.CurrencyCode), newWallet(tt.to.CurrencyCode))
			require.Error(t, err)
			assert.ErrorIs(t, err, swap.ErrUnsupportedPair)

			var unsupported *swap.UnsupportedPairError
			require.ErrorAs(t, err, &unsupported)
			assert.Equal(t, PluginID, unsupported.Provider)
			assert.Equal(t, tt.from, unsupported.From)
		})
	}
}

func TestOrder_RejectsUnresolvedMax(t *testing.T) {
	env := newTestEnv(t, newFakeNode("20"))

	_, err := env.plugin.Order(context.Background(), swap.Request{
		From:      btcRef,
		To:        ethRef,
		Direction: swap.DirectionMax,
	}, newWallet("BTC"), newWallet("ETH"))
	require.Error(t, err)
	assert.Empty(t, env.node.queries())
}

func TestOrder_MergesSessionFees(t *testing.T) {
	env := newTestEnv(t, newFakeNode("0.05"))
	env.fees.Set("session-1", map[string]string{"gasPrice": "30", "gasLimit": "1"})

	order, err := env.plugin.Order(context.Background(), swap.Request{
		From:         ethRef,
		To:           btcRef,
		NativeAmount: d("1000000000000000000"),
		Direction:    swap.DirectionFrom,
		SessionID:    "session-1",
	}, newWallet("ETH"), newWallet("BTC"))
	require.NoError(t, err)

	spend := order.Payload.(swap.SpendInstruction)
	assert.Equal(t, map[string]string{"gasLimit": "80000", "gasPrice": "30"}, spend.CustomFee)
	assert.Equal(t, "session-1", order.SessionID)
}

func TestFetchQuote_MaxNative(t *testing.T) {
	env := newTestEnv(t, newFakeNode("0.05"))
	from := newWallet("ETH")
	from.Balances[ethRef.String()] = d("2000000000000000000")
	from.MaxSpendableFn = func(spend swap.SpendInstruction) (decimal.Decimal, error) {
		return d("1500000000000000000"), nil
	}

	q, err := env.plugin.FetchQuote(context.Background(), swap.Request{
		From:      ethRef,
		To:        btcRef,
		Direction: swap.DirectionMax,
	}, from, newWallet("BTC"))
	require.NoError(t, err)
	defer q.Close()

	order := q.Order()
	assert.Equal(t, "1500000000000000000", order.FromAmount.String())
	assert.Equal(t, swap.DirectionFrom, order.Request.Direction)
	require.NotEmpty(t, order.SessionID)

	require.Len(t, from.MaxQueries, 1)
	assert.Nil(t, from.MaxQueries[0].Amount)
	assert.Equal(t, testRouter, from.MaxQueries[0].Destination)

	fees, ok := env.fees.Get(order.SessionID)
	require.True(t, ok)
	assert.Equal(t, evm.SendGasLimit, fees["gasLimit"])

	assert.ElementsMatch(t, []string{
		"200000000", "200000000",
		"150000000", "150000000",
	}, env.node.amounts())
}

func TestFetchQuote_MaxRune(t *testing.T) {
	env := newTestEnv(t, newFakeNode("0.00005"))
	from := newWallet("RUNE")
	var sized []swap.TxParams
	from.MaxTxFn = func(params swap.TxParams) (decimal.Decimal, error) {
		sized = append(sized, params)
		return d("500000000"), nil
	}

	q, err := env.plugin.FetchQuote(context.Background(), swap.Request{
		From:      runeRef,
		To:        btcRef,
		Direction: swap.DirectionMax,
	}, from, newWallet("BTC"))
	require.NoError(t, err)
	defer q.Close()

	require.Len(t, sized, 1)
	assert.Equal(t, maxTrialAmount.String(), sized[0].Assets[0].Amount.String())

	params, ok := q.Order().Payload.(swap.TxParams)
	require.True(t, ok)
	assert.Equal(t, "500000000", params.Assets[0].Amount.String())
	assert.Equal(t, "500000000", q.Order().FromAmount.String())

	assert.ElementsMatch(t, []string{
		"1000000000", "1000000000",
		"500000000", "500000000",
	}, env.node.amounts())
}

func TestFetchQuote_MaxRuneNeedsEstimator(t *testing.T) {
	env := newTestEnv(t, newFakeNode("0.00005"))

	_, err := env.plugin.FetchQuote(context.Background(), swap.Request{
		From:      runeRef,
		To:        btcRef,
		Direction: swap.DirectionMax,
	}, noEstimator{newWallet("RUNE")}, newWallet("BTC"))
	require.Error(t, err)
	assert.Empty(t, env.node.queries())
}

// noEstimator hides the MaxTx method of the wrapped wallet.
type noEstimator struct {
	swap.Wallet
}

func TestFetchQuote_ApproveTokenSwap(t *testing.T) {
	env := newTestEnv(t, newFakeNode("0.00001"))
	from := newWallet("ETH")

	q, err := env.plugin.FetchQuote(context.Background(), swap.Request{
		From:         usdcRef,
		To:           btcRef,
		NativeAmount: d("100000000"),
		Direction:    swap.DirectionFrom,
	}, from, newWallet("BTC"))
	require.NoError(t, err)

	fee := q.Fee()
	require.NotNil(t, fee.Amount)
	assert.Equal(t, "2000", fee.Amount.String())
	assert.Equal(t, "ETH", fee.CurrencyCode)

	res, err := q.Approve(context.Background(), &swap.Metadata{Name: "THORChain swap"})
	require.NoError(t, err)
	assert.Equal(t, "tx-1", res.PreTx.TxID)
	assert.Equal(t, "tx-2", res.Transaction.TxID)
	assert.Equal(t, "tx-2", res.OrderID)
	assert.Equal(t, "https://track.ninerealms.com/tx-2", res.OrderURI)
	assert.Equal(t, "addr-bitcoin", res.DestinationAddress)
	assert.Equal(t, "THORChain swap", res.Transaction.Metadata.Name)
	assert.Equal(t, 2, from.BroadcastCount())

	again, err := q.Approve(context.Background(), nil)
	require.NoError(t, err)
	assert.Same(t, res, again)
	assert.Equal(t, 2, from.BroadcastCount())
}
