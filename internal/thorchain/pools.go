package thorchain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vultisig/swap-quote/internal/swap"
)

const PoolStatusAvailable = "available"

type resolvedPool struct {
	swap.Pool
	// Contract is the lowercased token contract of the pool asset, empty for native assets.
	Contract string
}

// getPool finds the pool for asset on network. RUNE has no pool of its own, so a synthetic one is
// priced from the BTC pool.
func getPool(pools []midgardPool, network thorNetwork, asset swap.AssetRef) (resolvedPool, error) {
	if network == thor && asset.CurrencyCode == "RUNE" {
		return runePool(pools)
	}

	symbol := string(network) + "." + asset.CurrencyCode
	for _, p := range pools {
		// Format: NETWORK.SYMBOL-CONTRACT
		name, contract, _ := strings.Cut(p.Asset, "-")
		if name != symbol {
			continue
		}
		contract = strings.ToLower(contract)
		if !asset.IsNative() && contract != "" && !sameContract(contract, asset.TokenID) {
			continue
		}
		if p.Status != "" && !strings.EqualFold(p.Status, PoolStatusAvailable) {
			return resolvedPool{}, fmt.Errorf("pool %s is %s (not available)", p.Asset, p.Status)
		}
		return toResolved(p, contract)
	}
	return resolvedPool{}, fmt.Errorf("no pool found for %s", symbol)
}

func runePool(pools []midgardPool) (resolvedPool, error) {
	for _, p := range pools {
		if p.Asset != btcAsset {
			continue
		}
		btcPool, err := toResolved(p, "")
		if err != nil {
			return resolvedPool{}, err
		}
		if btcPool.PriceInReferenceUnit.IsZero() {
			return resolvedPool{}, fmt.Errorf("pool %s has zero price", btcAsset)
		}
		return resolvedPool{
			Pool: swap.Pool{
				Asset:                runeAsset,
				PriceInReferenceUnit: decimal.NewFromInt(1),
				PriceInUSD:           btcPool.PriceInUSD.DivRound(btcPool.PriceInReferenceUnit, 18),
			},
		}, nil
	}
	return resolvedPool{}, fmt.Errorf("no %s pool to price %s", btcAsset, runeAsset)
}

func toResolved(p midgardPool, contract string) (resolvedPool, error) {
	price, err := decimal.NewFromString(p.AssetPrice)
	if err != nil {
		return resolvedPool{}, fmt.Errorf("failed to parse price of pool %s: %w", p.Asset, err)
	}
	priceUSD, err := decimal.NewFromString(p.AssetPriceUSD)
	if err != nil {
		return resolvedPool{}, fmt.Errorf("failed to parse USD price of pool %s: %w", p.Asset, err)
	}
	return resolvedPool{
		Pool: swap.Pool{
			Asset:                p.Asset,
			PriceInReferenceUnit: price,
			PriceInUSD:           priceUSD,
		},
		Contract: contract,
	}, nil
}

func sameContract(a, b string) bool {
	return strings.EqualFold(strings.TrimPrefix(strings.ToLower(a), "0x"), strings.TrimPrefix(strings.ToLower(b), "0x"))
}
