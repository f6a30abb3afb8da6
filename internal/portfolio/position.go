package portfolio

import (
	"math"
	"math/big"

	"vaultfolio/internal/model"
)

// PositionInput carries the raw chain reads needed to resolve one vault
// position. Any nil big.Int marks that sub-value as absent.
type PositionInput struct {
	ShareBalance     *big.Int
	AssetsEquivalent *big.Int
	TotalAssets      *big.Int
	TotalSupply      *big.Int
	Decimals         uint8
	PriceUSD         float64
	APY              float64
}

func (in PositionInput) complete() bool {
	return in.ShareBalance != nil &&
		in.AssetsEquivalent != nil &&
		in.TotalAssets != nil &&
		in.TotalSupply != nil
}

// ResolvePosition computes the current snapshot for one (vault, account)
// pair. A vault with no shares issued is defined to have unit share price.
// When any required input is absent the position is reported unresolved
// rather than partially computed.
func ResolvePosition(in PositionInput) model.VaultPosition {
	if !in.complete() {
		return model.VaultPosition{Resolved: false}
	}

	sharePrice := 1.0
	if in.TotalSupply.Sign() > 0 {
		assets := new(big.Float).SetInt(in.TotalAssets)
		supply := new(big.Float).SetInt(in.TotalSupply)
		ratio, _ := new(big.Float).Quo(assets, supply).Float64()
		sharePrice = ratio
	}

	amount := tokenAmount(in.AssetsEquivalent, in.Decimals)

	return model.VaultPosition{
		ShareBalance:     new(big.Int).Set(in.ShareBalance),
		AssetsEquivalent: new(big.Int).Set(in.AssetsEquivalent),
		TokenAmount:      amount,
		USDValue:         amount * in.PriceUSD,
		SharePrice:       sharePrice,
		APY:              in.APY,
		Resolved:         true,
	}
}

// ConversionDivergence returns the relative difference between the vault's
// own share conversion and the locally recomputed shareBalance*sharePrice.
// The two are expected to agree; persistent divergence indicates a data
// source invariant violation worth surfacing.
func ConversionDivergence(in PositionInput) float64 {
	if !in.complete() {
		return 0
	}

	reported := tokenAmount(in.AssetsEquivalent, in.Decimals)

	sharePrice := 1.0
	if in.TotalSupply.Sign() > 0 {
		assets := new(big.Float).SetInt(in.TotalAssets)
		supply := new(big.Float).SetInt(in.TotalSupply)
		sharePrice, _ = new(big.Float).Quo(assets, supply).Float64()
	}
	local := tokenAmount(in.ShareBalance, in.Decimals) * sharePrice

	if reported == 0 && local == 0 {
		return 0
	}
	scale := math.Max(math.Abs(reported), math.Abs(local))
	return math.Abs(reported-local) / scale
}
