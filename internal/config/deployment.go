package config

import "vaultfolio/internal/model"

// Built-in mainnet deployment: three lending vaults over WETH, WBTC and
// USDC. A "vaults" section in the config file replaces this set entirely.
func DefaultVaults() []model.VaultDescriptor {
	weth := model.Asset{
		Symbol:      "WETH",
		Address:     "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
		Decimals:    18,
		CoinID:      "ethereum",
		FallbackUSD: 2500,
	}
	wbtc := model.Asset{
		Symbol:      "WBTC",
		Address:     "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599",
		Decimals:    8,
		CoinID:      "wrapped-bitcoin",
		FallbackUSD: 60000,
	}
	usdc := model.Asset{
		Symbol:      "USDC",
		Address:     "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		Decimals:    6,
		CoinID:      "usd-coin",
		Stable:      true,
		FallbackUSD: 1,
	}

	return []model.VaultDescriptor{
		{
			Address: "0x5B4C2dEaA7D2d0aA79bd7d6cb4a1B90f6A0e1C44",
			Name:    "WETH Lending Vault",
			Asset:   weth,
			APY:     4.2,
		},
		{
			Address: "0x8F1e5aD8d71Cf7E5Ac0f2F0d3c0B6A9427D4B1a9",
			Name:    "WBTC Lending Vault",
			Asset:   wbtc,
			APY:     2.8,
		},
		{
			Address: "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC",
			Name:    "USDC Lending Vault",
			Asset:   usdc,
			APY:     7.5,
		},
	}
}

// Assets returns the distinct assets referenced by the vault set, preserving
// first-seen order.
func Assets(vaults []model.VaultDescriptor) []model.Asset {
	seen := make(map[string]struct{}, len(vaults))
	assets := make([]model.Asset, 0, len(vaults))
	for _, vault := range vaults {
		if _, ok := seen[vault.Asset.Symbol]; ok {
			continue
		}
		seen[vault.Asset.Symbol] = struct{}{}
		assets = append(assets, vault.Asset)
	}
	return assets
}
