package model

import "time"

// Readiness is the per-vault pipeline state.
type Readiness string

const (
	// ReadinessAbsent means no account is connected; a defined terminal
	// no-data state, not an error.
	ReadinessAbsent Readiness = "absent"
	// ReadinessLoading means the account is connected and chain/price
	// responses are still outstanding.
	ReadinessLoading Readiness = "loading"
	// ReadinessResolved means all required sub-values are present.
	ReadinessResolved Readiness = "resolved"
	// ReadinessStale means a previously resolved vault failed a refresh;
	// the last good values are retained and flagged.
	ReadinessStale Readiness = "stale"
)

// VaultSummary is the per-vault row of a portfolio snapshot.
type VaultSummary struct {
	VaultAddress        string        `json:"vault_address"`
	VaultName           string        `json:"vault_name"`
	AssetSymbol         string        `json:"asset_symbol"`
	Readiness           Readiness     `json:"readiness"`
	Position            VaultPosition `json:"position"`
	History             VaultHistory  `json:"history"`
	ProjectedAnnualUSD  float64       `json:"projected_annual_usd"`
	ProjectedMonthlyUSD float64       `json:"projected_monthly_usd"`
}

// PortfolioSnapshot is the aggregate across the fixed vault set at a point in
// time. Purely derived from its inputs; never a source of truth.
type PortfolioSnapshot struct {
	ChainID                   uint64         `json:"chain_id"`
	Account                   string         `json:"account"`
	TakenAt                   time.Time      `json:"taken_at"`
	TotalPortfolioValueUSD    float64        `json:"total_portfolio_value_usd"`
	TotalWalletValueUSD       float64        `json:"total_wallet_value_usd"`
	TotalVaultValueUSD        float64        `json:"total_vault_value_usd"`
	NetDepositsUSD            float64        `json:"net_deposits_usd"`
	TotalInterestEarnedUSD    float64        `json:"total_interest_earned_usd"`
	ProjectedAnnualReturnUSD  float64        `json:"projected_annual_return_usd"`
	ProjectedMonthlyReturnUSD float64        `json:"projected_monthly_return_usd"`
	Vaults                    []VaultSummary `json:"vaults"`
}
