package portfolio

import (
	"time"

	"vaultfolio/internal/model"
)

// Aggregate combines per-vault summaries and the separately priced wallet
// value into a portfolio snapshot. Purely additive over the fixed vault set:
// a vault with an unresolved position or history contributes zero, so one
// failed data source never corrupts the aggregate for the others. A stale
// vault contributes its retained last-good values.
//
// Estimated histories are excluded from the net-deposit and interest totals:
// the share-price heuristic renders on its vault's row but never feeds the
// event-log-derived sums.
func Aggregate(vaults []model.VaultSummary, walletValueUSD float64) model.PortfolioSnapshot {
	snapshot := model.PortfolioSnapshot{
		TakenAt:             time.Now().UTC(),
		TotalWalletValueUSD: walletValueUSD,
		Vaults:              make([]model.VaultSummary, 0, len(vaults)),
	}

	for _, summary := range vaults {
		if summary.Position.Resolved {
			annual := summary.Position.USDValue * summary.Position.APY / 100
			summary.ProjectedAnnualUSD = annual
			summary.ProjectedMonthlyUSD = annual / 12

			snapshot.TotalVaultValueUSD += summary.Position.USDValue
			snapshot.ProjectedAnnualReturnUSD += annual

			if !summary.History.Estimated {
				snapshot.NetDepositsUSD += summary.History.NetDepositsUSD
				snapshot.TotalInterestEarnedUSD += summary.History.InterestEarnedUSD
			}
		}
		snapshot.Vaults = append(snapshot.Vaults, summary)
	}

	snapshot.ProjectedMonthlyReturnUSD = snapshot.ProjectedAnnualReturnUSD / 12
	snapshot.TotalPortfolioValueUSD = snapshot.TotalWalletValueUSD + snapshot.TotalVaultValueUSD

	return snapshot
}
