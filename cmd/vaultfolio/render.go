package main

import (
	"fmt"
	"io"

	"vaultfolio/internal/model"
)

// renderSnapshot writes a human-readable portfolio summary.
func renderSnapshot(out io.Writer, snapshot model.PortfolioSnapshot) error {
	fmt.Fprintf(out, "portfolio %s (chain %d) @ %s\n",
		snapshot.Account,
		snapshot.ChainID,
		snapshot.TakenAt.Format("2006-01-02 15:04:05 MST"),
	)
	fmt.Fprintf(out, "  total value: $%.2f (wallet $%.2f + vaults $%.2f)\n",
		snapshot.TotalPortfolioValueUSD,
		snapshot.TotalWalletValueUSD,
		snapshot.TotalVaultValueUSD,
	)
	fmt.Fprintf(out, "  net deposits: $%.2f  interest earned: $%.2f\n",
		snapshot.NetDepositsUSD,
		snapshot.TotalInterestEarnedUSD,
	)
	fmt.Fprintf(out, "  projected return: $%.2f/year ($%.2f/month)\n",
		snapshot.ProjectedAnnualReturnUSD,
		snapshot.ProjectedMonthlyReturnUSD,
	)

	for _, vault := range snapshot.Vaults {
		marker := ""
		switch vault.Readiness {
		case model.ReadinessStale:
			marker = " [stale]"
		case model.ReadinessLoading:
			marker = " [loading]"
		case model.ReadinessAbsent:
			marker = " [no data]"
		}
		if vault.History.Estimated {
			marker += " [estimated]"
		}

		fmt.Fprintf(out, "  %-20s %10.4f %-5s $%12.2f  apy %5.2f%%  net $%10.2f  interest $%8.2f%s\n",
			vault.VaultName,
			vault.Position.TokenAmount,
			vault.AssetSymbol,
			vault.Position.USDValue,
			vault.Position.APY,
			vault.History.NetDepositsUSD,
			vault.History.InterestEarnedUSD,
			marker,
		)
	}

	_, err := fmt.Fprintln(out)
	return err
}
