package portfolio

import (
	"math"
	"math/big"

	"vaultfolio/internal/model"
)

// ComputeHistory derives USD cost-basis figures from the full deposit and
// withdraw ledgers of one (vault, account) pair. Event order does not affect
// the sums, but both ledgers must be complete: a pagination gap silently
// understates cost basis.
//
// NetDepositsUSD is not clamped and may be negative for a position that was
// fully exited and partially re-entered. InterestEarnedUSD is clamped at
// zero; the unclamped figure is carried in PnlUSD.
//
// Pure function: identical inputs yield identical outputs.
func ComputeHistory(
	deposits, withdraws []model.VaultEvent,
	currentBalanceUSD float64,
	decimals uint8,
	priceUSD float64,
) model.VaultHistory {
	totalDeposited := sumEventsUSD(deposits, decimals, priceUSD)
	totalWithdrawn := sumEventsUSD(withdraws, decimals, priceUSD)
	netDeposits := totalDeposited - totalWithdrawn
	pnl := currentBalanceUSD - netDeposits

	return model.VaultHistory{
		TotalDepositedUSD:  totalDeposited,
		TotalWithdrawnUSD:  totalWithdrawn,
		NetDepositsUSD:     netDeposits,
		InterestEarnedUSD:  math.Max(0, pnl),
		PnlUSD:             pnl,
		DepositEventCount:  len(deposits),
		WithdrawEventCount: len(withdraws),
	}
}

// EstimateHistory approximates cost basis from the current value and share
// price when the event ledger is unavailable: the original deposit value of a
// position is roughly currentValue/sharePrice, since the share price was 1.0
// at issuance. A display heuristic only, tagged Estimated; never a second
// source of truth next to the event-log figures.
func EstimateHistory(currentBalanceUSD, sharePrice float64) model.VaultHistory {
	if sharePrice <= 0 {
		sharePrice = 1.0
	}
	netDeposits := currentBalanceUSD / sharePrice
	pnl := currentBalanceUSD - netDeposits

	return model.VaultHistory{
		TotalDepositedUSD: netDeposits,
		NetDepositsUSD:    netDeposits,
		InterestEarnedUSD: math.Max(0, pnl),
		PnlUSD:            pnl,
		Estimated:         true,
	}
}

func sumEventsUSD(events []model.VaultEvent, decimals uint8, priceUSD float64) float64 {
	total := 0.0
	for _, event := range events {
		total += tokenAmount(event.Assets, decimals) * priceUSD
	}
	return total
}

// tokenAmount converts a raw on-chain integer amount into token-denominated
// floating point. Sub-cent precision loss is tolerated; these are display
// aggregates, not a ledger of record.
func tokenAmount(raw *big.Int, decimals uint8) float64 {
	if raw == nil {
		return 0
	}
	value := new(big.Float).SetInt(raw)
	denom := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	value.Quo(value, denom)
	out, _ := value.Float64()
	return out
}
