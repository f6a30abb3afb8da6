package portfolio

import (
	"math"
	"testing"

	"vaultfolio/internal/model"
)

func resolvedSummary(usdValue, apy, netDeposits, interest float64) model.VaultSummary {
	return model.VaultSummary{
		Readiness: model.ReadinessResolved,
		Position: model.VaultPosition{
			USDValue: usdValue,
			APY:      apy,
			Resolved: true,
		},
		History: model.VaultHistory{
			NetDepositsUSD:    netDeposits,
			InterestEarnedUSD: interest,
		},
	}
}

func TestAggregateProjectedReturns(t *testing.T) {
	vaults := []model.VaultSummary{
		resolvedSummary(100, 12, 0, 0),
		resolvedSummary(70000, 5, 0, 0),
		resolvedSummary(6000, 4, 0, 0),
	}

	got := Aggregate(vaults, 0)

	if math.Abs(got.ProjectedAnnualReturnUSD-3752) > 1e-9 {
		t.Fatalf("projected annual: got %v want 3752", got.ProjectedAnnualReturnUSD)
	}
	if math.Abs(got.ProjectedMonthlyReturnUSD-3752.0/12) > 1e-9 {
		t.Fatalf("projected monthly: got %v want %v", got.ProjectedMonthlyReturnUSD, 3752.0/12)
	}
	if got.TotalVaultValueUSD != 76100 {
		t.Fatalf("total vault value: got %v want 76100", got.TotalVaultValueUSD)
	}
}

func TestAggregateSums(t *testing.T) {
	vaults := []model.VaultSummary{
		resolvedSummary(1000, 0, 800, 200),
		resolvedSummary(500, 0, 600, 0),
	}

	got := Aggregate(vaults, 250)

	if got.NetDepositsUSD != 1400 {
		t.Fatalf("net deposits: got %v want 1400", got.NetDepositsUSD)
	}
	if got.TotalInterestEarnedUSD != 200 {
		t.Fatalf("interest: got %v want 200", got.TotalInterestEarnedUSD)
	}
	if got.TotalWalletValueUSD != 250 {
		t.Fatalf("wallet value: got %v want 250", got.TotalWalletValueUSD)
	}
	if got.TotalPortfolioValueUSD != 1750 {
		t.Fatalf("portfolio value: got %v want 1750", got.TotalPortfolioValueUSD)
	}
}

func TestAggregateSkipsUnresolved(t *testing.T) {
	vaults := []model.VaultSummary{
		resolvedSummary(1000, 10, 900, 100),
		{
			// One vault's chain read failed before ever resolving; it must
			// contribute zero without corrupting the rest.
			Readiness: model.ReadinessLoading,
			Position:  model.VaultPosition{Resolved: false},
		},
		resolvedSummary(2000, 5, 1500, 500),
	}

	got := Aggregate(vaults, 0)

	if got.TotalVaultValueUSD != 3000 {
		t.Fatalf("total vault value: got %v want 3000", got.TotalVaultValueUSD)
	}
	if got.NetDepositsUSD != 2400 {
		t.Fatalf("net deposits: got %v want 2400", got.NetDepositsUSD)
	}
	if got.TotalInterestEarnedUSD != 600 {
		t.Fatalf("interest: got %v want 600", got.TotalInterestEarnedUSD)
	}
	if math.Abs(got.ProjectedAnnualReturnUSD-200) > 1e-9 {
		t.Fatalf("projected annual: got %v want 200", got.ProjectedAnnualReturnUSD)
	}
	if math.IsNaN(got.TotalPortfolioValueUSD) {
		t.Fatalf("aggregate must never be NaN")
	}
	if len(got.Vaults) != 3 {
		t.Fatalf("all vaults must appear in the breakdown: %d", len(got.Vaults))
	}
}

func TestAggregateExcludesEstimatedHistoryFromTotals(t *testing.T) {
	exact := resolvedSummary(1000, 0, 800, 200)

	degraded := resolvedSummary(110, 0, 0, 0)
	degraded.Readiness = model.ReadinessStale
	degraded.History = EstimateHistory(110, 1.1)

	got := Aggregate([]model.VaultSummary{exact, degraded}, 0)

	// The estimated vault's value still counts, but its derived cost-basis
	// figures must not mix into the event-log totals.
	if got.TotalVaultValueUSD != 1110 {
		t.Fatalf("total vault value: got %v want 1110", got.TotalVaultValueUSD)
	}
	if got.NetDepositsUSD != 800 {
		t.Fatalf("net deposits must exclude estimates: got %v want 800", got.NetDepositsUSD)
	}
	if got.TotalInterestEarnedUSD != 200 {
		t.Fatalf("interest must exclude estimates: got %v want 200", got.TotalInterestEarnedUSD)
	}
	if !got.Vaults[1].History.Estimated {
		t.Fatalf("per-vault row must still carry the estimate")
	}
}

func TestAggregateStaleContributesRetainedValues(t *testing.T) {
	stale := resolvedSummary(1000, 0, 900, 100)
	stale.Readiness = model.ReadinessStale

	got := Aggregate([]model.VaultSummary{stale}, 0)

	if got.TotalVaultValueUSD != 1000 {
		t.Fatalf("stale vault retains last good value: got %v", got.TotalVaultValueUSD)
	}
}

func TestAggregateEmpty(t *testing.T) {
	got := Aggregate(nil, 0)

	if got.TotalPortfolioValueUSD != 0 || got.ProjectedMonthlyReturnUSD != 0 {
		t.Fatalf("empty aggregate must be zero: %+v", got)
	}
}
