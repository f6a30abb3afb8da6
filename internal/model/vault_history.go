package model

// VaultHistory holds the USD cost-basis figures derived from the full
// deposit/withdraw event ledger of one (vault, account) pair.
//
// NetDepositsUSD may be negative when cumulative withdrawals exceed cumulative
// deposits; that is a valid exited-and-re-entered position, not an error.
// InterestEarnedUSD is clamped at zero; PnlUSD carries the unclamped figure.
type VaultHistory struct {
	TotalDepositedUSD  float64 `json:"total_deposited_usd"`
	TotalWithdrawnUSD  float64 `json:"total_withdrawn_usd"`
	NetDepositsUSD     float64 `json:"net_deposits_usd"`
	InterestEarnedUSD  float64 `json:"interest_earned_usd"`
	PnlUSD             float64 `json:"pnl_usd"`
	DepositEventCount  int     `json:"deposit_event_count"`
	WithdrawEventCount int     `json:"withdraw_event_count"`
	Estimated          bool    `json:"estimated,omitempty"`
}
