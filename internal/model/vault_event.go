package model

import "math/big"

// EventKind distinguishes deposit from withdraw records.
type EventKind string

const (
	EventDeposit  EventKind = "deposit"
	EventWithdraw EventKind = "withdraw"
)

// VaultEvent is one on-chain Deposit or Withdraw record for a (vault, account)
// pair. Immutable once read from chain. Amounts are raw on-chain integer units.
type VaultEvent struct {
	Kind        EventKind `json:"kind"`
	Assets      *big.Int  `json:"-"`
	Shares      *big.Int  `json:"-"`
	BlockNumber uint64    `json:"block_number"`
	LogIndex    uint64    `json:"log_index"`
	TxHash      string    `json:"tx_hash"`
}
