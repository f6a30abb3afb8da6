package model

import "math/big"

// VaultPosition is the current snapshot for one (vault, account) pair.
// Ephemeral; recomputed on every successful chain read.
type VaultPosition struct {
	ShareBalance     *big.Int `json:"-"`
	AssetsEquivalent *big.Int `json:"-"`
	TokenAmount      float64  `json:"token_amount"`
	USDValue         float64  `json:"usd_value"`
	SharePrice       float64  `json:"share_price"`
	APY              float64  `json:"apy"`
	Resolved         bool     `json:"resolved"`
}
