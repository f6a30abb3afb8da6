package model

import "time"

// PriceSource tags where a TokenPrice value came from.
type PriceSource string

const (
	// PriceSourceLive is a value returned by the price API this cycle.
	PriceSourceLive PriceSource = "live"
	// PriceSourceCached is a previously fetched value held past its
	// freshness window.
	PriceSourceCached PriceSource = "cached"
	// PriceSourceFallback is the hardcoded per-asset constant used when no
	// live or cached value exists.
	PriceSourceFallback PriceSource = "fallback"
)

// TokenPrice is a spot USD price for one asset.
type TokenPrice struct {
	Symbol      string      `json:"symbol"`
	USD         float64     `json:"usd"`
	LastUpdated time.Time   `json:"last_updated"`
	Source      PriceSource `json:"source"`
}
