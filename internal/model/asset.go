package model

// Asset is immutable reference data for one supported token.
type Asset struct {
	Symbol      string  `json:"symbol" mapstructure:"symbol"`
	Address     string  `json:"address" mapstructure:"address"`
	Decimals    uint8   `json:"decimals" mapstructure:"decimals"`
	CoinID      string  `json:"coin_id" mapstructure:"coin-id"`
	Stable      bool    `json:"stable" mapstructure:"stable"`
	FallbackUSD float64 `json:"fallback_usd" mapstructure:"fallback-usd"`
}
