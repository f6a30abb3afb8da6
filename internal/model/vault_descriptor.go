package model

// VaultDescriptor identifies one lending vault. The vault set is fixed at
// startup and never mutated.
type VaultDescriptor struct {
	Address string  `json:"address" mapstructure:"address"`
	Name    string  `json:"name" mapstructure:"name"`
	Asset   Asset   `json:"asset" mapstructure:"asset"`
	APY     float64 `json:"apy" mapstructure:"apy"`
}
