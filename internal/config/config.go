package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"vaultfolio/internal/model"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL            string
	Account           string
	PriceAPIURL       string
	PriceTimeout      time.Duration
	FreshnessWindow   time.Duration
	RefreshInterval   time.Duration
	RequestsPerMinute int
	LogBatchSize      uint64
	MaxRetries        int
	RetryBackoff      time.Duration
	Out               string
	PgDSN             string
	LogLevel          string
	Vaults            []model.VaultDescriptor
}

// Load merges config file, environment variables, and flags into Config.
// The vault set comes from the config file's "vaults" section; the built-in
// deployment is used when the file omits it.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VAULTFOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("price-api", "https://api.coingecko.com/api/v3")
	v.SetDefault("price-timeout", 5*time.Second)
	v.SetDefault("freshness-window", 60*time.Second)
	v.SetDefault("refresh-interval", 60*time.Second)
	v.SetDefault("price-rpm", 30)
	v.SetDefault("log-batch-size", uint64(50_000))
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("out", "")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:            v.GetString("rpc"),
		Account:           v.GetString("account"),
		PriceAPIURL:       v.GetString("price-api"),
		PriceTimeout:      v.GetDuration("price-timeout"),
		FreshnessWindow:   v.GetDuration("freshness-window"),
		RefreshInterval:   v.GetDuration("refresh-interval"),
		RequestsPerMinute: v.GetInt("price-rpm"),
		LogBatchSize:      v.GetUint64("log-batch-size"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		Out:               v.GetString("out"),
		PgDSN:             v.GetString("pg-dsn"),
		LogLevel:          v.GetString("log-level"),
	}

	if v.IsSet("vaults") {
		var vaults []model.VaultDescriptor
		if err := v.UnmarshalKey("vaults", &vaults); err != nil {
			return Config{}, fmt.Errorf("parse vaults: %w", err)
		}
		cfg.Vaults = vaults
	} else {
		cfg.Vaults = DefaultVaults()
	}

	if err := validateVaults(cfg.Vaults); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateVaults(vaults []model.VaultDescriptor) error {
	if len(vaults) == 0 {
		return fmt.Errorf("vault set is empty")
	}
	for _, vault := range vaults {
		if vault.Asset.Symbol == "" {
			return fmt.Errorf("vault %q: asset symbol is required", vault.Name)
		}
		if vault.Asset.Decimals == 0 {
			return fmt.Errorf("vault %q: asset decimals is required", vault.Name)
		}
	}
	return nil
}
