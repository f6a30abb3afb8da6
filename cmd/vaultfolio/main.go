package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "vaultfolio",
		Short:        "ERC-4626 vault portfolio tracker",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Resolve the portfolio once and print a snapshot",
		RunE:  runSnapshot,
	}
	addCommonFlags(snapshotCmd)
	root.AddCommand(snapshotCmd)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh the portfolio on an interval until interrupted",
		RunE:  runWatch,
	}
	addCommonFlags(watchCmd)
	watchCmd.Flags().Duration("refresh-interval", 60*time.Second, "refresh cycle interval")
	root.AddCommand(watchCmd)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Dump the deposit/withdraw ledger and derived figures per vault",
		RunE:  runHistory,
	}
	addCommonFlags(historyCmd)
	historyCmd.Flags().String("vault", "", "restrict to one vault address")
	root.AddCommand(historyCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "read-only RPC URL")
	cmd.Flags().String("account", "", "account address to track")
	cmd.Flags().String("price-api", "https://api.coingecko.com/api/v3", "price API base URL")
	cmd.Flags().Duration("price-timeout", 5*time.Second, "price request timeout")
	cmd.Flags().Duration("freshness-window", 60*time.Second, "price freshness window")
	cmd.Flags().Int("price-rpm", 30, "price API requests per minute")
	cmd.Flags().Uint64("log-batch-size", 50_000, "blocks per eth_getLogs query")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts for chain reads")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().String("out", "", "snapshot JSONL output path")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN for snapshot history")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
