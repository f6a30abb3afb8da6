package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vaultfolio/internal/chain"
	"vaultfolio/internal/config"
	"vaultfolio/internal/model"
	"vaultfolio/internal/portfolio"
	"vaultfolio/internal/price"
	"vaultfolio/internal/storage"
	"vaultfolio/internal/storage/postgres"
	"vaultfolio/internal/vault"
)

// session wires the per-invocation object graph: chain client, reader,
// price oracle, tracker, and the configured snapshot sinks.
type session struct {
	cfg     config.Config
	logger  *zap.Logger
	chain   *chain.Client
	reader  *vault.Reader
	oracle  *price.Oracle
	tracker *portfolio.Tracker
	sinks   []storage.SnapshotSink
	pgStore *postgres.Store
	chainID uint64
}

func newSession(ctx context.Context, cmd *cobra.Command) (*session, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	chainID, err := chainClient.ChainID(ctx)
	if err != nil {
		chainClient.Close()
		return nil, fmt.Errorf("get chain id: %w", err)
	}

	reader := vault.NewReader(chainClient, vault.ReaderConfig{
		LogBatchSize: cfg.LogBatchSize,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, logger)

	oracle := price.NewOracle(price.Config{
		BaseURL:           cfg.PriceAPIURL,
		Timeout:           cfg.PriceTimeout,
		FreshnessWindow:   cfg.FreshnessWindow,
		RefreshInterval:   cfg.RefreshInterval,
		RequestsPerMinute: cfg.RequestsPerMinute,
	}, config.Assets(cfg.Vaults), logger)

	tracker := portfolio.NewTracker(reader, oracle, cfg.Vaults, chainID.Uint64(), logger)

	s := &session{
		cfg:     cfg,
		logger:  logger,
		chain:   chainClient,
		reader:  reader,
		oracle:  oracle,
		tracker: tracker,
		chainID: chainID.Uint64(),
	}

	if cfg.Out != "" {
		s.sinks = append(s.sinks, storage.NewJsonlStorage(cfg.Out))
	}
	if cfg.PgDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PgDSN)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.pgStore = store
		s.sinks = append(s.sinks, store)
	}

	if cfg.Account != "" {
		if !common.IsHexAddress(cfg.Account) {
			s.Close()
			return nil, fmt.Errorf("invalid account address: %s", cfg.Account)
		}
		tracker.SetAccount(common.HexToAddress(cfg.Account))
	}

	return s, nil
}

func (s *session) Close() {
	if s.pgStore != nil {
		s.pgStore.Close()
	}
	if s.chain != nil {
		s.chain.Close()
	}
	if s.logger != nil {
		s.logger.Sync()
	}
}

func (s *session) account() (common.Address, bool) {
	if s.cfg.Account == "" {
		return common.Address{}, false
	}
	return common.HexToAddress(s.cfg.Account), true
}

func (s *session) persist(snapshot model.PortfolioSnapshot) {
	for _, sink := range s.sinks {
		if err := sink.PutSnapshot(snapshot); err != nil {
			s.logger.Warn("persist snapshot failed", zap.Error(err))
		}
	}
}
