package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func runSnapshot(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, ok := s.account(); !ok {
		return fmt.Errorf("account address is required")
	}

	s.logger.Info("snapshot start",
		zap.String("rpc", s.cfg.RPCURL),
		zap.String("account", s.cfg.Account),
		zap.Uint64("chain_id", s.chainID),
		zap.Int("vaults", len(s.cfg.Vaults)),
		zap.String("pg_dsn", redactDSN(s.cfg.PgDSN)),
	)

	snapshot := s.tracker.Refresh(ctx)
	s.persist(snapshot)

	return renderSnapshot(cmd.OutOrStdout(), snapshot)
}
