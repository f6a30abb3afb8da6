package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func runWatch(cmd *cobra.Command, _ []string) error {
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

	interval, _ := cmd.Flags().GetDuration("refresh-interval")
	if interval <= 0 {
		interval = 60 * time.Second
	}

	s.logger.Info("watch start",
		zap.String("rpc", s.cfg.RPCURL),
		zap.String("account", s.cfg.Account),
		zap.Uint64("chain_id", s.chainID),
		zap.Duration("refresh_interval", interval),
	)

	// The oracle's background refresh runs only while the watch loop is a
	// subscribed consumer; unsubscribing on exit stops its ticker.
	s.oracle.Subscribe()
	defer s.oracle.Unsubscribe()

	cycle := func() error {
		snapshot := s.tracker.Refresh(ctx)
		s.persist(snapshot)
		return renderSnapshot(cmd.OutOrStdout(), snapshot)
	}

	if err := cycle(); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("watch stopped")
			return nil
		case <-ticker.C:
			if err := cycle(); err != nil {
				return err
			}
		}
	}
}
