package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vaultfolio/internal/model"
	"vaultfolio/internal/portfolio"
)

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	account, ok := s.account()
	if !ok {
		return fmt.Errorf("account address is required")
	}

	only, _ := cmd.Flags().GetString("vault")
	if only != "" && !common.IsHexAddress(only) {
		return fmt.Errorf("invalid vault address: %s", only)
	}

	prices := s.oracle.AllPrices(ctx)
	out := cmd.OutOrStdout()

	for _, descriptor := range s.cfg.Vaults {
		if only != "" && !strings.EqualFold(only, descriptor.Address) {
			continue
		}
		if err := s.dumpVaultHistory(ctx, out, descriptor, account, prices[descriptor.Asset.Symbol]); err != nil {
			return err
		}
	}

	return nil
}

func (s *session) dumpVaultHistory(
	ctx context.Context,
	out io.Writer,
	descriptor model.VaultDescriptor,
	account common.Address,
	tokenPrice model.TokenPrice,
) error {
	vaultAddr := common.HexToAddress(descriptor.Address)

	deposits, err := s.reader.DepositEvents(ctx, vaultAddr, account)
	if err != nil {
		return fmt.Errorf("%s deposit events: %w", descriptor.Name, err)
	}
	withdraws, err := s.reader.WithdrawEvents(ctx, vaultAddr, account)
	if err != nil {
		return fmt.Errorf("%s withdraw events: %w", descriptor.Name, err)
	}

	shareBalance, err := s.reader.ShareBalanceOf(ctx, vaultAddr, account)
	if err != nil {
		return fmt.Errorf("%s share balance: %w", descriptor.Name, err)
	}
	assetsEquivalent, err := s.reader.ConvertSharesToAssets(ctx, vaultAddr, shareBalance)
	if err != nil {
		return fmt.Errorf("%s convert shares: %w", descriptor.Name, err)
	}
	totalAssets, err := s.reader.TotalAssets(ctx, vaultAddr)
	if err != nil {
		return fmt.Errorf("%s total assets: %w", descriptor.Name, err)
	}
	totalSupply, err := s.reader.TotalSupply(ctx, vaultAddr)
	if err != nil {
		return fmt.Errorf("%s total supply: %w", descriptor.Name, err)
	}

	position := portfolio.ResolvePosition(portfolio.PositionInput{
		ShareBalance:     shareBalance,
		AssetsEquivalent: assetsEquivalent,
		TotalAssets:      totalAssets,
		TotalSupply:      totalSupply,
		Decimals:         descriptor.Asset.Decimals,
		PriceUSD:         tokenPrice.USD,
		APY:              descriptor.APY,
	})
	history := portfolio.ComputeHistory(deposits, withdraws, position.USDValue, descriptor.Asset.Decimals, tokenPrice.USD)

	fmt.Fprintf(out, "%s (%s)\n", descriptor.Name, descriptor.Address)
	fmt.Fprintf(out, "  price: $%.2f [%s]\n", tokenPrice.USD, tokenPrice.Source)

	events := append(append([]model.VaultEvent{}, deposits...), withdraws...)
	sort.Slice(events, func(i, j int) bool {
		if events[i].BlockNumber != events[j].BlockNumber {
			return events[i].BlockNumber < events[j].BlockNumber
		}
		return events[i].LogIndex < events[j].LogIndex
	})
	for _, event := range events {
		line := fmt.Sprintf("  %-8s block=%d assets=%s tx=%s", event.Kind, event.BlockNumber, event.Assets, event.TxHash)
		if ts, err := s.chain.BlockTimestamp(ctx, event.BlockNumber); err == nil {
			line += " at=" + time.Unix(int64(ts), 0).UTC().Format(time.RFC3339)
		} else {
			s.logger.Debug("block timestamp lookup failed", zap.Uint64("block", event.BlockNumber), zap.Error(err))
		}
		fmt.Fprintln(out, line)
	}

	fmt.Fprintf(out, "  deposited=$%.2f withdrawn=$%.2f net=$%.2f interest=$%.2f pnl=$%.2f\n\n",
		history.TotalDepositedUSD,
		history.TotalWithdrawnUSD,
		history.NetDepositsUSD,
		history.InterestEarnedUSD,
		history.PnlUSD,
	)

	return nil
}
