package vault

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"vaultfolio/internal/model"
)

// ownerTopicIndex is the topic position of the indexed owner argument,
// counted from after the event signature topic. Deposit indexes
// (sender, owner); Withdraw indexes (sender, receiver, owner).
const (
	depositOwnerTopicPos  = 2
	withdrawOwnerTopicPos = 3
)

// DepositEvents returns every Deposit record for (vault, owner) from genesis
// to the latest block, ordered by block then log index. The scan is chunked
// so no pagination gap can silently understate cost basis.
func (r *Reader) DepositEvents(ctx context.Context, vault, owner common.Address) ([]model.VaultEvent, error) {
	return r.scanEvents(ctx, vault, owner, "Deposit", model.EventDeposit, depositOwnerTopicPos)
}

// WithdrawEvents returns every Withdraw record for (vault, owner) from
// genesis to the latest block, ordered by block then log index.
func (r *Reader) WithdrawEvents(ctx context.Context, vault, owner common.Address) ([]model.VaultEvent, error) {
	return r.scanEvents(ctx, vault, owner, "Withdraw", model.EventWithdraw, withdrawOwnerTopicPos)
}

func (r *Reader) scanEvents(
	ctx context.Context,
	vault, owner common.Address,
	eventName string,
	kind model.EventKind,
	ownerTopicPos int,
) ([]model.VaultEvent, error) {
	if vault == (common.Address{}) || owner == (common.Address{}) {
		return nil, ErrNotAvailable
	}

	vaultABI, err := ERC4626ABI()
	if err != nil {
		return nil, fmt.Errorf("parse vault abi: %w", err)
	}
	event, ok := vaultABI.Events[eventName]
	if !ok {
		return nil, fmt.Errorf("unknown event: %s", eventName)
	}

	latest, err := r.latestBlockWithRetry(ctx)
	if err != nil {
		return nil, fmt.Errorf("get latest block: %w", err)
	}

	ranges, err := SplitRange(0, latest, r.cfg.LogBatchSize)
	if err != nil {
		return nil, err
	}

	topics := make([][]common.Hash, ownerTopicPos+1)
	topics[0] = []common.Hash{event.ID}
	topics[ownerTopicPos] = []common.Hash{common.BytesToHash(owner.Bytes())}

	events := make([]model.VaultEvent, 0)
	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		logs, err := r.filterLogsWithRetry(ctx, blockRange, vault, topics)
		if err != nil {
			return nil, fmt.Errorf("filter %s logs [%d, %d]: %w", eventName, blockRange.From, blockRange.To, err)
		}

		for _, log := range logs {
			if log.Removed {
				continue
			}
			decoded, err := decodeVaultEvent(event, log, kind)
			if err != nil {
				r.logger.Warn("decode vault event failed",
					zap.String("event", eventName),
					zap.String("vault", vault.Hex()),
					zap.String("tx", log.TxHash.Hex()),
					zap.Error(err),
				)
				return nil, fmt.Errorf("decode %s: %w", eventName, err)
			}
			events = append(events, decoded)
		}
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].BlockNumber != events[j].BlockNumber {
			return events[i].BlockNumber < events[j].BlockNumber
		}
		return events[i].LogIndex < events[j].LogIndex
	})

	return events, nil
}

func decodeVaultEvent(event abi.Event, log types.Log, kind model.EventKind) (model.VaultEvent, error) {
	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return model.VaultEvent{}, fmt.Errorf("unpack data: %w", err)
	}
	if len(values) != 2 {
		return model.VaultEvent{}, fmt.Errorf("unexpected value count %d", len(values))
	}

	assets, ok := values[0].(*big.Int)
	if !ok {
		return model.VaultEvent{}, fmt.Errorf("assets type %T", values[0])
	}
	shares, ok := values[1].(*big.Int)
	if !ok {
		return model.VaultEvent{}, fmt.Errorf("shares type %T", values[1])
	}

	return model.VaultEvent{
		Kind:        kind,
		Assets:      new(big.Int).Set(assets),
		Shares:      new(big.Int).Set(shares),
		BlockNumber: log.BlockNumber,
		LogIndex:    uint64(log.Index),
		TxHash:      log.TxHash.Hex(),
	}, nil
}

func (r *Reader) latestBlockWithRetry(ctx context.Context) (uint64, error) {
	var latest uint64
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		latest, err = r.client.LatestBlockNumber(ctx)
		return err
	})
	return latest, err
}

func (r *Reader) filterLogsWithRetry(ctx context.Context, blockRange BlockRange, vault common.Address, topics [][]common.Hash) ([]types.Log, error) {
	var logs []types.Log
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = r.client.FilterLogs(ctx, blockRange.From, blockRange.To, []common.Address{vault}, topics)
		if err != nil {
			r.logger.Warn("filter logs failed",
				zap.Uint64("from", blockRange.From),
				zap.Uint64("to", blockRange.To),
				zap.Error(err),
			)
		}
		return err
	})
	return logs, err
}
