package vault

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"vaultfolio/internal/chain"
)

// ErrNotAvailable marks a read that cannot be performed because a required
// address is absent (no connected account, or no vault address). It is a
// defined no-data state, distinct from an RPC failure.
var ErrNotAvailable = errors.New("vault data not available")

// ReaderConfig holds runtime settings for chain reads.
type ReaderConfig struct {
	// LogBatchSize bounds the block span of one eth_getLogs call.
	LogBatchSize uint64
	MaxRetries   int
	RetryBackoff time.Duration
}

// Reader wraps read-only vault contract calls and event log queries. It does
// no caching of its own; freshness policy is owned by callers.
type Reader struct {
	client *chain.Client
	cfg    ReaderConfig
	logger *zap.Logger
}

// NewReader builds a Reader with its dependencies.
func NewReader(client *chain.Client, cfg ReaderConfig, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LogBatchSize == 0 {
		cfg.LogBatchSize = 50_000
	}
	return &Reader{client: client, cfg: cfg, logger: logger}
}

// ShareBalanceOf returns the vault share balance of account.
func (r *Reader) ShareBalanceOf(ctx context.Context, vault, account common.Address) (*big.Int, error) {
	if vault == (common.Address{}) || account == (common.Address{}) {
		return nil, ErrNotAvailable
	}
	return r.callUint256(ctx, vault, "balanceOf", account)
}

// ConvertSharesToAssets converts a share amount into underlying asset units
// using the vault's own conversion, which reflects its exact rounding.
func (r *Reader) ConvertSharesToAssets(ctx context.Context, vault common.Address, shares *big.Int) (*big.Int, error) {
	if vault == (common.Address{}) || shares == nil {
		return nil, ErrNotAvailable
	}
	return r.callUint256(ctx, vault, "convertToAssets", shares)
}

// TotalAssets returns the vault's total managed assets in underlying units.
func (r *Reader) TotalAssets(ctx context.Context, vault common.Address) (*big.Int, error) {
	if vault == (common.Address{}) {
		return nil, ErrNotAvailable
	}
	return r.callUint256(ctx, vault, "totalAssets")
}

// TotalSupply returns the vault's issued share supply.
func (r *Reader) TotalSupply(ctx context.Context, vault common.Address) (*big.Int, error) {
	if vault == (common.Address{}) {
		return nil, ErrNotAvailable
	}
	return r.callUint256(ctx, vault, "totalSupply")
}

// TokenBalanceOf returns the plain ERC-20 balance of account for token.
// Wallet balances feed the portfolio total separately from vault accounting.
func (r *Reader) TokenBalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	if token == (common.Address{}) || account == (common.Address{}) {
		return nil, ErrNotAvailable
	}
	tokenABI, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	data, err := tokenABI.Pack("balanceOf", account)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}
	msg := ethereum.CallMsg{To: &token, Data: data}
	resp, err := r.client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call balanceOf: %w", err)
	}
	values, err := tokenABI.Unpack("balanceOf", resp)
	if err != nil {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}
	return asUint256(values)
}

func (r *Reader) callUint256(ctx context.Context, contract common.Address, method string, args ...interface{}) (*big.Int, error) {
	vaultABI, err := ERC4626ABI()
	if err != nil {
		return nil, fmt.Errorf("parse vault abi: %w", err)
	}

	data, err := vaultABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &contract, Data: data}
	resp, err := r.client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := vaultABI.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	value, err := asUint256(values)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return value, nil
}

func asUint256(values []interface{}) (*big.Int, error) {
	if len(values) != 1 {
		return nil, fmt.Errorf("unexpected return size %d", len(values))
	}
	value, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected return type %T", values[0])
	}
	return new(big.Int).Set(value), nil
}
