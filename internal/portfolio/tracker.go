package portfolio

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"vaultfolio/internal/model"
	"vaultfolio/internal/price"
	"vaultfolio/internal/vault"
)

// divergenceTolerance is the relative gap between the vault's reported share
// conversion and the local recomputation above which a warning is logged.
const divergenceTolerance = 0.001

// Tracker orchestrates the portfolio pipeline: it fans chain reads and price
// lookups out per vault, feeds the history and position computations, and
// maintains the per-vault readiness state
// Absent -> Loading -> Resolved -> Stale.
//
// Results arriving for an account that has since been disconnected or
// switched are discarded via a generation counter.
type Tracker struct {
	reader  *vault.Reader
	oracle  *price.Oracle
	vaults  []model.VaultDescriptor
	chainID uint64
	logger  *zap.Logger

	mu        sync.Mutex
	account   common.Address
	gen       uint64
	states    map[string]*vaultState
	walletUSD float64
}

type vaultState struct {
	readiness model.Readiness
	position  model.VaultPosition
	history   model.VaultHistory
}

// vaultResult is one vault's completed fetch cycle.
type vaultResult struct {
	position model.VaultPosition
	history  model.VaultHistory
}

// NewTracker builds a Tracker over the fixed vault set.
func NewTracker(reader *vault.Reader, oracle *price.Oracle, vaults []model.VaultDescriptor, chainID uint64, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}

	states := make(map[string]*vaultState, len(vaults))
	for _, descriptor := range vaults {
		states[vaultKey(descriptor.Address)] = &vaultState{readiness: model.ReadinessAbsent}
	}

	return &Tracker{
		reader:  reader,
		oracle:  oracle,
		vaults:  vaults,
		chainID: chainID,
		logger:  logger,
		states:  states,
	}
}

// SetAccount switches the tracked account. A zero address disconnects:
// every vault reverts to Absent and any in-flight results for the previous
// account are discarded when they land.
func (t *Tracker) SetAccount(account common.Address) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if account == t.account {
		return
	}

	t.account = account
	t.gen++
	t.walletUSD = 0

	readiness := model.ReadinessLoading
	if account == (common.Address{}) {
		readiness = model.ReadinessAbsent
	}
	for _, state := range t.states {
		*state = vaultState{readiness: readiness}
	}
}

// Refresh runs one full fetch cycle: prices once for the whole asset set,
// then every vault concurrently, then the wallet balances. It returns the
// snapshot assembled from whatever state the cycle produced; individual
// vault failures degrade that vault to Stale without blocking the rest.
func (t *Tracker) Refresh(ctx context.Context) model.PortfolioSnapshot {
	t.mu.Lock()
	account := t.account
	gen := t.gen
	t.mu.Unlock()

	if account == (common.Address{}) {
		return t.Snapshot()
	}

	prices := t.oracle.AllPrices(ctx)

	var wg sync.WaitGroup
	for _, descriptor := range t.vaults {
		wg.Add(1)
		go func(d model.VaultDescriptor) {
			defer wg.Done()
			tokenPrice := prices[d.Asset.Symbol]
			result, err := t.fetchVault(ctx, d, account, tokenPrice)
			t.commitVault(gen, d, result, err)
		}(descriptor)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		walletUSD, err := t.fetchWalletValue(ctx, account, prices)
		t.commitWallet(gen, walletUSD, err)
	}()

	wg.Wait()
	return t.Snapshot()
}

// Snapshot assembles the current portfolio aggregate from per-vault state.
func (t *Tracker) Snapshot() model.PortfolioSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	summaries := make([]model.VaultSummary, 0, len(t.vaults))
	for _, descriptor := range t.vaults {
		state := t.states[vaultKey(descriptor.Address)]
		summaries = append(summaries, model.VaultSummary{
			VaultAddress: descriptor.Address,
			VaultName:    descriptor.Name,
			AssetSymbol:  descriptor.Asset.Symbol,
			Readiness:    state.readiness,
			Position:     state.position,
			History:      state.history,
		})
	}

	snapshot := Aggregate(summaries, t.walletUSD)
	snapshot.ChainID = t.chainID
	snapshot.Account = t.account.Hex()
	if t.account == (common.Address{}) {
		snapshot.Account = ""
	}
	return snapshot
}

// fetchVault performs the full read sequence for one vault. The history is
// only computed once both the deposit and the withdraw ledger have arrived;
// a failure anywhere leaves the vault without a partial result.
func (t *Tracker) fetchVault(ctx context.Context, d model.VaultDescriptor, account common.Address, tokenPrice model.TokenPrice) (vaultResult, error) {
	vaultAddr := common.HexToAddress(d.Address)

	shareBalance, err := t.reader.ShareBalanceOf(ctx, vaultAddr, account)
	if err != nil {
		return vaultResult{}, err
	}
	assetsEquivalent, err := t.reader.ConvertSharesToAssets(ctx, vaultAddr, shareBalance)
	if err != nil {
		return vaultResult{}, err
	}
	totalAssets, err := t.reader.TotalAssets(ctx, vaultAddr)
	if err != nil {
		return vaultResult{}, err
	}
	totalSupply, err := t.reader.TotalSupply(ctx, vaultAddr)
	if err != nil {
		return vaultResult{}, err
	}

	input := PositionInput{
		ShareBalance:     shareBalance,
		AssetsEquivalent: assetsEquivalent,
		TotalAssets:      totalAssets,
		TotalSupply:      totalSupply,
		Decimals:         d.Asset.Decimals,
		PriceUSD:         tokenPrice.USD,
		APY:              d.APY,
	}
	position := ResolvePosition(input)

	if divergence := ConversionDivergence(input); divergence > divergenceTolerance {
		t.logger.Warn("share conversion divergence",
			zap.String("vault", d.Address),
			zap.Float64("relative", divergence),
		)
	}

	deposits, depErr := t.reader.DepositEvents(ctx, vaultAddr, account)
	withdraws, wdErr := t.reader.WithdrawEvents(ctx, vaultAddr, account)
	if depErr != nil || wdErr != nil {
		// The ledger scan failed but the position is known; fall back to
		// the share-price estimate so the vault still renders, and let the
		// caller mark it stale.
		err := depErr
		if err == nil {
			err = wdErr
		}
		if position.Resolved {
			return vaultResult{
				position: position,
				history:  EstimateHistory(position.USDValue, position.SharePrice),
			}, err
		}
		return vaultResult{}, err
	}

	history := ComputeHistory(deposits, withdraws, position.USDValue, d.Asset.Decimals, tokenPrice.USD)

	return vaultResult{position: position, history: history}, nil
}

func (t *Tracker) commitVault(gen uint64, d model.VaultDescriptor, result vaultResult, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.gen {
		// Late result for an account that is no longer tracked.
		return
	}

	state := t.states[vaultKey(d.Address)]
	if state == nil {
		return
	}

	switch {
	case err == nil:
		*state = vaultState{
			readiness: model.ReadinessResolved,
			position:  result.position,
			history:   result.history,
		}
	case errors.Is(err, vault.ErrNotAvailable):
		*state = vaultState{readiness: model.ReadinessAbsent}
	case result.position.Resolved:
		// Ledger scan failed; keep the freshly resolved position with the
		// estimated history, flagged stale.
		*state = vaultState{
			readiness: model.ReadinessStale,
			position:  result.position,
			history:   result.history,
		}
		t.logger.Warn("vault refresh degraded to estimate", zap.String("vault", d.Address), zap.Error(err))
	case state.readiness == model.ReadinessResolved || state.readiness == model.ReadinessStale:
		// Keep the last good values, flagged stale. Zero is reserved for
		// legitimate "no activity", not for "could not determine".
		state.readiness = model.ReadinessStale
		t.logger.Warn("vault refresh failed, retaining last values", zap.String("vault", d.Address), zap.Error(err))
	default:
		// Never resolved; remain loading.
		t.logger.Warn("vault fetch failed", zap.String("vault", d.Address), zap.Error(err))
	}
}

func (t *Tracker) fetchWalletValue(ctx context.Context, account common.Address, prices map[string]model.TokenPrice) (float64, error) {
	total := 0.0
	assets := t.assetSet()
	for _, asset := range assets {
		if asset.Address == "" || !common.IsHexAddress(asset.Address) {
			continue
		}
		balance, err := t.reader.TokenBalanceOf(ctx, common.HexToAddress(asset.Address), account)
		if err != nil {
			return 0, err
		}
		total += tokenAmount(balance, asset.Decimals) * prices[asset.Symbol].USD
	}
	return total, nil
}

func (t *Tracker) commitWallet(gen uint64, walletUSD float64, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.gen {
		return
	}
	if err != nil {
		// Keep the previous wallet value rather than zeroing it.
		t.logger.Warn("wallet balance refresh failed", zap.Error(err))
		return
	}
	t.walletUSD = walletUSD
}

// assetSet returns the distinct assets across the vault set.
func (t *Tracker) assetSet() []model.Asset {
	seen := make(map[string]struct{}, len(t.vaults))
	assets := make([]model.Asset, 0, len(t.vaults))
	for _, descriptor := range t.vaults {
		key := strings.ToUpper(descriptor.Asset.Symbol)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		assets = append(assets, descriptor.Asset)
	}
	return assets
}

func vaultKey(address string) string {
	return strings.ToLower(address)
}
