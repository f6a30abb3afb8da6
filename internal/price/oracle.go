package price

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"vaultfolio/internal/model"
)

// Config controls outbound price fetching and cache freshness.
type Config struct {
	// BaseURL of a CoinGecko-shaped price API exposing
	// GET {base}/simple/price?ids=...&vs_currencies=usd.
	BaseURL string
	// Timeout for one outbound request.
	Timeout time.Duration
	// FreshnessWindow after which a cached price is retagged as cached
	// rather than live.
	FreshnessWindow time.Duration
	// RefreshInterval between background refresh cycles while any
	// consumer is subscribed.
	RefreshInterval time.Duration
	// RequestsPerMinute caps outbound calls to the price API.
	RequestsPerMinute int
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.FreshnessWindow <= 0 {
		c.FreshnessWindow = 60 * time.Second
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = 60 * time.Second
	}
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = 30
	}
}

// Oracle fetches and caches spot USD prices for the tracked asset set.
// A fetch failure is recovered locally: the last cached value is served
// retagged, or the per-asset fallback constant when no cache exists. A
// consumer is never handed an undefined price.
//
// The cache is owned by the Oracle instance, constructed per session and
// injected into consumers; there is no package-level state.
type Oracle struct {
	cfg        Config
	assets     []model.Asset
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger

	mu            sync.Mutex
	cache         map[string]model.TokenPrice
	fetched       bool
	fetchFailed   bool
	consumers     int
	cancelRefresh context.CancelFunc
}

// NewOracle builds an Oracle for the fixed asset set.
func NewOracle(cfg Config, assets []model.Asset, logger *zap.Logger) *Oracle {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Oracle{
		cfg:        cfg,
		assets:     assets,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
		logger:     logger,
		cache:      make(map[string]model.TokenPrice),
	}
}

// Price returns the current price for one tracked symbol. Unknown symbols
// are an error; tracked symbols always resolve to a tagged value.
func (o *Oracle) Price(ctx context.Context, symbol string) (model.TokenPrice, error) {
	asset, ok := o.findAsset(symbol)
	if !ok {
		return model.TokenPrice{}, fmt.Errorf("untracked symbol: %s", symbol)
	}

	o.ensureFetched(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()
	return o.resolveLocked(asset, time.Now()), nil
}

// AllPrices returns a complete price map covering every tracked asset. The
// batch form is preferred by consumers needing several assets at once since
// the whole set is covered by a single outbound request per cycle.
func (o *Oracle) AllPrices(ctx context.Context) map[string]model.TokenPrice {
	o.ensureFetched(ctx)

	now := time.Now()
	o.mu.Lock()
	defer o.mu.Unlock()

	prices := make(map[string]model.TokenPrice, len(o.assets))
	for _, asset := range o.assets {
		prices[asset.Symbol] = o.resolveLocked(asset, now)
	}
	return prices
}

// Subscribe registers a consumer and starts the background refresh loop when
// the first one attaches.
func (o *Oracle) Subscribe() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.consumers++
	if o.consumers > 1 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	o.cancelRefresh = cancel
	go o.refreshLoop(ctx)
}

// Unsubscribe detaches a consumer and stops the refresh loop when the last
// one leaves, so no ticker outlives its consumers.
func (o *Oracle) Unsubscribe() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.consumers == 0 {
		return
	}
	o.consumers--
	if o.consumers == 0 && o.cancelRefresh != nil {
		o.cancelRefresh()
		o.cancelRefresh = nil
	}
}

func (o *Oracle) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := o.Refresh(ctx); err != nil {
				o.logger.Warn("price refresh failed", zap.Error(err))
			}
		}
	}
}

func (o *Oracle) ensureFetched(ctx context.Context) {
	o.mu.Lock()
	fetched := o.fetched
	o.mu.Unlock()
	if fetched {
		return
	}
	if err := o.Refresh(ctx); err != nil {
		o.logger.Warn("initial price fetch failed", zap.Error(err))
	}
}

// Refresh issues one outbound request covering all tracked non-stable assets
// and writes the results through to the cache. Stablecoins are priced at a
// constant 1.0 without a network call. The returned error is informational;
// reads still succeed via cache or fallback.
func (o *Oracle) Refresh(ctx context.Context) error {
	now := time.Now()
	for _, asset := range o.assets {
		if asset.Stable {
			o.store(model.TokenPrice{
				Symbol:      asset.Symbol,
				USD:         1.0,
				LastUpdated: now,
				Source:      model.PriceSourceLive,
			})
		}
	}

	ids := o.coinIDs()
	if len(ids) == 0 {
		o.markFetched(false)
		return nil
	}

	fetched, err := o.fetchUSD(ctx, ids)
	o.markFetched(err != nil)
	if err != nil {
		return err
	}

	now = time.Now()
	for _, asset := range o.assets {
		if asset.Stable {
			continue
		}
		usd, ok := fetched[asset.CoinID]
		if !ok || usd < 0 {
			o.logger.Warn("price missing from response",
				zap.String("symbol", asset.Symbol),
				zap.String("coin_id", asset.CoinID),
			)
			continue
		}
		o.store(model.TokenPrice{
			Symbol:      asset.Symbol,
			USD:         usd,
			LastUpdated: now,
			Source:      model.PriceSourceLive,
		})
	}

	return nil
}

func (o *Oracle) fetchUSD(ctx context.Context, ids []string) (map[string]float64, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd",
		strings.TrimRight(o.cfg.BaseURL, "/"),
		url.QueryEscape(strings.Join(ids, ",")),
	)

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build price request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("price request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("price api status %d", resp.StatusCode)
	}

	var body map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode price response: %w", err)
	}

	prices := make(map[string]float64, len(body))
	for coinID, entry := range body {
		prices[coinID] = entry.USD
	}
	return prices, nil
}

// store writes through to the cache unless it would regress an entry's
// LastUpdated, so a slow in-flight response cannot overwrite a fresher value.
func (o *Oracle) store(p model.TokenPrice) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if current, ok := o.cache[p.Symbol]; ok && current.LastUpdated.After(p.LastUpdated) {
		return
	}
	o.cache[p.Symbol] = p
}

func (o *Oracle) markFetched(failed bool) {
	o.mu.Lock()
	o.fetched = true
	o.fetchFailed = failed
	o.mu.Unlock()
}

func (o *Oracle) resolveLocked(asset model.Asset, now time.Time) model.TokenPrice {
	if cached, ok := o.cache[asset.Symbol]; ok {
		// A value is retagged cached once its freshness window elapses, or
		// immediately when the latest fetch is known to have failed; the
		// substitution stays visible either way. Stablecoins never depend
		// on the fetch.
		expired := now.Sub(cached.LastUpdated) > o.cfg.FreshnessWindow
		degraded := o.fetchFailed && !asset.Stable
		if cached.Source == model.PriceSourceLive && (expired || degraded) {
			cached.Source = model.PriceSourceCached
		}
		return cached
	}
	return model.TokenPrice{
		Symbol:      asset.Symbol,
		USD:         asset.FallbackUSD,
		LastUpdated: now,
		Source:      model.PriceSourceFallback,
	}
}

func (o *Oracle) findAsset(symbol string) (model.Asset, bool) {
	for _, asset := range o.assets {
		if strings.EqualFold(asset.Symbol, symbol) {
			return asset, true
		}
	}
	return model.Asset{}, false
}

func (o *Oracle) coinIDs() []string {
	ids := make([]string, 0, len(o.assets))
	for _, asset := range o.assets {
		if asset.Stable || asset.CoinID == "" {
			continue
		}
		ids = append(ids, asset.CoinID)
	}
	return ids
}
