package price

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"vaultfolio/internal/model"
)

func testAssets() []model.Asset {
	return []model.Asset{
		{Symbol: "WETH", Decimals: 18, CoinID: "ethereum", FallbackUSD: 2500},
		{Symbol: "WBTC", Decimals: 8, CoinID: "wrapped-bitcoin", FallbackUSD: 60000},
		{Symbol: "USDC", Decimals: 6, Stable: true, FallbackUSD: 1},
	}
}

func priceServer(t *testing.T, status int, body string, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func TestAllPricesLive(t *testing.T) {
	server := priceServer(t, http.StatusOK, `{"ethereum":{"usd":3000},"wrapped-bitcoin":{"usd":65000}}`, nil)
	defer server.Close()

	oracle := NewOracle(Config{BaseURL: server.URL, RequestsPerMinute: 600}, testAssets(), nil)
	prices := oracle.AllPrices(context.Background())

	if len(prices) != 3 {
		t.Fatalf("price map must cover every tracked asset: %d", len(prices))
	}
	if prices["WETH"].USD != 3000 || prices["WETH"].Source != model.PriceSourceLive {
		t.Fatalf("weth: %+v", prices["WETH"])
	}
	if prices["WBTC"].USD != 65000 {
		t.Fatalf("wbtc: %+v", prices["WBTC"])
	}
	if prices["USDC"].USD != 1.0 || prices["USDC"].Source != model.PriceSourceLive {
		t.Fatalf("stablecoin must be priced at 1.0: %+v", prices["USDC"])
	}
}

func TestAllPricesFallbackOnServerError(t *testing.T) {
	server := priceServer(t, http.StatusInternalServerError, "boom", nil)
	defer server.Close()

	oracle := NewOracle(Config{BaseURL: server.URL, RequestsPerMinute: 600}, testAssets(), nil)
	prices := oracle.AllPrices(context.Background())

	if len(prices) != 3 {
		t.Fatalf("fallback map must still be complete: %d", len(prices))
	}
	for symbol, price := range prices {
		if math.IsNaN(price.USD) || price.USD < 0 {
			t.Fatalf("%s: invalid price %v", symbol, price.USD)
		}
		if price.Source == "" {
			t.Fatalf("%s: missing source tag", symbol)
		}
	}
	if prices["WETH"].USD != 2500 || prices["WETH"].Source != model.PriceSourceFallback {
		t.Fatalf("weth must use the fallback constant: %+v", prices["WETH"])
	}
	if prices["USDC"].Source != model.PriceSourceLive {
		t.Fatalf("stablecoin needs no network call: %+v", prices["USDC"])
	}
}

func TestAllPricesFallbackOnMalformedBody(t *testing.T) {
	server := priceServer(t, http.StatusOK, `{"ethereum":`, nil)
	defer server.Close()

	oracle := NewOracle(Config{BaseURL: server.URL, RequestsPerMinute: 600}, testAssets(), nil)
	prices := oracle.AllPrices(context.Background())

	if prices["WBTC"].Source != model.PriceSourceFallback {
		t.Fatalf("malformed body must fall back: %+v", prices["WBTC"])
	}
}

func TestStalePriceRetagged(t *testing.T) {
	server := priceServer(t, http.StatusOK, `{"ethereum":{"usd":3000},"wrapped-bitcoin":{"usd":65000}}`, nil)
	defer server.Close()

	oracle := NewOracle(Config{
		BaseURL:           server.URL,
		FreshnessWindow:   10 * time.Millisecond,
		RequestsPerMinute: 600,
	}, testAssets(), nil)

	if err := oracle.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	server.Close()

	price, err := oracle.Price(context.Background(), "WETH")
	if err != nil {
		t.Fatalf("price failed: %v", err)
	}
	if price.Source != model.PriceSourceCached {
		t.Fatalf("price past freshness window must be tagged cached: %+v", price)
	}
	if price.USD != 3000 {
		t.Fatalf("stale value must still be the cached one: %v", price.USD)
	}
}

func TestFailedRefreshRetagsCachedPrices(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Write([]byte(`{"ethereum":{"usd":3000},"wrapped-bitcoin":{"usd":65000}}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	oracle := NewOracle(Config{
		BaseURL:           server.URL,
		FreshnessWindow:   time.Hour,
		RequestsPerMinute: 600,
	}, testAssets(), nil)

	if err := oracle.Refresh(context.Background()); err != nil {
		t.Fatalf("first refresh failed: %v", err)
	}
	if err := oracle.Refresh(context.Background()); err == nil {
		t.Fatalf("second refresh must report the upstream failure")
	}

	price, err := oracle.Price(context.Background(), "WETH")
	if err != nil {
		t.Fatalf("price failed: %v", err)
	}
	if price.Source != model.PriceSourceCached {
		t.Fatalf("value served after a failed fetch must be tagged cached: %+v", price)
	}
	if price.USD != 3000 {
		t.Fatalf("cached value must survive the failed fetch: %v", price.USD)
	}

	usdc, err := oracle.Price(context.Background(), "USDC")
	if err != nil {
		t.Fatalf("usdc price failed: %v", err)
	}
	if usdc.Source != model.PriceSourceLive {
		t.Fatalf("stablecoin pricing does not depend on the fetch: %+v", usdc)
	}
}

func TestStoreDoesNotRegressTimestamp(t *testing.T) {
	oracle := NewOracle(Config{BaseURL: "http://unused"}, testAssets(), nil)

	fresh := model.TokenPrice{Symbol: "WETH", USD: 3100, LastUpdated: time.Now(), Source: model.PriceSourceLive}
	slow := model.TokenPrice{Symbol: "WETH", USD: 2900, LastUpdated: fresh.LastUpdated.Add(-5 * time.Second), Source: model.PriceSourceLive}

	oracle.store(fresh)
	oracle.store(slow)

	price, err := oracle.Price(context.Background(), "WETH")
	if err != nil {
		t.Fatalf("price failed: %v", err)
	}
	if price.USD != 3100 {
		t.Fatalf("older in-flight response must not overwrite fresher value: %v", price.USD)
	}
}

func TestPriceUntrackedSymbol(t *testing.T) {
	oracle := NewOracle(Config{BaseURL: "http://unused"}, testAssets(), nil)
	if _, err := oracle.Price(context.Background(), "DOGE"); err == nil {
		t.Fatalf("expected error for untracked symbol")
	}
}

func TestSubscribeRefCounting(t *testing.T) {
	oracle := NewOracle(Config{BaseURL: "http://unused", RefreshInterval: time.Hour}, testAssets(), nil)

	oracle.Subscribe()
	oracle.Subscribe()
	oracle.Unsubscribe()

	oracle.mu.Lock()
	running := oracle.cancelRefresh != nil
	oracle.mu.Unlock()
	if !running {
		t.Fatalf("loop must keep running while a consumer remains")
	}

	oracle.Unsubscribe()
	oracle.mu.Lock()
	running = oracle.cancelRefresh != nil
	consumers := oracle.consumers
	oracle.mu.Unlock()
	if running {
		t.Fatalf("last unsubscribe must stop the refresh loop")
	}
	if consumers != 0 {
		t.Fatalf("consumer count must return to zero: %d", consumers)
	}

	// Unbalanced extra unsubscribe is a no-op.
	oracle.Unsubscribe()
}

func TestOnlyStableAssetsSkipNetwork(t *testing.T) {
	var hits atomic.Int64
	server := priceServer(t, http.StatusOK, `{}`, &hits)
	defer server.Close()

	stableOnly := []model.Asset{{Symbol: "USDC", Decimals: 6, Stable: true, FallbackUSD: 1}}
	oracle := NewOracle(Config{BaseURL: server.URL, RequestsPerMinute: 600}, stableOnly, nil)

	prices := oracle.AllPrices(context.Background())
	if prices["USDC"].USD != 1.0 {
		t.Fatalf("usdc: %+v", prices["USDC"])
	}
	if hits.Load() != 0 {
		t.Fatalf("stable-only set must not hit the price api: %d", hits.Load())
	}
}
