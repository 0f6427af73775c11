// Package price supplies the USD reference prices used for portfolio estimates.
package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/polkafarm/polkafarm/internal/config"
	"github.com/polkafarm/polkafarm/internal/logger"
)

const (
	defaultBaseURL = "https://api.coingecko.com/api/v3"
	cacheTTL       = time.Minute
)

// Quote holds USD prices for the native asset and the reward token.
type Quote struct {
	NativeUSD float64
	TokenUSD  float64
	Live      bool // true when at least one price came from a live feed
}

// Source yields a Quote. Implementations never fail; they fall back to
// reference prices instead.
type Source interface {
	Quote(ctx context.Context) Quote
}

// Static always returns the same quote.
type Static struct{ Q Quote }

// Quote implements Source.
func (s Static) Quote(context.Context) Quote { return s.Q }

// NewSource builds the Source selected by configuration.
func NewSource(cfg *config.Config) Source {
	fallback := Quote{NativeUSD: cfg.Prices.NativeUSD, TokenUSD: cfg.Prices.TokenUSD}
	if cfg.PriceSource != "coingecko" {
		return Static{Q: fallback}
	}
	return NewFetcher(cfg.Prices.NativeID, cfg.Prices.TokenID, fallback)
}

// Fetcher retrieves prices from CoinGecko, caching them for a minute.
type Fetcher struct {
	client   *http.Client
	baseURL  string
	nativeID string
	tokenID  string
	fallback Quote

	mu      sync.Mutex
	cached  Quote
	fetched time.Time
}

// NewFetcher creates a CoinGecko fetcher for the given coin IDs. An empty ID
// keeps the fallback price for that asset.
func NewFetcher(nativeID, tokenID string, fallback Quote) *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: 10 * time.Second},
		baseURL:  defaultBaseURL,
		nativeID: strings.ToLower(nativeID),
		tokenID:  strings.ToLower(tokenID),
		fallback: fallback,
	}
}

// Quote implements Source.
func (f *Fetcher) Quote(ctx context.Context) Quote {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.fetched.IsZero() && time.Since(f.fetched) < cacheTTL {
		return f.cached
	}

	q := f.fallback
	var ids []string
	for _, id := range []string{f.nativeID, f.tokenID} {
		if id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return q
	}

	prices, err := f.fetchBatch(ctx, ids)
	if err != nil {
		log := logger.With("price")
		log.Warn().Err(err).Msg("using reference prices")
		return q
	}
	if p, ok := prices[f.nativeID]; ok && f.nativeID != "" {
		q.NativeUSD, q.Live = p, true
	}
	if p, ok := prices[f.tokenID]; ok && f.tokenID != "" {
		q.TokenUSD, q.Live = p, true
	}

	f.cached, f.fetched = q, time.Now()
	return q
}

func (f *Fetcher) fetchBatch(ctx context.Context, ids []string) (map[string]float64, error) {
	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", f.baseURL, strings.Join(ids, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching prices: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading price response: %w", err)
	}

	// Response: {"polkadot":{"usd":4.56}, ...}
	var raw map[string]map[string]float64
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing price response: %w", err)
	}

	prices := make(map[string]float64, len(raw))
	for id, currencies := range raw {
		if p, ok := currencies["usd"]; ok {
			prices[id] = p
		}
	}
	return prices, nil
}
