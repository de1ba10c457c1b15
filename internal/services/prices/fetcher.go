// Package prices fetches daily close series for many symbols concurrently
package prices

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/lotfolio/internal/common"
	"github.com/bobmcallan/lotfolio/internal/interfaces"
	"github.com/bobmcallan/lotfolio/internal/models"
)

// Compile-time interface check
var _ interfaces.PriceFetcher = (*Fetcher)(nil)

const (
	defaultMaxConcurrent = 8
	defaultCacheTTL      = common.FreshnessPriceSeries
)

// Fetcher retrieves price series through a PriceClient, reading and filling
// a PriceCache. One symbol failing never affects another.
type Fetcher struct {
	client        interfaces.PriceClient
	cache         interfaces.PriceCache
	maxConcurrent int
	cacheTTL      time.Duration
	logger        *common.Logger
	now           func() time.Time
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithMaxConcurrent bounds the number of in-flight provider requests.
func WithMaxConcurrent(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxConcurrent = n
		}
	}
}

// WithCacheTTL sets how long a cached series is served without refetching.
// Zero or negative always refetches, keeping the cache only as a fallback.
func WithCacheTTL(ttl time.Duration) Option {
	return func(f *Fetcher) {
		f.cacheTTL = ttl
	}
}

// NewFetcher creates a new price fetcher. client and cache may be nil.
func NewFetcher(client interfaces.PriceClient, cache interfaces.PriceCache, logger *common.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:        client,
		cache:         cache,
		maxConcurrent: defaultMaxConcurrent,
		cacheTTL:      defaultCacheTTL,
		logger:        logger,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves one normalized series per distinct symbol. Symbols that
// could not be fetched, and have no cached fallback, are listed in Failed.
// Fetch itself never fails; with every symbol failed Series is empty.
func (f *Fetcher) Fetch(ctx context.Context, symbols []string, from models.Date) *models.FetchResult {
	result := &models.FetchResult{
		Series: make(map[string]*models.PriceSeries),
		Failed: make(map[string]string),
	}

	unique := dedupe(symbols)
	if len(unique) == 0 {
		return result
	}

	sem := make(chan struct{}, f.maxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, symbol := range unique {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				mu.Lock()
				result.Failed[symbol] = (&models.PriceFetchError{Symbol: symbol, Err: ctx.Err()}).Error()
				mu.Unlock()
				return
			}
			defer func() { <-sem }()

			series, err := f.fetchOne(ctx, symbol, from)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed[symbol] = err.Error()
				return
			}
			result.Series[symbol] = series
		}(symbol)
	}

	wg.Wait()

	if len(result.Failed) > 0 {
		f.logger.Warn().Int("fetched", len(result.Series)).Int("failed", len(result.Failed)).
			Strs("symbols", result.FailedSymbols()).Msg("Price fetch completed with failures")
	}
	return result
}

// fetchOne resolves a single symbol: fresh cache, then provider, then stale cache.
func (f *Fetcher) fetchOne(ctx context.Context, symbol string, from models.Date) (*models.PriceSeries, error) {
	cached := f.cached(ctx, symbol)
	if cached != nil && f.isFresh(cached, from) {
		f.logger.Debug().Str("symbol", symbol).Msg("Price series served from cache")
		return cached, nil
	}

	series, err := f.download(ctx, symbol, from)
	if err != nil {
		if cached != nil && len(cached.Points) > 0 {
			f.logger.Warn().Str("symbol", symbol).Err(err).
				Time("fetched_at", cached.FetchedAt).Msg("Price fetch failed, using stale cache")
			return cached, nil
		}
		f.logger.Warn().Str("symbol", symbol).Err(err).Msg("Price fetch failed")
		return nil, &models.PriceFetchError{Symbol: symbol, Err: err}
	}

	if f.cache != nil {
		if err := f.cache.SaveSeries(ctx, series); err != nil {
			f.logger.Warn().Str("symbol", symbol).Err(err).Msg("Failed to cache price series")
		}
	}
	return series, nil
}

func (f *Fetcher) download(ctx context.Context, symbol string, from models.Date) (*models.PriceSeries, error) {
	if f.client == nil {
		return nil, errors.New("no price provider configured")
	}

	series, err := f.client.GetDailyHistory(ctx, symbol, from.Time())
	if err != nil {
		return nil, err
	}
	if series == nil {
		return nil, fmt.Errorf("%s returned no series", f.client.Name())
	}

	series.Symbol = symbol
	if series.Source == "" {
		series.Source = f.client.Name()
	}
	series.From = from
	series.FetchedAt = f.now().UTC()
	series.Normalize()
	if len(series.Points) == 0 {
		return nil, fmt.Errorf("%s returned no usable prices", f.client.Name())
	}
	return series, nil
}

func (f *Fetcher) cached(ctx context.Context, symbol string) *models.PriceSeries {
	if f.cache == nil {
		return nil
	}
	series, err := f.cache.GetSeries(ctx, symbol)
	if err != nil {
		if !errors.Is(err, models.ErrSeriesNotFound) {
			f.logger.Warn().Str("symbol", symbol).Err(err).Msg("Failed to read cached price series")
		}
		return nil
	}
	series.Normalize()
	return series
}

func (f *Fetcher) isFresh(s *models.PriceSeries, from models.Date) bool {
	if f.cacheTTL <= 0 || len(s.Points) == 0 || !s.Covers(from) {
		return false
	}
	return common.IsFresh(s.FetchedAt, f.now(), f.cacheTTL)
}

// dedupe uppercases symbols, drops blanks and repeats, and sorts the result.
func dedupe(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
