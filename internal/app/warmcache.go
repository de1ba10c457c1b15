package app

import (
	"context"
	"os"
	"time"

	"github.com/bobmcallan/lotfolio/internal/common"
	"github.com/bobmcallan/lotfolio/internal/interfaces"
)

// warmCache pre-fetches price series for every stored portfolio on startup
// so the first timeline request is served from cache.
func warmCache(ctx context.Context, ledgers interfaces.LedgerService, fetcher interfaces.PriceFetcher, logger *common.Logger) {
	if os.Getenv("LOTFOLIO_WARM_CACHE") == "off" {
		logger.Info().Msg("Warm cache: disabled via LOTFOLIO_WARM_CACHE=off")
		return
	}

	start := time.Now()
	symbols := refreshPortfolioPrices(ctx, ledgers, fetcher, logger)

	logger.Info().
		Int("symbols", symbols).
		Dur("elapsed", time.Since(start)).
		Msg("Warm cache: complete")
}

// refreshPortfolioPrices fetches every portfolio's symbols from its earliest
// purchase. Fresh cache entries are not re-downloaded. Returns the number of
// symbols requested.
func refreshPortfolioPrices(ctx context.Context, ledgers interfaces.LedgerService, fetcher interfaces.PriceFetcher, logger *common.Logger) int {
	names, err := ledgers.ListPortfolios(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Price refresh: failed to list portfolios")
		return 0
	}

	total := 0
	for _, name := range names {
		if ctx.Err() != nil {
			return total
		}

		l, err := ledgers.GetLedger(ctx, name)
		if err != nil {
			logger.Warn().Err(err).Str("portfolio", name).Msg("Price refresh: failed to load ledger")
			continue
		}
		earliest, ok := l.EarliestPurchaseDate()
		if !ok {
			continue
		}

		symbols := l.Symbols()
		result := fetcher.Fetch(ctx, symbols, earliest)
		total += len(symbols)

		if len(result.Failed) > 0 {
			logger.Warn().Str("portfolio", name).Strs("symbols", result.FailedSymbols()).
				Msg("Price refresh: some symbols failed")
		}
	}
	return total
}
