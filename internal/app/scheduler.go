package app

import (
	"context"
	"time"

	"github.com/bobmcallan/lotfolio/internal/common"
	"github.com/bobmcallan/lotfolio/internal/interfaces"
)

// startPriceScheduler refreshes cached price series on a fixed interval.
func startPriceScheduler(ctx context.Context, ledgers interfaces.LedgerService, fetcher interfaces.PriceFetcher, logger *common.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Price scheduler: stopped")
			return
		case <-ticker.C:
			start := time.Now()
			symbols := refreshPortfolioPrices(ctx, ledgers, fetcher, logger)
			logger.Info().
				Int("symbols", symbols).
				Dur("elapsed", time.Since(start)).
				Msg("Price refresh: complete")
		}
	}
}
