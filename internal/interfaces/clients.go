package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/lotfolio/internal/models"
)

// PriceClient retrieves daily close history for one symbol from a market data provider
type PriceClient interface {
	// Name identifies the provider ("fmp", "eodhd").
	Name() string

	// GetDailyHistory returns closes from the given date onward. The series
	// may be in any order; callers normalize it.
	GetDailyHistory(ctx context.Context, symbol string, from time.Time) (*models.PriceSeries, error)
}
