// Package interfaces defines service contracts for lotfolio
package interfaces

import (
	"context"

	"github.com/bobmcallan/lotfolio/internal/models"
)

// StorageManager coordinates the storage backends
type StorageManager interface {
	LedgerStore() LedgerStore
	PriceCache() PriceCache

	// Backend names the active backend ("surrealdb", "file", "memory").
	Backend() string

	Close() error
}

// LedgerStore persists one ledger snapshot per portfolio.
type LedgerStore interface {
	// GetLedger returns models.ErrLedgerNotFound when the portfolio has no ledger yet.
	GetLedger(ctx context.Context, portfolio string) (*models.Ledger, error)
	SaveLedger(ctx context.Context, ledger *models.Ledger) error
	DeleteLedger(ctx context.Context, portfolio string) error
	ListPortfolios(ctx context.Context) ([]string, error)
}

// PriceCache stores fetched price series keyed by symbol.
type PriceCache interface {
	// GetSeries returns models.ErrSeriesNotFound for symbols never cached.
	GetSeries(ctx context.Context, symbol string) (*models.PriceSeries, error)
	SaveSeries(ctx context.Context, series *models.PriceSeries) error
}
