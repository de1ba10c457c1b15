package interfaces

import (
	"context"
	"io"

	"github.com/bobmcallan/lotfolio/internal/models"
)

// LedgerService records buys and FIFO sells against a portfolio's ledger
type LedgerService interface {
	// GetLedger returns a snapshot; an unknown portfolio yields an empty ledger.
	GetLedger(ctx context.Context, portfolio string) (*models.Ledger, error)

	// Buy appends a new open lot.
	Buy(ctx context.Context, portfolio string, order models.BuyOrder) (*models.Lot, error)

	// Sell consumes open lots oldest first. All-or-nothing.
	Sell(ctx context.Context, portfolio string, order models.SellOrder) (*models.SellResult, error)

	// GetHoldings aggregates open lots per symbol.
	GetHoldings(ctx context.Context, portfolio string) ([]models.Holding, error)

	// ImportCSV replays buy/sell rows in file order.
	ImportCSV(ctx context.Context, portfolio string, r io.Reader) (*models.ImportSummary, error)

	ListPortfolios(ctx context.Context) ([]string, error)
}

// PriceFetcher retrieves price series for many symbols, isolating failures per symbol
type PriceFetcher interface {
	Fetch(ctx context.Context, symbols []string, from models.Date) *models.FetchResult
}

// TimelineOptions clips the emitted valuation window. Zero values mean unbounded.
type TimelineOptions struct {
	From models.Date
	To   models.Date
}

// TimelineService reconstructs a portfolio's day-by-day valuation
type TimelineService interface {
	GetTimeline(ctx context.Context, portfolio string, opts TimelineOptions) (*models.Timeline, error)
}
