package timeline

import (
	"context"
	"time"

	"github.com/bobmcallan/lotfolio/internal/common"
	"github.com/bobmcallan/lotfolio/internal/interfaces"
	"github.com/bobmcallan/lotfolio/internal/models"
)

// Compile-time interface check
var _ interfaces.TimelineService = (*Service)(nil)

// Service implements TimelineService
type Service struct {
	ledgers interfaces.LedgerService
	fetcher interfaces.PriceFetcher
	palette []string
	logger  *common.Logger
}

// NewService creates a new timeline service. A nil palette uses DefaultPalette.
func NewService(ledgers interfaces.LedgerService, fetcher interfaces.PriceFetcher, palette []string, logger *common.Logger) *Service {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	return &Service{
		ledgers: ledgers,
		fetcher: fetcher,
		palette: palette,
		logger:  logger,
	}
}

// GetTimeline reconstructs the portfolio's valuation history. Symbols whose
// prices could not be fetched are listed in FailedSymbols and valued nowhere.
func (s *Service) GetTimeline(ctx context.Context, portfolio string, opts interfaces.TimelineOptions) (*models.Timeline, error) {
	funcStart := time.Now()

	ledger, err := s.ledgers.GetLedger(ctx, portfolio)
	if err != nil {
		return nil, err
	}
	if !opts.From.IsZero() && !opts.To.IsZero() && opts.To.Before(opts.From) {
		return nil, models.NewValidationError("to", "%s is before from %s", opts.To, opts.From)
	}

	earliest, ok := ledger.EarliestPurchaseDate()
	if !ok {
		return Reconstruct(ledger, nil, Options{Palette: s.palette}), nil
	}

	phaseStart := time.Now()
	symbols := ledger.Symbols()
	fetched := s.fetcher.Fetch(ctx, symbols, earliest)
	s.logger.Debug().Dur("elapsed", time.Since(phaseStart)).Int("symbols", len(symbols)).
		Int("failed", len(fetched.Failed)).Msg("GetTimeline: price fetch complete")

	phaseStart = time.Now()
	tl := Reconstruct(ledger, fetched.Series, Options{From: opts.From, To: opts.To, Palette: s.palette})
	tl.FailedSymbols = fetched.FailedSymbols()
	s.logger.Debug().Dur("elapsed", time.Since(phaseStart)).Int("days", len(tl.Days)).
		Msg("GetTimeline: reconstruction complete")

	if len(tl.FailedSymbols) > 0 {
		s.logger.Warn().Str("portfolio", ledger.Portfolio).Strs("symbols", tl.FailedSymbols).
			Msg("Timeline excludes symbols without prices")
	}
	if len(tl.Gaps) > 0 {
		s.logger.Warn().Str("portfolio", ledger.Portfolio).Int("gaps", len(tl.Gaps)).
			Msg("Timeline has missing price points")
	}

	s.logger.Info().Str("portfolio", ledger.Portfolio).Int("days", len(tl.Days)).
		Dur("elapsed", time.Since(funcStart)).Msg("GetTimeline: TOTAL")
	return tl, nil
}
