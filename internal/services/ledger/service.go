package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bobmcallan/lotfolio/internal/common"
	"github.com/bobmcallan/lotfolio/internal/interfaces"
	"github.com/bobmcallan/lotfolio/internal/models"
)

// Compile-time interface check
var _ interfaces.LedgerService = (*Service)(nil)

// Service implements LedgerService on top of a LedgerStore
type Service struct {
	store  interfaces.LedgerStore
	locks  *portfolioLocks
	logger *common.Logger
	now    func() time.Time
}

// NewService creates a new ledger service
func NewService(store interfaces.LedgerStore, logger *common.Logger) *Service {
	return &Service{
		store:  store,
		locks:  newPortfolioLocks(),
		logger: logger,
		now:    time.Now,
	}
}

// GetLedger returns the stored ledger, or an empty one for a new portfolio.
func (s *Service) GetLedger(ctx context.Context, portfolio string) (*models.Ledger, error) {
	name, err := NormalizePortfolio(portfolio)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, name)
}

func (s *Service) load(ctx context.Context, portfolio string) (*models.Ledger, error) {
	l, err := s.store.GetLedger(ctx, portfolio)
	if errors.Is(err, models.ErrLedgerNotFound) {
		return models.NewLedger(portfolio), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger %s: %w", portfolio, err)
	}
	if l.Lots == nil {
		l.Lots = []models.Lot{}
	}
	l.Portfolio = portfolio
	return l, nil
}

func (s *Service) save(ctx context.Context, l *models.Ledger) error {
	l.Version++
	l.UpdatedAt = s.now().UTC()
	if err := s.store.SaveLedger(ctx, l); err != nil {
		return fmt.Errorf("failed to save ledger %s: %w", l.Portfolio, err)
	}
	return nil
}

// update runs fn against the current ledger under the portfolio lock and
// persists the ledger fn returns. Nothing is saved when fn fails.
func (s *Service) update(ctx context.Context, portfolio string, fn func(*models.Ledger) (*models.Ledger, error)) (*models.Ledger, error) {
	name, err := NormalizePortfolio(portfolio)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(name)
	defer unlock()

	current, err := s.load(ctx, name)
	if err != nil {
		return nil, err
	}
	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Buy records a new open lot.
func (s *Service) Buy(ctx context.Context, portfolio string, order models.BuyOrder) (*models.Lot, error) {
	var lot models.Lot
	l, err := s.update(ctx, portfolio, func(current *models.Ledger) (*models.Ledger, error) {
		next, added, err := AddLot(current, order)
		lot = added
		return next, err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("portfolio", l.Portfolio).Str("lot", lot.ID).
		Str("symbol", lot.Symbol).Float64("quantity", lot.Quantity).
		Float64("price", lot.PurchasePrice).Str("date", lot.PurchaseDate.String()).
		Msg("Lot added")
	return &lot, nil
}

// Sell matches a sale against open lots FIFO.
func (s *Service) Sell(ctx context.Context, portfolio string, order models.SellOrder) (*models.SellResult, error) {
	var result *models.SellResult
	l, err := s.update(ctx, portfolio, func(current *models.Ledger) (*models.Ledger, error) {
		r, err := Sell(current, order)
		if err != nil {
			return nil, err
		}
		result = r
		return r.Ledger, nil
	})
	if err != nil {
		var insufficient *models.InsufficientSharesError
		if errors.As(err, &insufficient) {
			s.logger.Warn().Str("portfolio", portfolio).Str("symbol", insufficient.Symbol).
				Float64("available", insufficient.Available).
				Float64("requested", insufficient.Requested).
				Msg("Sell rejected")
		}
		return nil, err
	}

	result.Ledger = l
	s.logger.Info().Str("portfolio", l.Portfolio).Str("symbol", order.Symbol).
		Float64("quantity", result.SoldQuantity).Float64("proceeds", result.Proceeds).
		Int("lots", len(result.Fills)).Msg("Sell matched")
	return result, nil
}

// GetHoldings aggregates the open lots of a portfolio.
func (s *Service) GetHoldings(ctx context.Context, portfolio string) ([]models.Holding, error) {
	l, err := s.GetLedger(ctx, portfolio)
	if err != nil {
		return nil, err
	}
	return Holdings(l), nil
}

// ListPortfolios returns the names of every stored portfolio.
func (s *Service) ListPortfolios(ctx context.Context) ([]string, error) {
	names, err := s.store.ListPortfolios(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}
