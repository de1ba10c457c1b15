package ledger

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/lotfolio/internal/models"
)

// tradeRow is one line of a trade import file:
//
//	type,symbol,quantity,price,date
//	buy,AAPL,10,150,2023-01-15
//	sell,AAPL,4,180,2023-06-01
type tradeRow struct {
	Type     string `csv:"type"`
	Symbol   string `csv:"symbol"`
	Quantity string `csv:"quantity"`
	Price    string `csv:"price"`
	Date     string `csv:"date"`
}

// parseTrades decodes a trade import file. Rows are not validated beyond
// their numeric columns.
func parseTrades(r io.Reader) ([]tradeRow, error) {
	var rows []tradeRow
	if err := gocsv.UnmarshalCSV(gocsv.LazyCSVReader(r), &rows); err != nil {
		return nil, models.NewValidationError("csv", "unreadable trade file: %v", err)
	}
	if len(rows) == 0 {
		return nil, models.NewValidationError("csv", "trade file has no rows")
	}
	return rows, nil
}

// applyTrades replays rows in file order against a copy of l. The first
// failing row aborts the whole import; rows are numbered from 1 after the header.
func applyTrades(l *models.Ledger, rows []tradeRow) (*models.Ledger, *models.ImportSummary, error) {
	next := l.Clone()
	summary := &models.ImportSummary{Portfolio: l.Portfolio, Rows: len(rows)}
	proceeds := decimal.Zero

	for i, row := range rows {
		n := i + 1
		qty, err := parseNumber("quantity", row.Quantity)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", n, err)
		}
		price, err := parseNumber("price", row.Price)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", n, err)
		}

		switch strings.ToLower(strings.TrimSpace(row.Type)) {
		case "buy":
			next, _, err = AddLot(next, models.BuyOrder{
				Symbol:        row.Symbol,
				Quantity:      qty,
				PurchasePrice: price,
				PurchaseDate:  row.Date,
			})
			if err != nil {
				return nil, nil, fmt.Errorf("row %d: %w", n, err)
			}
			summary.Buys++
		case "sell":
			res, err := Sell(next, models.SellOrder{
				Symbol:    row.Symbol,
				Quantity:  qty,
				SellPrice: price,
				SellDate:  row.Date,
			})
			if err != nil {
				return nil, nil, fmt.Errorf("row %d: %w", n, err)
			}
			next = res.Ledger
			proceeds = proceeds.Add(decimal.NewFromFloat(res.Proceeds))
			summary.Sells++
		default:
			return nil, nil, fmt.Errorf("row %d: %w", n,
				models.NewValidationError("type", "must be buy or sell, got %q", row.Type))
		}
	}

	summary.Proceeds = proceeds.InexactFloat64()
	return next, summary, nil
}

func parseNumber(field, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, models.NewValidationError(field, "not a number: %q", s)
	}
	return v, nil
}

// ImportCSV applies a trade file to the portfolio in one locked update.
// Either every row is applied or none is.
func (s *Service) ImportCSV(ctx context.Context, portfolio string, r io.Reader) (*models.ImportSummary, error) {
	rows, err := parseTrades(r)
	if err != nil {
		return nil, err
	}

	var summary *models.ImportSummary
	l, err := s.update(ctx, portfolio, func(current *models.Ledger) (*models.Ledger, error) {
		next, sum, err := applyTrades(current, rows)
		summary = sum
		return next, err
	})
	if err != nil {
		s.logger.Warn().Str("portfolio", portfolio).Err(err).Msg("Trade import rejected")
		return nil, err
	}

	s.logger.Info().Str("portfolio", l.Portfolio).Int("rows", summary.Rows).
		Int("buys", summary.Buys).Int("sells", summary.Sells).
		Msg("Trades imported")
	return summary, nil
}
