// Package timeline rebuilds a portfolio's day-by-day market value from its
// lot ledger and daily close prices
package timeline

import (
	"sort"

	"github.com/bobmcallan/lotfolio/internal/models"
)

// Options bounds a reconstruction. Zero dates leave that side open.
type Options struct {
	From    models.Date
	To      models.Date
	Palette []string
}

// Reconstruct values the ledger on every date for which any series has a
// close, starting at the earliest purchase. A held symbol without a close on
// a date is left out of that day and reported in Gaps. Symbols missing from
// series are left out of every day without being reported as gaps.
//
// Reconstruct does not modify its inputs and returns the same timeline for
// the same inputs. Series must be normalized.
func Reconstruct(ledger *models.Ledger, series map[string]*models.PriceSeries, opts Options) *models.Timeline {
	palette := opts.Palette
	if palette == nil {
		palette = DefaultPalette
	}

	tl := &models.Timeline{
		Portfolio: ledger.Portfolio,
		Days:      []models.ValuationDay{},
		Colors:    AssignColors(ledger.Symbols(), palette),
	}

	earliest, ok := ledger.EarliestPurchaseDate()
	if !ok {
		return tl
	}

	for _, date := range candidateDates(series, earliest, opts) {
		held := holdingsOn(ledger.Lots, date)
		if len(held) == 0 {
			tl.Days = append(tl.Days, models.ValuationDay{Date: date, Stocks: []models.StockValuation{}})
			continue
		}

		symbols := make([]string, 0, len(held))
		for s := range held {
			symbols = append(symbols, s)
		}
		sort.Strings(symbols)

		day := models.ValuationDay{Date: date, Stocks: make([]models.StockValuation, 0, len(symbols))}
		for _, symbol := range symbols {
			s, ok := series[symbol]
			if !ok || s == nil {
				continue
			}
			price, ok := s.CloseOn(date)
			if !ok {
				tl.Gaps = append(tl.Gaps, models.MissingPricePoint{Symbol: symbol, Date: date})
				continue
			}
			shares := held[symbol]
			day.Stocks = append(day.Stocks, models.StockValuation{
				Symbol: symbol,
				Price:  price,
				Shares: shares,
				Color:  tl.Colors[symbol],
			})
			day.TotalValue += price * shares
		}
		tl.Days = append(tl.Days, day)
	}

	return tl
}

// ActiveQuantity is the part of a lot held at the end of date d. A sale
// only reduces the lot from its sell date onward.
func ActiveQuantity(lot models.Lot, d models.Date) float64 {
	if lot.PurchaseDate.After(d) {
		return 0
	}
	if lot.SellDate != nil && lot.SellDate.BeforeOrOn(d) {
		return lot.Quantity - lot.SoldQuantity
	}
	return lot.Quantity
}

// holdingsOn sums active quantity per symbol and drops positions at or below Epsilon.
func holdingsOn(lots []models.Lot, d models.Date) map[string]float64 {
	held := make(map[string]float64)
	for _, lot := range lots {
		if q := ActiveQuantity(lot, d); q != 0 {
			held[lot.Symbol] += q
		}
	}
	for s, q := range held {
		if q <= models.Epsilon {
			delete(held, s)
		}
	}
	return held
}

// candidateDates is the sorted union of series dates on or after earliest,
// clipped to opts.From and opts.To.
func candidateDates(series map[string]*models.PriceSeries, earliest models.Date, opts Options) []models.Date {
	seen := make(map[models.Date]bool)
	var dates []models.Date
	for _, s := range series {
		if s == nil {
			continue
		}
		for _, p := range s.Points {
			d := p.Date
			if seen[d] || d.Before(earliest) {
				continue
			}
			if !opts.From.IsZero() && d.Before(opts.From) {
				continue
			}
			if !opts.To.IsZero() && d.After(opts.To) {
				continue
			}
			seen[d] = true
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}
