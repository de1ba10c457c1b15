package timeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/lotfolio/internal/models"
)

func date(s string) models.Date { return models.MustParseDate(s) }

func ptr[T any](v T) *T { return &v }

func series(symbol string, closes map[string]float64) *models.PriceSeries {
	s := &models.PriceSeries{Symbol: symbol}
	for d, c := range closes {
		s.Points = append(s.Points, models.PricePoint{Date: date(d), Close: c})
	}
	s.Normalize()
	return s
}

func lot(id, symbol string, qty float64, bought string) models.Lot {
	return models.Lot{ID: id, Symbol: symbol, Quantity: qty, PurchaseDate: date(bought), PurchasePrice: 100}
}

func TestActiveQuantity(t *testing.T) {
	l := lot("1", "AAPL", 10, "2024-01-01")
	l.SoldQuantity = 4
	l.SellDate = ptr(date("2024-01-10"))
	l.SellPrice = ptr(120.0)

	tests := []struct {
		on   string
		want float64
	}{
		{"2023-12-31", 0},
		{"2024-01-01", 10},
		{"2024-01-05", 10},
		{"2024-01-09", 10},
		{"2024-01-10", 6},
		{"2024-01-15", 6},
	}
	for _, tt := range tests {
		t.Run(tt.on, func(t *testing.T) {
			assert.Equal(t, tt.want, ActiveQuantity(l, date(tt.on)))
		})
	}
}

func TestReconstruct_SaleReducesHoldingsFromSellDate(t *testing.T) {
	l := lot("1", "AAPL", 10, "2024-01-01")
	l.SoldQuantity = 4
	l.SellDate = ptr(date("2024-01-10"))
	l.SellPrice = ptr(120.0)
	ledger := &models.Ledger{Portfolio: "main", Lots: []models.Lot{l}}

	prices := map[string]*models.PriceSeries{
		"AAPL": series("AAPL", map[string]float64{"2024-01-05": 110, "2024-01-15": 125}),
	}

	tl := Reconstruct(ledger, prices, Options{})
	require.Len(t, tl.Days, 2)

	assert.Equal(t, date("2024-01-05"), tl.Days[0].Date)
	require.Len(t, tl.Days[0].Stocks, 1)
	assert.Equal(t, 10.0, tl.Days[0].Stocks[0].Shares)
	assert.InDelta(t, 1100.0, tl.Days[0].TotalValue, 1e-9)

	assert.Equal(t, 6.0, tl.Days[1].Stocks[0].Shares)
	assert.InDelta(t, 750.0, tl.Days[1].TotalValue, 1e-9)
	assert.Equal(t, DefaultPalette[0], tl.Days[1].Stocks[0].Color)
	assert.Empty(t, tl.Gaps)
}

func TestReconstruct_SplitLotHistory(t *testing.T) {
	open := lot("1", "AAPL", 6, "2024-01-01")
	open.SoldQuantity = 3
	open.SellDate = ptr(date("2024-02-10"))
	open.SellPrice = ptr(130.0)
	closed := lot("2", "AAPL", 4, "2024-01-01")
	closed.ParentID = "1"
	closed.SoldQuantity = 4
	closed.SellDate = ptr(date("2024-01-10"))
	closed.SellPrice = ptr(120.0)
	ledger := &models.Ledger{Portfolio: "main", Lots: []models.Lot{open, closed}}

	prices := map[string]*models.PriceSeries{
		"AAPL": series("AAPL", map[string]float64{"2024-01-05": 1, "2024-01-20": 1, "2024-02-15": 1}),
	}

	tl := Reconstruct(ledger, prices, Options{})
	require.Len(t, tl.Days, 3)
	assert.Equal(t, 10.0, tl.Days[0].Stocks[0].Shares)
	assert.Equal(t, 6.0, tl.Days[1].Stocks[0].Shares)
	assert.Equal(t, 3.0, tl.Days[2].Stocks[0].Shares)
}

func TestReconstruct_FailedSymbolAbsentEverywhere(t *testing.T) {
	ledger := &models.Ledger{Portfolio: "main", Lots: []models.Lot{
		lot("1", "AAPL", 1, "2024-01-01"),
		lot("2", "MSFT", 2, "2024-01-01"),
		lot("3", "TSLA", 3, "2024-01-01"),
	}}
	prices := map[string]*models.PriceSeries{
		"AAPL": series("AAPL", map[string]float64{"2024-01-02": 100, "2024-01-03": 101}),
		"MSFT": series("MSFT", map[string]float64{"2024-01-02": 300, "2024-01-03": 301}),
	}

	tl := Reconstruct(ledger, prices, Options{})
	require.Len(t, tl.Days, 2)
	for _, day := range tl.Days {
		require.Len(t, day.Stocks, 2)
		assert.Equal(t, "AAPL", day.Stocks[0].Symbol)
		assert.Equal(t, "MSFT", day.Stocks[1].Symbol)
	}
	assert.InDelta(t, 700.0, tl.Days[0].TotalValue, 1e-9)
	assert.Empty(t, tl.Gaps)
	assert.Contains(t, tl.Colors, "TSLA")
}

func TestReconstruct_MissingPriceIsGap(t *testing.T) {
	ledger := &models.Ledger{Portfolio: "main", Lots: []models.Lot{
		lot("1", "AAPL", 1, "2024-01-01"),
		lot("2", "MSFT", 1, "2024-01-01"),
	}}
	prices := map[string]*models.PriceSeries{
		"AAPL": series("AAPL", map[string]float64{"2024-01-02": 100, "2024-01-03": 101}),
		"MSFT": series("MSFT", map[string]float64{"2024-01-02": 300}),
	}

	tl := Reconstruct(ledger, prices, Options{})
	require.Len(t, tl.Days, 2)
	require.Len(t, tl.Days[1].Stocks, 1)
	assert.Equal(t, "AAPL", tl.Days[1].Stocks[0].Symbol)
	assert.InDelta(t, 101.0, tl.Days[1].TotalValue, 1e-9)
	assert.Equal(t, []models.MissingPricePoint{{Symbol: "MSFT", Date: date("2024-01-03")}}, tl.Gaps)
}

func TestReconstruct_DatesStartAtEarliestPurchase(t *testing.T) {
	ledger := &models.Ledger{Portfolio: "main", Lots: []models.Lot{
		lot("1", "AAPL", 1, "2024-01-03"),
		lot("2", "AAPL", 1, "2024-01-05"),
	}}
	prices := map[string]*models.PriceSeries{
		"AAPL": series("AAPL", map[string]float64{
			"2024-01-01": 1, "2024-01-02": 1, "2024-01-03": 1, "2024-01-04": 1, "2024-01-05": 1,
		}),
	}

	tl := Reconstruct(ledger, prices, Options{})
	require.Len(t, tl.Days, 3)
	assert.Equal(t, date("2024-01-03"), tl.Days[0].Date)
	assert.Equal(t, 1.0, tl.Days[0].Stocks[0].Shares)
	assert.Equal(t, 1.0, tl.Days[1].Stocks[0].Shares)
	assert.Equal(t, 2.0, tl.Days[2].Stocks[0].Shares)
}

func TestReconstruct_UnionOfSeriesDates(t *testing.T) {
	ledger := &models.Ledger{Portfolio: "main", Lots: []models.Lot{
		lot("1", "AAPL", 1, "2024-01-01"),
		lot("2", "BHP.AX", 1, "2024-01-01"),
	}}
	prices := map[string]*models.PriceSeries{
		"AAPL":   series("AAPL", map[string]float64{"2024-01-02": 1, "2024-01-04": 1}),
		"BHP.AX": series("BHP.AX", map[string]float64{"2024-01-03": 2, "2024-01-04": 2}),
	}

	tl := Reconstruct(ledger, prices, Options{})
	var dates []string
	for _, d := range tl.Days {
		dates = append(dates, d.Date.String())
	}
	assert.Equal(t, []string{"2024-01-02", "2024-01-03", "2024-01-04"}, dates)
	assert.Len(t, tl.Gaps, 2)
}

func TestReconstruct_FullySoldSymbolDropped(t *testing.T) {
	l := lot("1", "AAPL", 5, "2024-01-01")
	l.SoldQuantity = 5
	l.SellDate = ptr(date("2024-01-03"))
	l.SellPrice = ptr(1.0)
	ledger := &models.Ledger{Portfolio: "main", Lots: []models.Lot{l, lot("2", "MSFT", 1, "2024-01-01")}}
	prices := map[string]*models.PriceSeries{
		"AAPL": series("AAPL", map[string]float64{"2024-01-02": 1, "2024-01-04": 1}),
		"MSFT": series("MSFT", map[string]float64{"2024-01-02": 1, "2024-01-04": 1}),
	}

	tl := Reconstruct(ledger, prices, Options{})
	require.Len(t, tl.Days, 2)
	assert.Len(t, tl.Days[0].Stocks, 2)
	require.Len(t, tl.Days[1].Stocks, 1)
	assert.Equal(t, "MSFT", tl.Days[1].Stocks[0].Symbol)
	assert.Empty(t, tl.Gaps)
}

func TestReconstruct_FromToClipping(t *testing.T) {
	ledger := &models.Ledger{Portfolio: "main", Lots: []models.Lot{lot("1", "AAPL", 1, "2024-01-01")}}
	prices := map[string]*models.PriceSeries{
		"AAPL": series("AAPL", map[string]float64{
			"2024-01-02": 1, "2024-01-03": 2, "2024-01-04": 3, "2024-01-05": 4,
		}),
	}

	tl := Reconstruct(ledger, prices, Options{From: date("2024-01-03"), To: date("2024-01-04")})
	require.Len(t, tl.Days, 2)
	assert.Equal(t, date("2024-01-03"), tl.Days[0].Date)
	assert.Equal(t, date("2024-01-04"), tl.Days[1].Date)
}

func TestReconstruct_EmptyInputs(t *testing.T) {
	t.Run("no lots", func(t *testing.T) {
		prices := map[string]*models.PriceSeries{"AAPL": series("AAPL", map[string]float64{"2024-01-02": 1})}
		tl := Reconstruct(models.NewLedger("main"), prices, Options{})
		assert.NotNil(t, tl.Days)
		assert.Empty(t, tl.Days)
	})
	t.Run("no series", func(t *testing.T) {
		ledger := &models.Ledger{Portfolio: "main", Lots: []models.Lot{lot("1", "AAPL", 1, "2024-01-01")}}
		tl := Reconstruct(ledger, map[string]*models.PriceSeries{}, Options{})
		assert.Empty(t, tl.Days)
		assert.Empty(t, tl.Gaps)
	})
	t.Run("all series before first purchase", func(t *testing.T) {
		ledger := &models.Ledger{Portfolio: "main", Lots: []models.Lot{lot("1", "AAPL", 1, "2024-06-01")}}
		prices := map[string]*models.PriceSeries{"AAPL": series("AAPL", map[string]float64{"2024-01-02": 1})}
		tl := Reconstruct(ledger, prices, Options{})
		assert.Empty(t, tl.Days)
	})
}

func TestReconstruct_IsIdempotent(t *testing.T) {
	l := lot("1", "AAPL", 10, "2024-01-01")
	l.SoldQuantity = 4
	l.SellDate = ptr(date("2024-01-03"))
	l.SellPrice = ptr(1.0)
	ledger := &models.Ledger{Portfolio: "main", Lots: []models.Lot{l, lot("2", "MSFT", 2, "2024-01-02")}}
	prices := map[string]*models.PriceSeries{
		"AAPL": series("AAPL", map[string]float64{"2024-01-02": 10, "2024-01-03": 11, "2024-01-04": 12}),
		"MSFT": series("MSFT", map[string]float64{"2024-01-02": 20, "2024-01-04": 22}),
	}
	ledgerBefore := ledger.Clone()

	first := Reconstruct(ledger, prices, Options{})
	for i := 0; i < 5; i++ {
		again := Reconstruct(ledger, prices, Options{})
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("reconstruction differs on run %d (-first +again):\n%s", i, diff)
		}
	}
	if diff := cmp.Diff(ledgerBefore, ledger); diff != "" {
		t.Errorf("ledger modified (-before +after):\n%s", diff)
	}
}
