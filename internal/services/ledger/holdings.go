package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/lotfolio/internal/models"
)

// Holdings aggregates the open lots of a ledger into one position per symbol,
// sorted by symbol. Fully sold symbols are omitted.
func Holdings(l *models.Ledger) []models.Holding {
	holdings := []models.Holding{}
	for _, symbol := range l.Symbols() {
		qty := decimal.Zero
		cost := decimal.Zero
		h := models.Holding{Symbol: symbol}

		for _, lot := range l.Lots {
			if lot.Symbol != symbol || !lot.IsOpen() {
				continue
			}
			open := decimal.NewFromFloat(lot.OpenQuantity())
			qty = qty.Add(open)
			cost = cost.Add(open.Mul(decimal.NewFromFloat(lot.PurchasePrice)))
			if h.OpenLots == 0 || lot.PurchaseDate.Before(h.FirstPurchase) {
				h.FirstPurchase = lot.PurchaseDate
			}
			h.OpenLots++
		}
		if h.OpenLots == 0 {
			continue
		}

		h.Quantity = qty.InexactFloat64()
		h.CostBasis = cost.InexactFloat64()
		if qty.IsPositive() {
			h.AverageCost = cost.Div(qty).InexactFloat64()
		}
		holdings = append(holdings, h)
	}
	return holdings
}
