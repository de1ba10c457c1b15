package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/lotfolio/internal/models"
)

// Sell consumes open lots of the order's symbol oldest first and returns the
// updated ledger copy. The input ledger is never modified, and a failed sale
// leaves nothing changed.
//
// Only lots purchased on or before the sell date are eligible. A lot's first
// sale is recorded on the lot itself. A lot that already carries a sale is
// split first: the previously sold portion becomes a closed sub-lot and the
// open remainder keeps the original ID and takes the new sale.
func Sell(l *models.Ledger, order models.SellOrder) (*models.SellResult, error) {
	sell, err := validateSell(order)
	if err != nil {
		return nil, err
	}

	next := l.Clone()

	var eligible []int
	var available float64
	for i := range next.Lots {
		lot := &next.Lots[i]
		if lot.Symbol != sell.symbol || !lot.IsOpen() || lot.PurchaseDate.After(sell.date) {
			continue
		}
		eligible = append(eligible, i)
		available += lot.OpenQuantity()
	}
	sort.SliceStable(eligible, func(a, b int) bool {
		return next.Lots[eligible[a]].PurchaseDate.Before(next.Lots[eligible[b]].PurchaseDate)
	})

	if available < sell.quantity-models.Epsilon {
		return nil, &models.InsufficientSharesError{
			Symbol:    sell.symbol,
			Available: available,
			Requested: sell.quantity,
		}
	}

	price := decimal.NewFromFloat(sell.price)
	proceeds := decimal.Zero
	remaining := sell.quantity
	var fills []models.Fill
	var carved []models.Lot

	for _, idx := range eligible {
		if remaining <= models.Epsilon {
			break
		}
		lot := &next.Lots[idx]

		if lot.SoldQuantity > models.Epsilon {
			carved = append(carved, splitSold(lot))
		}

		consumed := min(remaining, lot.OpenQuantity())
		lot.SoldQuantity += consumed
		if lot.OpenQuantity() <= models.Epsilon {
			lot.SoldQuantity = lot.Quantity
		}
		sellDate := sell.date
		sellPrice := sell.price
		lot.SellDate = &sellDate
		lot.SellPrice = &sellPrice
		remaining -= consumed

		qty := decimal.NewFromFloat(consumed)
		cost := qty.Mul(decimal.NewFromFloat(lot.PurchasePrice))
		gross := qty.Mul(price)
		proceeds = proceeds.Add(gross)

		fills = append(fills, models.Fill{
			LotID:         lot.ID,
			PurchaseDate:  lot.PurchaseDate,
			Quantity:      consumed,
			PurchasePrice: lot.PurchasePrice,
			SellPrice:     sell.price,
			CostBasis:     cost.InexactFloat64(),
			Proceeds:      gross.InexactFloat64(),
			RealizedGain:  gross.Sub(cost).InexactFloat64(),
		})
	}

	if len(carved) > 0 {
		next.Lots = append(next.Lots, carved...)
		models.SortLots(next.Lots)
	}

	next.CashWithdrawnFromSales = decimal.NewFromFloat(next.CashWithdrawnFromSales).
		Add(proceeds).InexactFloat64()

	return &models.SellResult{
		Ledger:       next,
		SoldQuantity: sell.quantity,
		Proceeds:     proceeds.InexactFloat64(),
		Fills:        fills,
	}, nil
}

// splitSold moves the recorded sale on lot into a new closed lot and leaves
// lot as a fully open remainder.
func splitSold(lot *models.Lot) models.Lot {
	closed := models.Lot{
		ID:            newLotID(),
		ParentID:      lot.ID,
		Symbol:        lot.Symbol,
		Quantity:      lot.SoldQuantity,
		PurchaseDate:  lot.PurchaseDate,
		PurchasePrice: lot.PurchasePrice,
		SoldQuantity:  lot.SoldQuantity,
		SellDate:      lot.SellDate,
		SellPrice:     lot.SellPrice,
	}
	lot.Quantity -= lot.SoldQuantity
	lot.SoldQuantity = 0
	lot.SellDate = nil
	lot.SellPrice = nil
	return closed
}
