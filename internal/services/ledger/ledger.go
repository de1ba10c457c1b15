// Package ledger records purchase lots and matches sales against them FIFO
package ledger

import (
	"github.com/google/uuid"

	"github.com/bobmcallan/lotfolio/internal/models"
)

// newLotID generates lot identities. Tests may replace it.
var newLotID = uuid.NewString

// AddLot returns a copy of l with one new fully open lot appended. Lots for
// the same symbol are never merged. The input ledger is not modified.
func AddLot(l *models.Ledger, order models.BuyOrder) (*models.Ledger, models.Lot, error) {
	buy, err := validateBuy(order)
	if err != nil {
		return nil, models.Lot{}, err
	}

	lot := models.Lot{
		ID:            newLotID(),
		Symbol:        buy.symbol,
		Quantity:      buy.quantity,
		PurchaseDate:  buy.date,
		PurchasePrice: buy.price,
	}

	next := l.Clone()
	next.Lots = append(next.Lots, lot)
	models.SortLots(next.Lots)
	return next, lot, nil
}
