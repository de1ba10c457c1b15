package models

import (
	"sort"
	"time"
)

// Epsilon is the tolerance for every zero or equality check on quantities.
const Epsilon = 1e-9

// Lot is a single purchase event with its own cost basis.
//
// A lot carries at most one sale. When an already partly sold lot is sold
// again, the sold portion is carved into a closed sub-lot that points back
// at its parent through ParentID.
type Lot struct {
	ID            string   `json:"id"`
	ParentID      string   `json:"parent_id,omitempty"`
	Symbol        string   `json:"symbol"`
	Quantity      float64  `json:"quantity"`
	PurchaseDate  Date     `json:"purchase_date"`
	PurchasePrice float64  `json:"purchase_price"`
	SoldQuantity  float64  `json:"sold_quantity"`
	SellDate      *Date    `json:"sell_date,omitempty"`
	SellPrice     *float64 `json:"sell_price,omitempty"`
}

// OpenQuantity is the unsold remainder of the lot.
func (l Lot) OpenQuantity() float64 {
	return l.Quantity - l.SoldQuantity
}

// IsOpen reports whether more than Epsilon remains unsold.
func (l Lot) IsOpen() bool {
	return l.OpenQuantity() > Epsilon
}

// Clone returns a copy that shares no pointers with l.
func (l Lot) Clone() Lot {
	c := l
	if l.SellDate != nil {
		d := *l.SellDate
		c.SellDate = &d
	}
	if l.SellPrice != nil {
		p := *l.SellPrice
		c.SellPrice = &p
	}
	return c
}

// SortLots orders lots by purchase date ascending, keeping insertion order on ties.
func SortLots(lots []Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		return lots[i].PurchaseDate.Before(lots[j].PurchaseDate)
	})
}

// Ledger is the ordered set of lots owned by one portfolio.
type Ledger struct {
	Portfolio              string    `json:"portfolio"`
	Lots                   []Lot     `json:"lots"`
	CashWithdrawnFromSales float64   `json:"cash_withdrawn_from_sales"`
	Version                int       `json:"version"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// NewLedger returns an empty ledger for the named portfolio.
func NewLedger(portfolio string) *Ledger {
	return &Ledger{Portfolio: portfolio, Lots: []Lot{}}
}

// Clone returns a deep copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	c := *l
	c.Lots = make([]Lot, len(l.Lots))
	for i, lot := range l.Lots {
		c.Lots[i] = lot.Clone()
	}
	return &c
}

// Symbols returns the distinct symbols in the ledger, sorted.
func (l *Ledger) Symbols() []string {
	seen := make(map[string]bool)
	var out []string
	for _, lot := range l.Lots {
		if !seen[lot.Symbol] {
			seen[lot.Symbol] = true
			out = append(out, lot.Symbol)
		}
	}
	sort.Strings(out)
	return out
}

// EarliestPurchaseDate returns the minimum purchase date, or false for an empty ledger.
func (l *Ledger) EarliestPurchaseDate() (Date, bool) {
	if len(l.Lots) == 0 {
		return Date{}, false
	}
	earliest := l.Lots[0].PurchaseDate
	for _, lot := range l.Lots[1:] {
		if lot.PurchaseDate.Before(earliest) {
			earliest = lot.PurchaseDate
		}
	}
	return earliest, true
}

// LotsFor returns the ledger's lots for one symbol in ledger order.
func (l *Ledger) LotsFor(symbol string) []Lot {
	var out []Lot
	for _, lot := range l.Lots {
		if lot.Symbol == symbol {
			out = append(out, lot)
		}
	}
	return out
}

// TotalQuantity sums the purchased quantity of every lot for a symbol.
func (l *Ledger) TotalQuantity(symbol string) float64 {
	var total float64
	for _, lot := range l.Lots {
		if lot.Symbol == symbol {
			total += lot.Quantity
		}
	}
	return total
}

// OpenQuantity sums the unsold quantity of every open lot for a symbol.
func (l *Ledger) OpenQuantity(symbol string) float64 {
	var total float64
	for _, lot := range l.Lots {
		if lot.Symbol == symbol && lot.IsOpen() {
			total += lot.OpenQuantity()
		}
	}
	return total
}

// Holding is the open position in one symbol, aggregated over its lots.
type Holding struct {
	Symbol        string  `json:"symbol"`
	Quantity      float64 `json:"quantity"`
	CostBasis     float64 `json:"cost_basis"`
	AverageCost   float64 `json:"average_cost"`
	OpenLots      int     `json:"open_lots"`
	FirstPurchase Date    `json:"first_purchase"`
}
