package models

// StockValuation is one symbol's contribution to a valuation day.
type StockValuation struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Shares float64 `json:"shares"`
	Color  string  `json:"color"`
}

// ValuationDay is the reconstructed portfolio on one calendar date.
type ValuationDay struct {
	Date       Date             `json:"date"`
	Stocks     []StockValuation `json:"stocks"`
	TotalValue float64          `json:"total_value"`
}

// Timeline is a date-ordered valuation series plus what was left out of it.
type Timeline struct {
	Portfolio     string              `json:"portfolio"`
	Days          []ValuationDay      `json:"days"`
	Colors        map[string]string   `json:"colors"`
	Gaps          []MissingPricePoint `json:"gaps,omitempty"`
	FailedSymbols []string            `json:"failed_symbols,omitempty"`
}
