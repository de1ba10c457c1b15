package models

// BuyOrder is the raw input for recording a purchase lot.
type BuyOrder struct {
	Symbol        string  `json:"symbol"`
	Quantity      float64 `json:"quantity"`
	PurchasePrice float64 `json:"purchase_price"`
	PurchaseDate  string  `json:"purchase_date"`
}

// SellOrder is the raw input for a FIFO sale.
type SellOrder struct {
	Symbol    string  `json:"symbol"`
	Quantity  float64 `json:"quantity"`
	SellPrice float64 `json:"sell_price"`
	SellDate  string  `json:"sell_date"`
}

// Fill is the portion of one lot consumed by a sale.
type Fill struct {
	LotID         string  `json:"lot_id"`
	PurchaseDate  Date    `json:"purchase_date"`
	Quantity      float64 `json:"quantity"`
	PurchasePrice float64 `json:"purchase_price"`
	SellPrice     float64 `json:"sell_price"`
	CostBasis     float64 `json:"cost_basis"`
	Proceeds      float64 `json:"proceeds"`
	RealizedGain  float64 `json:"realized_gain"`
}

// SellResult is the outcome of a successful FIFO sale.
type SellResult struct {
	Ledger       *Ledger `json:"ledger"`
	SoldQuantity float64 `json:"sold_quantity"`
	Proceeds     float64 `json:"proceeds"`
	Fills        []Fill  `json:"fills"`
}

// ImportSummary reports a CSV trade import that was applied in full.
type ImportSummary struct {
	Portfolio string  `json:"portfolio"`
	Rows      int     `json:"rows"`
	Buys      int     `json:"buys"`
	Sells     int     `json:"sells"`
	Proceeds  float64 `json:"proceeds"`
}
