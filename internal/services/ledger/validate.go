package ledger

import (
	"math"
	"regexp"
	"strings"

	"github.com/bobmcallan/lotfolio/internal/models"
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,15}$`)

// NormalizeSymbol trims and uppercases a ticker and checks its shape.
func NormalizeSymbol(raw string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if symbol == "" {
		return "", models.NewValidationError("symbol", "is required")
	}
	if !symbolPattern.MatchString(symbol) {
		return "", models.NewValidationError("symbol", "%q is not a valid ticker", raw)
	}
	return symbol, nil
}

// NormalizePortfolio trims a portfolio name and rejects empty or path-like names.
func NormalizePortfolio(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", models.NewValidationError("portfolio", "is required")
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") || len(name) > 64 {
		return "", models.NewValidationError("portfolio", "%q is not a valid portfolio name", raw)
	}
	return name, nil
}

func validateQuantity(q float64) error {
	if math.IsNaN(q) || math.IsInf(q, 0) || q <= models.Epsilon {
		return models.NewValidationError("quantity", "must be a positive number, got %g", q)
	}
	return nil
}

func validatePrice(field string, p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return models.NewValidationError(field, "must be a non-negative number, got %g", p)
	}
	return nil
}

func validateDate(field, raw string) (models.Date, error) {
	d, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, models.NewValidationError(field, "%v", err)
	}
	return d, nil
}

// order is a validated buy or sell.
type order struct {
	symbol   string
	quantity float64
	price    float64
	date     models.Date
}

func validateBuy(o models.BuyOrder) (order, error) {
	symbol, err := NormalizeSymbol(o.Symbol)
	if err != nil {
		return order{}, err
	}
	if err := validateQuantity(o.Quantity); err != nil {
		return order{}, err
	}
	if err := validatePrice("purchase_price", o.PurchasePrice); err != nil {
		return order{}, err
	}
	date, err := validateDate("purchase_date", o.PurchaseDate)
	if err != nil {
		return order{}, err
	}
	return order{symbol: symbol, quantity: o.Quantity, price: o.PurchasePrice, date: date}, nil
}

func validateSell(o models.SellOrder) (order, error) {
	symbol, err := NormalizeSymbol(o.Symbol)
	if err != nil {
		return order{}, err
	}
	if err := validateQuantity(o.Quantity); err != nil {
		return order{}, err
	}
	if err := validatePrice("sell_price", o.SellPrice); err != nil {
		return order{}, err
	}
	date, err := validateDate("sell_date", o.SellDate)
	if err != nil {
		return order{}, err
	}
	return order{symbol: symbol, quantity: o.Quantity, price: o.SellPrice, date: date}, nil
}
