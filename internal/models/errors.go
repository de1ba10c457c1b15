package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching.
var (
	ErrValidation         = errors.New("validation failed")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrPriceFetch         = errors.New("price fetch failed")
	ErrLedgerNotFound     = errors.New("ledger not found")
	ErrSeriesNotFound     = errors.New("price series not found")
)

// ValidationError reports a malformed or out-of-range input field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InsufficientSharesError is returned when a sell asks for more than the
// eligible open quantity. No lot is touched when it is returned.
type InsufficientSharesError struct {
	Symbol    string  `json:"symbol"`
	Available float64 `json:"available"`
	Requested float64 `json:"requested"`
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("insufficient shares of %s: available %g, requested %g", e.Symbol, e.Available, e.Requested)
}

func (e *InsufficientSharesError) Is(target error) bool {
	return target == ErrInsufficientShares
}

// PriceFetchError wraps a failure to retrieve one symbol's price history.
type PriceFetchError struct {
	Symbol string
	Err    error
}

func (e *PriceFetchError) Error() string {
	return fmt.Sprintf("fetch prices for %s: %v", e.Symbol, e.Err)
}

func (e *PriceFetchError) Unwrap() error {
	return e.Err
}

func (e *PriceFetchError) Is(target error) bool {
	return target == ErrPriceFetch
}

// MissingPricePoint records a date on which a held symbol had no close price.
// It is reported alongside a timeline, never returned as an error.
type MissingPricePoint struct {
	Symbol string `json:"symbol"`
	Date   Date   `json:"date"`
}
