package models

import (
	"math"
	"sort"
	"time"
)

// PricePoint is one daily close for a symbol.
type PricePoint struct {
	Symbol string  `json:"symbol"`
	Date   Date    `json:"date"`
	Close  float64 `json:"close"`
}

// PriceSeries is a symbol's daily close history.
type PriceSeries struct {
	Symbol    string       `json:"symbol"`
	Source    string       `json:"source,omitempty"` // "fmp" or "eodhd"
	From      Date         `json:"from"`             // earliest date requested from the provider
	FetchedAt time.Time    `json:"fetched_at"`
	Points    []PricePoint `json:"points"`
}

// Normalize sorts points ascending by date and drops unusable closes.
// A duplicate date keeps the last point seen.
func (s *PriceSeries) Normalize() {
	valid := make([]PricePoint, 0, len(s.Points))
	for _, p := range s.Points {
		if p.Date.IsZero() || p.Close <= 0 || math.IsNaN(p.Close) || math.IsInf(p.Close, 0) {
			continue
		}
		p.Symbol = s.Symbol
		valid = append(valid, p)
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Date.Before(valid[j].Date)
	})

	out := valid[:0]
	for _, p := range valid {
		if n := len(out); n > 0 && out[n-1].Date == p.Date {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	s.Points = out
}

// CloseOn returns the close on exactly d. Points must be normalized.
func (s *PriceSeries) CloseOn(d Date) (float64, bool) {
	i := sort.Search(len(s.Points), func(i int) bool {
		return !s.Points[i].Date.Before(d)
	})
	if i < len(s.Points) && s.Points[i].Date == d {
		return s.Points[i].Close, true
	}
	return 0, false
}

// Covers reports whether the series was fetched from on or before d.
func (s *PriceSeries) Covers(d Date) bool {
	return !s.From.IsZero() && s.From.BeforeOrOn(d)
}

// FetchResult holds the series that were retrieved and the symbols that failed.
type FetchResult struct {
	Series map[string]*PriceSeries `json:"series"`
	Failed map[string]string       `json:"failed,omitempty"` // symbol -> error message
}

// FailedSymbols returns the failed symbols, sorted.
func (r *FetchResult) FailedSymbols() []string {
	out := make([]string, 0, len(r.Failed))
	for sym := range r.Failed {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
