package common

import (
	"context"
	"strings"
)

type contextKey int

const portfolioContextKey contextKey = iota

// WithPortfolio stores a per-request portfolio override, set from the
// X-Lotfolio-Portfolio header.
func WithPortfolio(ctx context.Context, portfolio string) context.Context {
	return context.WithValue(ctx, portfolioContextKey, portfolio)
}

// PortfolioFromContext returns the request's portfolio override, or "".
func PortfolioFromContext(ctx context.Context) string {
	p, _ := ctx.Value(portfolioContextKey).(string)
	return p
}

// ResolvePortfolio returns the request override, otherwise fallback.
func ResolvePortfolio(ctx context.Context, fallback string) string {
	if p := strings.TrimSpace(PortfolioFromContext(ctx)); p != "" {
		return p
	}
	return fallback
}
