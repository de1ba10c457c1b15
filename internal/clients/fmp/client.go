// Package fmp provides a client for the Financial Modeling Prep API
package fmp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/lotfolio/internal/common"
	"github.com/bobmcallan/lotfolio/internal/interfaces"
	"github.com/bobmcallan/lotfolio/internal/models"
)

const (
	DefaultBaseURL   = "https://financialmodelingprep.com/api/v3"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Compile-time interface check
var _ interfaces.PriceClient = (*Client)(nil)

// Client implements PriceClient against FMP daily price history
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new FMP client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name identifies the provider
func (c *Client) Name() string { return "fmp" }

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("FMP API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request and decodes the JSON body
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", c.apiKey)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("FMP API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	// FMP reports some failures (bad key, plan limits) as 200 with an error body
	var apiErr struct {
		Message string `json:"Error Message"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    apiErr.Message,
			Endpoint:   path,
		}
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// historicalResponse is the body of historical-price-full
type historicalResponse struct {
	Symbol     string `json:"symbol"`
	Historical []struct {
		Date     string  `json:"date"`
		Open     float64 `json:"open"`
		High     float64 `json:"high"`
		Low      float64 `json:"low"`
		Close    float64 `json:"close"`
		AdjClose float64 `json:"adjClose"`
		Volume   float64 `json:"volume"`
	} `json:"historical"`
}

// GetDailyHistory returns unadjusted daily closes from the given date. FMP
// returns the newest bar first; callers normalize the order.
func (c *Client) GetDailyHistory(ctx context.Context, symbol string, from time.Time) (*models.PriceSeries, error) {
	params := url.Values{}
	if !from.IsZero() {
		params.Set("from", from.Format("2006-01-02"))
	}

	path := fmt.Sprintf("/historical-price-full/%s", url.PathEscape(symbol))

	var resp historicalResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Historical) == 0 {
		return nil, fmt.Errorf("no historical prices for %s", symbol)
	}

	series := &models.PriceSeries{
		Symbol: symbol,
		Source: c.Name(),
		Points: make([]models.PricePoint, 0, len(resp.Historical)),
	}
	for _, h := range resp.Historical {
		date, err := models.ParseDate(h.Date)
		if err != nil {
			c.logger.Debug().Str("symbol", symbol).Str("date", h.Date).Msg("Skipping bar with unparseable date")
			continue
		}
		series.Points = append(series.Points, models.PricePoint{
			Symbol: symbol,
			Date:   date,
			Close:  h.Close,
		})
	}

	c.logger.Debug().Str("symbol", symbol).Int("points", len(series.Points)).Msg("FMP history fetched")
	return series, nil
}
