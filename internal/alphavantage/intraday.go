package alphavantage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"resty.dev/v3"

	"stockpipeline/internal/fetcher"
	"stockpipeline/internal/ratelimit"
)

const (
	// DefaultBaseURL is the production query endpoint
	DefaultBaseURL = "https://www.alphavantage.co/query"
	// PlaceholderAPIKey is the sample value shipped in env templates; it is
	// treated the same as no key at all.
	PlaceholderAPIKey = "your_api_key_here"
)

// intradayResponse is the raw TIME_SERIES_INTRADAY body. Exactly one of the
// error fields or the payload is normally populated.
type intradayResponse struct {
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`

	fetcher.Payload
}

// Options configures a Client
type Options struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Retries int

	Limiter   *ratelimit.Limiter
	Generator *Generator
	Logger    *slog.Logger
}

// Client fetches 60-minute intraday series from AlphaVantage and falls back
// to synthetic data whenever live data is unavailable or untrustworthy.
type Client struct {
	apiKey  string
	client  *resty.Client
	limiter *ratelimit.Limiter
	synth   *Generator
	logger  *slog.Logger
}

// NewClient creates a new intraday client
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Generator == nil {
		opts.Generator = NewGenerator(nil, DefaultBasePrice)
	}

	return &Client{
		apiKey:  strings.TrimSpace(opts.APIKey),
		client:  fetcher.NewHTTPClient(opts.BaseURL, opts.Timeout, opts.Retries, opts.Logger),
		limiter: opts.Limiter,
		synth:   opts.Generator,
		logger:  opts.Logger,
	}
}

// HasCredential reports whether live requests will be attempted
func (c *Client) HasCredential() bool {
	return c.apiKey != "" && c.apiKey != PlaceholderAPIKey
}

// FetchQuotes returns the intraday payload for symbol. It never returns an
// error: every provider failure is logged and replaced by synthetic data.
func (c *Client) FetchQuotes(ctx context.Context, symbol string) (*fetcher.Payload, error) {
	if !c.HasCredential() {
		c.logger.Warn("falling back to synthetic data",
			"symbol", symbol,
			"reason", "no valid API key configured")
		return c.synth.Generate(symbol), nil
	}

	c.logger.Info("fetching intraday quotes", "symbol", symbol)

	payload, err := c.fetchLive(ctx, symbol)
	if err != nil {
		c.logger.Warn("falling back to synthetic data",
			"symbol", symbol,
			"reason", err.Error())
		return c.synth.Generate(symbol), nil
	}

	c.logger.Info("fetched intraday quotes", "symbol", symbol, "points", len(payload.TimeSeries))
	return payload, nil
}

func (c *Client) fetchLive(ctx context.Context, symbol string) (*fetcher.Payload, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fetcher.NewNetworkError(fmt.Errorf("rate limiter wait: %w", err))
	}

	var result intradayResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function":   "TIME_SERIES_INTRADAY",
			"symbol":     symbol,
			"interval":   "60min",
			"apikey":     c.apiKey,
			"outputsize": "compact",
		}).
		SetResult(&result).
		Get("")

	if err != nil {
		if resp != nil && resp.IsSuccess() {
			return nil, fetcher.NewValidationError(fmt.Sprintf("malformed response body: %v", err))
		}
		return nil, fetcher.ClassifyTransportError(err)
	}

	if !resp.IsSuccess() {
		return nil, fetcher.ClassifyHTTPError(resp.StatusCode())
	}

	switch {
	case result.ErrorMessage != "":
		return nil, fetcher.NewProviderError(result.ErrorMessage)
	case result.Note != "":
		return nil, fetcher.NewRateLimitError(0, result.Note)
	case result.Information != "":
		return nil, fetcher.NewRateLimitError(0, result.Information)
	case result.TimeSeries == nil:
		return nil, fetcher.NewValidationError(fmt.Sprintf("unexpected response structure: %q not found", fetcher.TimeSeriesKey))
	}

	payload := result.Payload
	return &payload, nil
}
