package fetcher

import (
	"log/slog"
	"time"

	"resty.dev/v3"
)

const (
	// DefaultTimeout bounds every outbound request
	DefaultTimeout = 30 * time.Second

	defaultRetryWaitTime    = 1 * time.Second
	defaultRetryMaxWaitTime = 10 * time.Second
)

// NewHTTPClient creates a new HTTP client with a bounded timeout.
// When retries > 0, transport failures and retryable status codes are
// retried with exponential backoff before the caller sees the outcome.
func NewHTTPClient(baseURL string, timeout time.Duration, retries int, logger *slog.Logger) *resty.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)

	if retries > 0 {
		client.
			SetRetryCount(retries).
			SetRetryWaitTime(defaultRetryWaitTime).
			SetRetryMaxWaitTime(defaultRetryMaxWaitTime).
			AddRetryConditions(retryCondition).
			AddRetryHooks(retryHook(logger))
	}

	return client
}

// retryCondition determines whether a request should be retried based on the response and error
func retryCondition(r *resty.Response, err error) bool {
	// Retry on network errors
	if err != nil {
		return true
	}

	switch code := r.StatusCode(); {
	case code >= 500:
		return true
	case code == 429:
		return true
	case code == 408:
		return true
	default:
		return false
	}
}

// retryHook logs retry attempts for observability
func retryHook(logger *slog.Logger) resty.RetryHookFunc {
	return func(r *resty.Response, err error) {
		if err != nil {
			logger.Debug("retrying request due to error",
				"url", r.Request.URL,
				"attempt", r.Request.Attempt,
				"error", err.Error())
			return
		}

		logger.Debug("retrying request due to status code",
			"url", r.Request.URL,
			"attempt", r.Request.Attempt,
			"status_code", r.StatusCode())
	}
}
