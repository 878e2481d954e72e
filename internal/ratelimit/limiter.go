package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outbound requests to a single API.
type Limiter struct {
	limiter *rate.Limiter
}

// New returns a limiter allowing perMinute requests per minute with a burst
// of one. perMinute <= 0 disables limiting.
//
// AlphaVantage's free tier allows 5 requests per minute, i.e. one every 12s.
func New(perMinute int) *Limiter {
	if perMinute <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)}
}

// Wait blocks until the limiter permits a request.
// It returns an error if the context is canceled before the request can proceed.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may happen now
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	return l.limiter.Allow()
}
