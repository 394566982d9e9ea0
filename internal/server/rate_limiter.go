// Package server builds the per-connection token bucket that throttles
// inbound frames before they reach the hub.
package server

import (
	"time"

	"golang.org/x/time/rate"
)

// newRateLimiter returns a limiter allowing cfg.Burst frames per
// cfg.RefillInterval, or nil when rate limiting is disabled.
func newRateLimiter(cfg RateLimitConfig) *rate.Limiter {
	if !cfg.Enabled() {
		return nil
	}

	interval := cfg.RefillInterval
	if interval <= 0 {
		interval = time.Second
	}

	perSecond := float64(cfg.Burst) / interval.Seconds()
	return rate.NewLimiter(rate.Limit(perSecond), cfg.Burst)
}
