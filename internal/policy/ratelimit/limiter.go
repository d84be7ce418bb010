// Package ratelimit paces page fetches with a token bucket per domain.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/vc-portfolio-digest/internal/metrics"
)

// Config holds rate limiter configuration. A non-positive RPS disables
// pacing.
type Config struct {
	RPS   float64
	Burst int
}

// Limiter manages per-domain rate limits. It satisfies crawler.RateLimiter.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	limit := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// Wait blocks until a token is available for the URL's host.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	domain := hostOf(rawURL)
	start := time.Now()
	if err := l.forDomain(domain).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(domain, waited)
	}
	return nil
}

func (l *Limiter) forDomain(domain string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.limiters[domain]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[domain] = limiter
	}
	return limiter
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}
