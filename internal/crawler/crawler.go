package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/vc-portfolio-digest/internal/metrics"
)

// Defaults applied by New when a Config field is left at zero.
const (
	DefaultMaxPages     = 5
	DefaultTimeout      = 60 * time.Second
	DefaultMaxPageChars = 5000
)

// Config bounds a single crawl.
type Config struct {
	MaxPages      int
	Timeout       time.Duration
	MaxPageChars  int
	UserAgent     string
	RespectRobots bool
}

// Validate checks for obviously bad configuration.
func (c Config) Validate() error {
	if c.MaxPages < 0 {
		return errors.New("max pages must be >= 0")
	}
	if c.Timeout < 0 {
		return errors.New("timeout must be >= 0")
	}
	if c.MaxPageChars < 0 {
		return errors.New("max page chars must be >= 0")
	}
	return nil
}

// Crawler performs bounded breadth-first crawls of a single domain.
type Crawler struct {
	cfg       Config
	fetcher   Fetcher
	extractor Extractor
	limiter   RateLimiter
	clock     Clock
	shells    ShellDetector
	logger    *zap.Logger
}

// Option customises a Crawler.
type Option func(*Crawler)

// WithShellDetector makes the crawler count empty client-side shells.
func WithShellDetector(d ShellDetector) Option {
	return func(c *Crawler) {
		c.shells = d
	}
}

// New wires a Crawler. limiter may be nil.
func New(cfg Config, fetcher Fetcher, extractor Extractor, limiter RateLimiter, clock Clock, logger *zap.Logger, opts ...Option) (*Crawler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid crawler config: %w", err)
	}
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if clock == nil {
		return nil, errors.New("clock is required")
	}
	if cfg.MaxPages == 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxPageChars == 0 {
		cfg.MaxPageChars = DefaultMaxPageChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Crawler{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: extractor,
		limiter:   limiter,
		clock:     clock,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Crawl walks the seed's domain breadth-first until the frontier is empty,
// MaxPages pages with content were recorded, or Timeout elapsed. Per-page
// failures are logged and skipped; a malformed or unreachable seed yields an
// empty result. The only error returned is context cancellation, in which
// case the partial outcome is returned alongside it.
func (c *Crawler) Crawl(ctx context.Context, seed string) (Outcome, error) {
	start := c.clock.Now()
	out := Outcome{Pages: NewScrapeResult(), Reason: StopFrontierExhausted}
	logger := c.logger.With(zap.String("seed", seed))

	scope, err := NewDomainScope(seed)
	if err != nil {
		logger.Warn("seed url rejected", zap.Error(err))
		return c.finish(ctx, logger, out, start)
	}
	robots := NewRobotsEnforcer(c.cfg.RespectRobots, c.fetcher, c.cfg.UserAgent, logger)
	front := newFrontier()
	front.Push(scope.Seed().String())

	for {
		if ctx.Err() != nil {
			out.Reason = StopCanceled
			break
		}
		if out.Pages.Len() >= c.cfg.MaxPages {
			out.Reason = StopPageBudget
			break
		}
		if c.clock.Now().Sub(start) >= c.cfg.Timeout {
			out.Reason = StopTimeout
			break
		}
		target, ok := front.Pop()
		if !ok {
			out.Reason = StopFrontierExhausted
			break
		}
		if front.Visited(target) {
			continue
		}
		if !robots.Allowed(ctx, target) {
			logger.Debug("robots disallowed", zap.String("url", target))
			continue
		}
		out.Attempts++
		page, ok := c.visit(ctx, logger, scope, target)
		if !ok {
			continue
		}
		if page.finalURL != target {
			front.Claim(page.finalURL)
		}
		if page.text != "" {
			out.Pages.Add(target, Truncate(page.text, c.cfg.MaxPageChars))
			front.MarkVisited(target)
		} else if page.shell {
			out.Shells++
		}
		if c.clock.Now().Sub(start) < c.cfg.Timeout {
			for _, link := range page.links {
				if scope.SameDomain(link) {
					front.Push(link)
				}
			}
		}
	}
	return c.finish(ctx, logger, out, start)
}

func (c *Crawler) finish(ctx context.Context, logger *zap.Logger, out Outcome, start time.Time) (Outcome, error) {
	out.Elapsed = c.clock.Now().Sub(start)
	metrics.ObserveCrawl(string(out.Reason), out.Pages.Len())
	logger.Info("crawl finished",
		zap.String("reason", string(out.Reason)),
		zap.Int("pages", out.Pages.Len()),
		zap.Int("attempts", out.Attempts),
		zap.Int("shells", out.Shells),
		zap.Duration("elapsed", out.Elapsed),
	)
	if out.Reason == StopCanceled {
		return out, fmt.Errorf("crawl canceled: %w", ctx.Err())
	}
	return out, nil
}

type pageVisit struct {
	finalURL string
	text     string
	shell    bool
	links    []string
}

func (c *Crawler) visit(ctx context.Context, logger *zap.Logger, scope DomainScope, target string) (pageVisit, bool) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, target); err != nil {
			logger.Debug("rate limit wait aborted", zap.String("url", target), zap.Error(err))
			return pageVisit{}, false
		}
	}
	resp, err := c.fetcher.Fetch(ctx, FetchRequest{URL: target})
	if err != nil {
		metrics.ObserveFetch("error", resp.Duration)
		logger.Warn("page fetch failed; skipping", zap.String("url", target), zap.Error(err))
		return pageVisit{}, false
	}
	if !scope.SameDomain(resp.URL) {
		metrics.ObserveFetch("off_domain", resp.Duration)
		logger.Info("redirected off-domain; skipping",
			zap.String("url", target),
			zap.String("final_url", resp.URL),
		)
		return pageVisit{}, false
	}
	if !isHTML(resp.Headers) {
		metrics.ObserveFetch("not_html", resp.Duration)
		logger.Debug("skipping non-html response",
			zap.String("url", target),
			zap.String("content_type", resp.Headers.Get("Content-Type")),
		)
		return pageVisit{finalURL: resp.URL}, true
	}
	metrics.ObserveFetch("ok", resp.Duration)

	page := pageVisit{finalURL: resp.URL}
	text, err := c.extractor.Extract(resp.Body)
	if err != nil {
		logger.Warn("text extraction failed", zap.String("url", target), zap.Error(err))
	}
	page.text = text
	if text == "" && c.shells != nil {
		page.shell = c.shells.LooksLikeShell(resp)
	}

	base, err := url.Parse(resp.URL)
	if err != nil {
		return page, true
	}
	links, err := ExtractLinks(base, resp.Body)
	if err != nil {
		logger.Warn("link extraction failed", zap.String("url", target), zap.Error(err))
	}
	page.links = links
	logger.Debug("page crawled",
		zap.String("url", target),
		zap.Int("chars", len(text)),
		zap.Int("links", len(links)),
	)
	return page, true
}
