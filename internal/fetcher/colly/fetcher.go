// Package collyfetcher implements crawler.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/vc-portfolio-digest/internal/crawler"
)

// Defaults applied by New.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxBodySize = 10 << 20
	DefaultUserAgent   = "Mozilla/5.0 (compatible; portfolio-digest/1.0)"
)

// Config controls collector behavior.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	MaxBodySize int
}

// Fetcher implements crawler.Fetcher using the Colly collector. Robots and
// revisit checks are left to the crawler, so the collector is configured to
// fetch whatever it is asked for.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(cfg.MaxBodySize),
		colly.UserAgent(cfg.UserAgent),
	)
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())
	c.SetRequestTimeout(cfg.Timeout)
	return &Fetcher{cfg: cfg, baseCollector: c}
}

// Fetch executes a single HTTP GET, following redirects. Non-2xx statuses
// are reported as errors.
func (f *Fetcher) Fetch(ctx context.Context, request crawler.FetchRequest) (crawler.FetchResponse, error) {
	var (
		result   crawler.FetchResponse
		fetchErr error
	)
	start := time.Now()
	collector := f.baseCollector.Clone()
	f.configureCollectorHooks(collector, start, &result, &fetchErr)

	if err := f.runCollector(ctx, collector, request.URL, &fetchErr); err != nil {
		return crawler.FetchResponse{Duration: time.Since(start)}, err
	}
	return result, nil
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	start time.Time,
	result *crawler.FetchResponse,
	fetchErr *error,
) {
	hooks.OnResponse(func(r *colly.Response) {
		var headers http.Header
		if r.Headers != nil {
			headers = r.Headers.Clone()
		}
		*result = crawler.FetchResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    headers,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
