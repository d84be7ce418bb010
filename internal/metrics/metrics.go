// Package metrics exposes Prometheus collectors for the digest pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlerFetchTotal             *prometheus.CounterVec
	crawlerFetchDurationSeconds   *prometheus.HistogramVec
	crawlerCrawlsTotal            *prometheus.CounterVec
	crawlerPagesPerCrawl          prometheus.Histogram
	crawlerRateLimitDelaysSeconds *prometheus.HistogramVec
	llmRequestsTotal              *prometheus.CounterVec
	llmRequestDurationSeconds     *prometheus.HistogramVec
	httpRequestsTotal             *prometheus.CounterVec
	httpRequestDurationSeconds    *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors with the default registry. It is safe to call
// multiple times; every Observe helper calls it.
func Init() {
	once.Do(func() {
		crawlerFetchTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_fetch_total",
				Help: "Page fetches partitioned by outcome.",
			},
			[]string{"outcome"},
		)

		crawlerFetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crawler_fetch_duration_seconds",
				Help:    "Page fetch latency partitioned by outcome.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"outcome"},
		)

		crawlerCrawlsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_crawls_total",
				Help: "Completed crawls partitioned by stop reason.",
			},
			[]string{"reason"},
		)

		crawlerPagesPerCrawl = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawler_pages_per_crawl",
				Help:    "Pages with content recorded per crawl.",
				Buckets: []float64{0, 1, 2, 3, 5, 10, 25},
			},
		)

		crawlerRateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crawler_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)

		llmRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "Language model completion requests partitioned by purpose and status.",
			},
			[]string{"purpose", "status"},
		)

		llmRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_request_duration_seconds",
				Help:    "Language model completion latency partitioned by purpose.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"purpose"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records one page fetch.
func ObserveFetch(outcome string, duration time.Duration) {
	Init()
	crawlerFetchTotal.WithLabelValues(outcome).Inc()
	if duration > 0 {
		crawlerFetchDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
	}
}

// ObserveCrawl records a finished crawl.
func ObserveCrawl(reason string, pages int) {
	Init()
	crawlerCrawlsTotal.WithLabelValues(reason).Inc()
	crawlerPagesPerCrawl.Observe(float64(pages))
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	crawlerRateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveLLMRequest records one completion request.
func ObserveLLMRequest(purpose, status string, duration time.Duration) {
	Init()
	llmRequestsTotal.WithLabelValues(purpose, status).Inc()
	llmRequestDurationSeconds.WithLabelValues(purpose).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
