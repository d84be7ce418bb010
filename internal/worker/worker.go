// Package worker runs the per-company pipeline: validate, cache-or-crawl,
// summarize, persist, mark processed, notify.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/vc-portfolio-digest/internal/crawler"
	"github.com/JakeFAU/vc-portfolio-digest/internal/summary"
	"github.com/JakeFAU/vc-portfolio-digest/internal/validator"
)

// Kind is the explicit result of processing one company.
type Kind string

// Company outcomes. Only KindProcessed advances progress.
const (
	KindProcessed     Kind = "processed"
	KindInvalidURL    Kind = "invalid_url"
	KindNoData        Kind = "no_data"
	KindSummaryFailed Kind = "summary_failed"
	KindPersistFailed Kind = "persist_failed"
	KindCanceled      Kind = "canceled"
)

// Result describes what happened to one company.
type Result struct {
	Kind      Kind
	URL       string
	Company   string
	Pages     int
	FromCache bool
	// Reason is a human-readable explanation for non-processed kinds.
	Reason   string
	Record   *crawler.CompanyRecord
	Err      error
	Duration time.Duration
}

// Validator gates company URLs.
type Validator interface {
	Validate(ctx context.Context, url string) validator.Verdict
}

// Crawler performs one bounded crawl.
type Crawler interface {
	Crawl(ctx context.Context, seed string) (crawler.Outcome, error)
}

// Summarizer produces the long and short summaries.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (summary.Summary, error)
}

// ScrapeCache persists crawl results per domain.
type ScrapeCache interface {
	Load(ctx context.Context, companyURL string) (*crawler.ScrapeResult, bool, error)
	Save(ctx context.Context, companyURL string, result *crawler.ScrapeResult) (string, error)
}

// ProgressMarker records fully processed companies.
type ProgressMarker interface {
	MarkProcessed(ctx context.Context, url string) error
}

// Deps are the collaborators of a Worker. Publisher may be nil.
type Deps struct {
	Validator  Validator
	Crawler    Crawler
	Summarizer Summarizer
	Cache      ScrapeCache
	Ledgers    []crawler.Ledger
	Progress   ProgressMarker
	Publisher  crawler.Publisher
	Clock      crawler.Clock
}

// Config controls Worker behavior.
type Config struct {
	// Topic is passed to the publisher; empty uses its default.
	Topic string
}

// Worker processes one company at a time.
type Worker struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
}

// New validates deps and constructs a Worker.
func New(deps Deps, cfg Config, logger *zap.Logger) (*Worker, error) {
	switch {
	case deps.Validator == nil:
		return nil, errors.New("validator is required")
	case deps.Crawler == nil:
		return nil, errors.New("crawler is required")
	case deps.Summarizer == nil:
		return nil, errors.New("summarizer is required")
	case deps.Cache == nil:
		return nil, errors.New("scrape cache is required")
	case len(deps.Ledgers) == 0:
		return nil, errors.New("at least one ledger is required")
	case deps.Progress == nil:
		return nil, errors.New("progress marker is required")
	case deps.Clock == nil:
		return nil, errors.New("clock is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{deps: deps, cfg: cfg, logger: logger}, nil
}

// Process runs the pipeline for companyURL. It never panics on per-company
// failures; the returned Result carries the outcome.
func (w *Worker) Process(ctx context.Context, companyURL string) Result {
	start := w.deps.Clock.Now()
	res := w.process(ctx, companyURL)
	res.Duration = w.deps.Clock.Now().Sub(start)
	return res
}

func (w *Worker) process(ctx context.Context, companyURL string) Result {
	res := Result{URL: companyURL, Company: crawler.CompanyName(companyURL)}
	logger := w.logger.With(zap.String("url", companyURL), zap.String("company", res.Company))
	if err := ctx.Err(); err != nil {
		return canceled(res, err)
	}

	verdict := w.deps.Validator.Validate(ctx, companyURL)
	if !verdict.Valid {
		logger.Info("skipping invalid url", zap.String("reason", verdict.Reason))
		res.Kind, res.Reason = KindInvalidURL, verdict.Reason
		return res
	}

	sc, err := w.scrape(ctx, logger, companyURL)
	if err != nil {
		return canceled(res, err)
	}
	pages, cacheFile := sc.pages, sc.cacheFile
	res.Pages, res.FromCache = pages.Len(), sc.fromCache
	if pages.Len() == 0 {
		res.Kind, res.Reason = KindNoData, "no pages with content"
		if sc.shells > 0 {
			res.Reason = "site appears to render client-side"
		}
		logger.Warn("no data scraped; skipping", zap.String("reason", res.Reason), zap.Int("shells", sc.shells))
		return res
	}

	sum, err := w.deps.Summarizer.Summarize(ctx, strings.Join(pages.Texts(), " "))
	if err != nil {
		if ctx.Err() != nil {
			return canceled(res, ctx.Err())
		}
		logger.Warn("summary generation failed; skipping", zap.Error(err))
		res.Kind, res.Reason, res.Err = KindSummaryFailed, "summary generation failed", err
		return res
	}

	record := crawler.CompanyRecord{
		Name:         res.Company,
		URL:          companyURL,
		LongSummary:  sum.Long,
		ShortSummary: sum.Short,
		CacheFile:    cacheFile,
		ProcessedAt:  w.deps.Clock.Now(),
	}
	for _, ledger := range w.deps.Ledgers {
		if err := ledger.Append(ctx, record); err != nil {
			logger.Error("ledger append failed", zap.Error(err))
			res.Kind, res.Reason, res.Err = KindPersistFailed, "ledger append failed", err
			return res
		}
	}
	if err := w.deps.Progress.MarkProcessed(ctx, companyURL); err != nil {
		logger.Error("progress save failed", zap.Error(err))
		res.Kind, res.Reason, res.Err = KindPersistFailed, "progress save failed", err
		return res
	}
	w.publish(ctx, logger, record)

	logger.Info("company processed",
		zap.Int("pages", res.Pages),
		zap.Bool("from_cache", res.FromCache),
		zap.String("short_summary", record.ShortSummary),
	)
	res.Kind, res.Record = KindProcessed, &record
	return res
}

type scrape struct {
	pages     *crawler.ScrapeResult
	cacheFile string
	fromCache bool
	shells    int
}

// scrape returns the cached pages for companyURL or crawls it. Only
// cancellation is returned as an error.
func (w *Worker) scrape(ctx context.Context, logger *zap.Logger, companyURL string) (scrape, error) {
	cached, ok, err := w.deps.Cache.Load(ctx, companyURL)
	switch {
	case err != nil:
		logger.Warn("scrape cache unreadable; crawling", zap.Error(err))
	case ok:
		logger.Info("using cached data", zap.Int("pages", cached.Len()))
		return scrape{pages: cached, cacheFile: crawler.CacheFileName(companyURL), fromCache: true}, nil
	}

	logger.Info("crawling company site")
	outcome, err := w.deps.Crawler.Crawl(ctx, companyURL)
	if err != nil {
		return scrape{}, fmt.Errorf("crawl %s: %w", companyURL, err)
	}
	sc := scrape{pages: outcome.Pages, shells: outcome.Shells}
	if !outcome.Cacheable() {
		return sc, nil
	}
	name, err := w.deps.Cache.Save(ctx, companyURL, outcome.Pages)
	if err != nil {
		logger.Warn("scrape cache save failed", zap.Error(err))
		return sc, nil
	}
	sc.cacheFile = name
	return sc, nil
}

func (w *Worker) publish(ctx context.Context, logger *zap.Logger, record crawler.CompanyRecord) {
	if w.deps.Publisher == nil {
		return
	}
	id, err := w.deps.Publisher.Publish(ctx, w.cfg.Topic, record)
	if err != nil {
		logger.Warn("company notification failed", zap.Error(err))
		return
	}
	logger.Debug("company notification published", zap.String("message_id", id))
}

func canceled(res Result, err error) Result {
	res.Kind, res.Reason, res.Err = KindCanceled, "interrupted", err
	return res
}
