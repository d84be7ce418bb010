// Package app is the composition root: it turns a validated config.Config
// into a wired pipeline (storage, crawler, LLM clients, ledgers, progress
// hub, optional discovery, Postgres, Pub/Sub and operator API) and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/vc-portfolio-digest/internal/api"
	"github.com/JakeFAU/vc-portfolio-digest/internal/clock/system"
	"github.com/JakeFAU/vc-portfolio-digest/internal/config"
	"github.com/JakeFAU/vc-portfolio-digest/internal/crawler"
	"github.com/JakeFAU/vc-portfolio-digest/internal/discover"
	"github.com/JakeFAU/vc-portfolio-digest/internal/dispatcher"
	"github.com/JakeFAU/vc-portfolio-digest/internal/extract"
	collyfetcher "github.com/JakeFAU/vc-portfolio-digest/internal/fetcher/colly"
	"github.com/JakeFAU/vc-portfolio-digest/internal/headless/detector"
	idgen "github.com/JakeFAU/vc-portfolio-digest/internal/id/uuid"
	"github.com/JakeFAU/vc-portfolio-digest/internal/ledger"
	"github.com/JakeFAU/vc-portfolio-digest/internal/llm"
	"github.com/JakeFAU/vc-portfolio-digest/internal/policy/ratelimit"
	"github.com/JakeFAU/vc-portfolio-digest/internal/progress"
	"github.com/JakeFAU/vc-portfolio-digest/internal/progress/sinks"
	"github.com/JakeFAU/vc-portfolio-digest/internal/publisher/pubsub"
	"github.com/JakeFAU/vc-portfolio-digest/internal/storage"
	"github.com/JakeFAU/vc-portfolio-digest/internal/storage/gcs"
	"github.com/JakeFAU/vc-portfolio-digest/internal/storage/local"
	"github.com/JakeFAU/vc-portfolio-digest/internal/storage/postgres"
	"github.com/JakeFAU/vc-portfolio-digest/internal/store"
	"github.com/JakeFAU/vc-portfolio-digest/internal/summary"
	"github.com/JakeFAU/vc-portfolio-digest/internal/validator"
	"github.com/JakeFAU/vc-portfolio-digest/internal/worker"
)

// Option overrides a collaborator, mainly for tests.
type Option func(*options)

type options struct {
	completer  llm.Completer
	linkSource discover.LinkSource
	registerer prometheus.Registerer
	publisher  crawler.Publisher
}

// WithCompleter replaces the OpenAI client.
func WithCompleter(c llm.Completer) Option {
	return func(o *options) { o.completer = c }
}

// WithLinkSource replaces the headless Chrome link source.
func WithLinkSource(src discover.LinkSource) Option {
	return func(o *options) { o.linkSource = src }
}

// WithRegisterer registers progress collectors somewhere other than the
// default registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithPublisher replaces the Pub/Sub publisher.
func WithPublisher(p crawler.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// App holds the long-lived services of one digest run.
type App struct {
	cfg    config.Config
	logger *zap.Logger
	runID  uuid.UUID

	blobs      crawler.BlobStore
	progress   *store.ProgressSet
	urls       *store.URLList
	board      *store.StatusBoard
	hub        *progress.Hub
	discoverer *discover.Discoverer
	dispatcher *dispatcher.Dispatcher
	api        *api.Server

	closers []func() error
}

// New wires every component from cfg. Network-facing clients are created but
// not contacted, except Postgres whose schema is ensured up front. On error,
// anything already opened is closed.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (a *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	a = &App{cfg: cfg, logger: logger, board: store.NewStatusBoard()}
	defer func() {
		if err != nil {
			a.closeAll()
		}
	}()

	a.runID, err = idgen.New().NewRunID()
	if err != nil {
		return nil, err
	}
	a.logger = logger.With(zap.String("run_id", a.runID.String()))

	blobs, closeBlobs, err := storage.New(ctx, storage.Config{
		Backend: cfg.Storage.Backend,
		Local:   local.Config{BaseDir: cfg.Storage.Local.BaseDir},
		GCS:     gcs.Config{Bucket: cfg.Storage.GCS.Bucket, Prefix: cfg.Storage.GCS.Prefix},
	})
	if err != nil {
		return nil, err
	}
	a.blobs = blobs
	a.closers = append(a.closers, closeBlobs)

	a.progress, err = store.LoadProgress(ctx, blobs)
	if err != nil {
		return nil, err
	}
	a.urls = store.NewURLList(blobs)

	if err := a.wireProgressHub(o.registerer); err != nil {
		return nil, err
	}

	completer := o.completer
	if completer == nil {
		completer, err = llm.New(llm.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			RequestTimeout: cfg.LLM.RequestTimeout,
			RPS:            cfg.LLM.RPS,
			Burst:          cfg.LLM.Burst,
			MaxAttempts:    cfg.LLM.MaxAttempts,
			RetryBase:      cfg.LLM.RetryBase,
			RetryMax:       cfg.LLM.RetryMax,
		}, logger.Named("llm"))
		if err != nil {
			return nil, fmt.Errorf("create llm client: %w", err)
		}
	}

	clock := system.New()
	bfs, err := crawler.New(crawler.Config{
		MaxPages:      cfg.Crawler.MaxPages,
		Timeout:       cfg.Crawler.Timeout,
		MaxPageChars:  cfg.Crawler.MaxPageChars,
		UserAgent:     cfg.Crawler.UserAgent,
		RespectRobots: cfg.Crawler.RespectRobots,
	},
		collyfetcher.New(collyfetcher.Config{
			UserAgent:   cfg.Crawler.UserAgent,
			Timeout:     cfg.Crawler.FetchTimeout,
			MaxBodySize: cfg.Crawler.MaxBodyBytes,
		}),
		extract.New(extract.Config{Logger: logger.Named("extract")}),
		ratelimit.New(ratelimit.Config{RPS: cfg.Crawler.RPS, Burst: cfg.Crawler.Burst}),
		clock,
		logger.Named("crawler"),
		crawler.WithShellDetector(detector.NewHeuristic(0)),
	)
	if err != nil {
		return nil, err
	}

	ledgers, err := a.wireLedgers(ctx)
	if err != nil {
		return nil, err
	}

	publisher := o.publisher
	if publisher == nil && cfg.PubSub.ProjectID != "" {
		pub, err := pubsub.Open(ctx, pubsub.Config{ProjectID: cfg.PubSub.ProjectID, TopicID: cfg.PubSub.TopicID})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pub.Close)
		publisher = pub
	}

	w, err := worker.New(worker.Deps{
		Validator:  validator.New(completer, cfg.Validator.Enabled, logger.Named("validator")),
		Crawler:    bfs,
		Summarizer: summary.New(completer, logger.Named("summary")),
		Cache:      store.NewScrapeCache(blobs),
		Ledgers:    ledgers,
		Progress:   a.progress,
		Publisher:  publisher,
		Clock:      clock,
	}, worker.Config{Topic: cfg.PubSub.TopicID}, logger.Named("worker"))
	if err != nil {
		return nil, err
	}

	reporter := progress.NewReporter(a.runID, a.hub, clock.Now)
	a.dispatcher, err = dispatcher.New(w, a.progress, clock, clock, reporter, dispatcher.Config{
		CompanyDelay: cfg.Pacing.CompanyDelay,
		CSVPath:      a.outputPath(cfg.Output.CSVPath),
		DocxPath:     a.outputPath(cfg.Output.DocxPath),
	}, logger)
	if err != nil {
		return nil, err
	}

	if !cfg.Discovery.Skip {
		source := o.linkSource
		if source == nil {
			chrome := discover.NewChromeSource(discover.ChromeConfig{
				UserAgent:         cfg.Crawler.UserAgent,
				NavigationTimeout: cfg.Discovery.NavigationTimeout,
				ClickTimeout:      cfg.Discovery.ClickTimeout,
				SettleDelay:       cfg.Discovery.SettleDelay,
				ExecPath:          cfg.Discovery.ExecPath,
			}, logger.Named("discover"))
			a.closers = append(a.closers, func() error { chrome.Close(); return nil })
			source = chrome
		}
		a.discoverer = discover.New(source, a.urls, cfg.Discovery.ExcludedDomains, logger.Named("discover"))
	}

	if cfg.API.ListenAddr != "" {
		a.api, err = api.NewServer(api.Options{
			Board:     a.board,
			Processed: a.progress,
			Ready:     a.ready,
			APIKey:    cfg.API.APIKey,
			Logger:    logger.Named("api"),
		})
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *App) wireProgressHub(reg prometheus.Registerer) error {
	promSink, err := sinks.NewPrometheusSink(reg)
	if err != nil {
		return err
	}
	statusSink, err := sinks.NewStatusSink(a.board)
	if err != nil {
		return err
	}
	a.hub = progress.NewHub(progress.Config{Logger: a.logger.Named("progress")},
		sinks.NewLogSink(a.logger.Named("progress")), promSink, statusSink)
	a.closers = append(a.closers, func() error {
		return a.hub.Close(context.Background())
	})
	return nil
}

func (a *App) wireLedgers(ctx context.Context) ([]crawler.Ledger, error) {
	ledgers := []crawler.Ledger{
		ledger.NewCSV(a.outputPath(a.cfg.Output.CSVPath)),
		ledger.NewDocx(a.outputPath(a.cfg.Output.DocxPath)),
	}
	if a.cfg.DB.DSN == "" {
		return ledgers, nil
	}
	pg, err := postgres.NewSummaryStore(ctx, postgres.SummaryStoreConfig{
		DSN:             a.cfg.DB.DSN,
		Table:           a.cfg.DB.Table,
		MaxConns:        a.cfg.DB.MaxConns,
		MinConns:        a.cfg.DB.MinConns,
		MaxConnLifetime: a.cfg.DB.MaxConnLifetime,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { pg.Close(); return nil })
	if err := pg.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return append(ledgers, pg), nil
}

// outputPath places relative ledger paths next to the local blob store so a
// run's artifacts stay together.
func (a *App) outputPath(p string) string {
	if filepath.IsAbs(p) || a.cfg.Storage.Backend != storage.BackendLocal {
		return p
	}
	return filepath.Join(a.cfg.Storage.Local.BaseDir, p)
}

func (a *App) ready(ctx context.Context) error {
	if _, err := a.blobs.Exists(ctx, store.ProgressFile); err != nil {
		return fmt.Errorf("blob store: %w", err)
	}
	return nil
}

// RunID identifies this run in logs, events and the status API.
func (a *App) RunID() uuid.UUID { return a.runID }

// Board exposes the run status board.
func (a *App) Board() *store.StatusBoard { return a.board }

// Run discovers company URLs for seed (unless skipped), then processes every
// pending company. A discovery failure falls back to the existing URL list;
// a missing list is an error. Interrupts are reported in the Summary.
func (a *App) Run(ctx context.Context, seed string) (dispatcher.Summary, error) {
	if a.api != nil {
		apiCtx, stopAPI := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := a.api.ListenAndServe(apiCtx, a.cfg.API.ListenAddr); err != nil {
				a.logger.Error("operator api stopped", zap.Error(err))
			}
		}()
		defer func() {
			stopAPI()
			<-done
		}()
	}

	if a.discoverer != nil {
		if _, err := a.discoverer.Discover(ctx, seed); err != nil {
			a.logger.Warn("portfolio discovery failed; continuing with existing url list", zap.Error(err))
		}
	} else {
		a.logger.Info("skipping portfolio discovery")
	}

	urls, err := a.urls.Read(ctx)
	if err != nil {
		if errors.Is(err, crawler.ErrNotFound) {
			return dispatcher.Summary{}, fmt.Errorf("no company url list available: %w", err)
		}
		return dispatcher.Summary{}, err
	}
	return a.dispatcher.Run(ctx, seed, urls), nil
}

// Close flushes progress events and releases clients in reverse order of
// creation.
func (a *App) Close() error {
	return a.closeAll()
}

func (a *App) closeAll() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
