// Package dispatcher drives the sequential company loop: filter already
// processed URLs, run the worker per company, pace between companies, and
// stop cleanly on interrupt.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/vc-portfolio-digest/internal/crawler"
	"github.com/JakeFAU/vc-portfolio-digest/internal/progress"
	"github.com/JakeFAU/vc-portfolio-digest/internal/worker"
)

// DefaultCompanyDelay is the pause between companies.
const DefaultCompanyDelay = time.Second

// Processor handles one company.
type Processor interface {
	Process(ctx context.Context, companyURL string) worker.Result
}

// ProgressFilter drops URLs that were already processed.
type ProgressFilter interface {
	Filter(urls []string) []string
}

// Sleeper pauses until d elapsed or ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Config controls pacing and the final narration.
type Config struct {
	CompanyDelay time.Duration
	CSVPath      string
	DocxPath     string
}

// Summary tallies one run.
type Summary struct {
	Queued      int
	Skipped     int
	Outcomes    map[worker.Kind]int
	Interrupted bool
	Elapsed     time.Duration
}

// Dispatcher runs companies one after another.
type Dispatcher struct {
	proc     Processor
	progress ProgressFilter
	sleeper  Sleeper
	clock    crawler.Clock
	reporter *progress.Reporter
	cfg      Config
	logger   *zap.Logger
}

// New wires a Dispatcher. reporter may be nil.
func New(
	proc Processor,
	progressSet ProgressFilter,
	sleeper Sleeper,
	clock crawler.Clock,
	reporter *progress.Reporter,
	cfg Config,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if proc == nil {
		return nil, errors.New("processor is required")
	}
	if progressSet == nil {
		return nil, errors.New("progress set is required")
	}
	if sleeper == nil || clock == nil {
		return nil, errors.New("clock and sleeper are required")
	}
	if cfg.CompanyDelay < 0 {
		return nil, fmt.Errorf("company delay must be >= 0, got %s", cfg.CompanyDelay)
	}
	if cfg.CSVPath == "" {
		cfg.CSVPath = "short_summaries.csv"
	}
	if cfg.DocxPath == "" {
		cfg.DocxPath = "long_summaries.docx"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		proc:     proc,
		progress: progressSet,
		sleeper:  sleeper,
		clock:    clock,
		reporter: reporter,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Run processes every URL not yet in the progress set. Cancellation of ctx
// stops the loop between companies (or once the in-flight company unwinds)
// and is reported through Summary.Interrupted rather than as an error.
func (d *Dispatcher) Run(ctx context.Context, seed string, urls []string) Summary {
	start := d.clock.Now()
	pending := d.progress.Filter(urls)
	sum := Summary{
		Queued:   len(pending),
		Skipped:  len(urls) - len(pending),
		Outcomes: make(map[worker.Kind]int),
	}
	d.logger.Info("starting company loop",
		zap.Int("total", len(urls)),
		zap.Int("already_processed", sum.Skipped),
		zap.Int("pending", sum.Queued),
	)
	if d.reporter != nil {
		d.reporter.RunStart(seed, len(pending))
	}

	for i, companyURL := range pending {
		if ctx.Err() != nil {
			sum.Interrupted = true
			break
		}
		d.logger.Info("processing company",
			zap.Int("index", i+1),
			zap.Int("of", len(pending)),
			zap.String("url", companyURL),
		)
		if d.reporter != nil {
			d.reporter.CompanyStart(companyURL, crawler.CompanyName(companyURL))
		}
		res := d.proc.Process(ctx, companyURL)
		sum.Outcomes[res.Kind]++
		d.report(res)
		if res.Kind == worker.KindCanceled {
			sum.Interrupted = true
			break
		}
		if i < len(pending)-1 {
			if err := d.sleeper.Sleep(ctx, d.cfg.CompanyDelay); err != nil {
				sum.Interrupted = true
				break
			}
		}
	}

	sum.Elapsed = d.clock.Now().Sub(start)
	note := ""
	if sum.Interrupted {
		note = "interrupted"
		d.logger.Info("Interrupt received, stopping...")
	} else {
		d.logger.Info(fmt.Sprintf("Processing complete. Results saved in %s and %s", d.cfg.CSVPath, d.cfg.DocxPath),
			zap.Any("outcomes", sum.Outcomes),
			zap.Duration("elapsed", sum.Elapsed),
		)
	}
	if d.reporter != nil {
		d.reporter.RunDone(seed, sum.Elapsed, note)
	}
	return sum
}

func (d *Dispatcher) report(res worker.Result) {
	if d.reporter == nil {
		return
	}
	if res.Kind == worker.KindProcessed {
		d.reporter.CompanyDone(res.URL, res.Company, string(res.Kind), res.Pages, res.Duration)
		return
	}
	d.reporter.CompanySkipped(res.URL, res.Company, string(res.Kind), res.Reason, res.Duration)
}
