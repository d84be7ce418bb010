package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/vc-portfolio-digest/internal/progress"
)

// PrometheusSink exports run and per-company counters.
type PrometheusSink struct {
	runsStarted     prometheus.Counter
	runsCompleted   prometheus.Counter
	companiesQueued prometheus.Counter
	companies       *prometheus.CounterVec
	companyDuration *prometheus.HistogramVec
	companyPages    prometheus.Histogram
	inFlight        prometheus.Gauge
}

// NewPrometheusSink registers the collectors against reg, or the default
// registerer when reg is nil.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "digest_runs_started_total",
			Help: "Digest runs that have started.",
		}),
		runsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "digest_runs_completed_total",
			Help: "Digest runs that have finished, including interrupted ones.",
		}),
		companiesQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "digest_companies_queued_total",
			Help: "Companies queued for processing across runs.",
		}),
		companies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "digest_companies_total",
			Help: "Companies handled partitioned by outcome.",
		}, []string{"outcome"}),
		companyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "digest_company_duration_seconds",
			Help:    "Wall time per company partitioned by outcome.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		}, []string{"outcome"}),
		companyPages: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "digest_company_pages",
			Help:    "Pages with content used per processed company.",
			Buckets: []float64{0, 1, 2, 3, 5, 10},
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "digest_companies_in_flight",
			Help: "Companies currently being processed.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsCompleted,
		s.companiesQueued,
		s.companies,
		s.companyDuration,
		s.companyPages,
		s.inFlight,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageRunStart:
			s.runsStarted.Inc()
			s.companiesQueued.Add(float64(evt.Total))
		case progress.StageRunDone:
			s.runsCompleted.Inc()
			s.inFlight.Set(0)
		case progress.StageCompanyStart:
			s.inFlight.Inc()
		case progress.StageCompanyDone, progress.StageCompanySkipped:
			s.companies.WithLabelValues(evt.Outcome).Inc()
			if evt.Dur > 0 {
				s.companyDuration.WithLabelValues(evt.Outcome).Observe(evt.Dur.Seconds())
			}
			if evt.Stage == progress.StageCompanyDone {
				s.companyPages.Observe(float64(evt.Pages))
			}
			s.inFlight.Dec()
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
