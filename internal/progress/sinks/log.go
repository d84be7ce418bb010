package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/vc-portfolio-digest/internal/progress"
)

// LogSink writes each event as a structured debug log line.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("run_id", evt.RunID.String()),
			zap.String("stage", string(evt.Stage)),
			zap.String("url", evt.URL),
		}
		if evt.Company != "" {
			fields = append(fields, zap.String("company", evt.Company))
		}
		if evt.Outcome != "" {
			fields = append(fields, zap.String("outcome", evt.Outcome))
		}
		if evt.Total > 0 {
			fields = append(fields, zap.Int("total", evt.Total))
		}
		if evt.Pages > 0 {
			fields = append(fields, zap.Int("pages", evt.Pages))
		}
		if evt.Dur > 0 {
			fields = append(fields, zap.Duration("dur", evt.Dur))
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		s.logger.Debug("progress event", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
