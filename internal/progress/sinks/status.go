package sinks

import (
	"context"
	"errors"

	"github.com/JakeFAU/vc-portfolio-digest/internal/progress"
	"github.com/JakeFAU/vc-portfolio-digest/internal/store"
)

// StatusSink folds events into a store.StatusBoard so the API can report on
// the active run.
type StatusSink struct {
	board *store.StatusBoard
}

// NewStatusSink validates dependencies and returns a board-backed sink.
func NewStatusSink(board *store.StatusBoard) (*StatusSink, error) {
	if board == nil {
		return nil, errors.New("status board is required")
	}
	return &StatusSink{board: board}, nil
}

// Consume applies each event to the board in order.
func (s *StatusSink) Consume(ctx context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch evt.Stage {
		case progress.StageRunStart:
			s.board.Start(evt.RunID.String(), evt.URL, evt.Total, evt.TS)
		case progress.StageCompanyStart:
			s.board.Begin(evt.URL)
		case progress.StageCompanyDone, progress.StageCompanySkipped:
			s.board.Record(evt.Outcome)
		case progress.StageRunDone:
			s.board.Finish(evt.TS)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *StatusSink) Close(context.Context) error {
	return nil
}
