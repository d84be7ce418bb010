package progress

import "context"

// Sink consumes batches of events. Consume is called from the hub goroutine
// only, with ctx bounded by the hub's sink timeout.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}

// Emitter publishes individual events; Hub satisfies this interface so the
// dispatcher stays agnostic about buffering.
type Emitter interface {
	Emit(evt Event)
}

// NopEmitter discards events.
type NopEmitter struct{}

// Emit implements Emitter.
func (NopEmitter) Emit(Event) {}
