package progress

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config controls buffering and batching for the Hub.
//   - BufferSize: capacity of the event channel (default 256).
//   - MaxBatch: flush once this many events are queued (default 64).
//   - FlushEvery: flush a partial batch after this long (default 250ms).
//   - SinkTimeout: per-sink deadline while flushing (default 5s).
type Config struct {
	BufferSize  int
	MaxBatch    int
	FlushEvery  time.Duration
	SinkTimeout time.Duration
	Logger      *zap.Logger
}

const (
	defaultBufferSize  = 256
	defaultMaxBatch    = 64
	defaultFlushEvery  = 250 * time.Millisecond
	defaultSinkTimeout = 5 * time.Second
	dropLogInterval    = 5 * time.Second
)

// Hub buffers events and fans them out to sinks on a background goroutine.
// Emit is safe for concurrent use and never blocks.
type Hub struct {
	cfg    Config
	sinks  []Sink
	events chan Event
	stop   chan struct{}
	done   chan struct{}
	logger *zap.Logger

	closed    atomic.Bool
	dropped   atomic.Int64
	lastDrop  atomic.Int64
	closeOnce sync.Once
	closeCtx  context.Context
}

// NewHub starts a Hub delivering to sinks.
func NewHub(cfg Config, sinks ...Sink) *Hub {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = defaultMaxBatch
	}
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = defaultFlushEvery
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaultSinkTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		cfg:    cfg,
		sinks:  append([]Sink(nil), sinks...),
		events: make(chan Event, cfg.BufferSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger,
	}
	go h.run()
	return h
}

// Emit enqueues evt. Invalid events are discarded; when the buffer is full
// the event is dropped and a rate-limited warning is logged.
func (h *Hub) Emit(evt Event) {
	if h == nil || h.closed.Load() {
		return
	}
	if err := evt.Validate(); err != nil {
		h.logger.Debug("discarding invalid progress event", zap.Error(err))
		return
	}
	select {
	case h.events <- evt:
	default:
		h.dropped.Add(1)
		now := time.Now().UnixNano()
		last := h.lastDrop.Load()
		if now-last >= dropLogInterval.Nanoseconds() && h.lastDrop.CompareAndSwap(last, now) {
			h.logger.Warn("progress events dropped due to backpressure", zap.Int64("dropped", h.dropped.Swap(0)))
		}
	}
}

// Close stops accepting events, flushes what is buffered, closes the sinks
// and waits for the background goroutine. Repeated calls only wait.
func (h *Hub) Close(ctx context.Context) error {
	if h == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		h.closeCtx = ctx
		close(h.stop)
	})
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("progress hub close wait: %w", ctx.Err())
	}
}

func (h *Hub) run() {
	defer close(h.done)
	ticker := time.NewTicker(h.cfg.FlushEvery)
	defer ticker.Stop()

	batch := make([]Event, 0, h.cfg.MaxBatch)
	for {
		select {
		case evt := <-h.events:
			batch = append(batch, evt)
			if len(batch) >= h.cfg.MaxBatch {
				batch = h.flush(batch)
			}
		case <-ticker.C:
			batch = h.flush(batch)
		case <-h.stop:
			h.drain(batch)
			return
		}
	}
}

func (h *Hub) drain(batch []Event) {
	for {
		select {
		case evt := <-h.events:
			batch = append(batch, evt)
			if len(batch) >= h.cfg.MaxBatch {
				batch = h.flush(batch)
			}
		default:
			h.flush(batch)
			h.closeSinks()
			return
		}
	}
}

// flush delivers batch to every sink and returns the emptied slice.
func (h *Hub) flush(batch []Event) []Event {
	if len(batch) == 0 {
		return batch
	}
	snapshot := append([]Event(nil), batch...)
	for _, sink := range h.sinks {
		if sink == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.SinkTimeout)
		if err := sink.Consume(ctx, snapshot); err != nil {
			h.logger.Warn("progress sink consume failed", zap.Error(err))
		}
		cancel()
	}
	return batch[:0]
}

func (h *Hub) closeSinks() {
	ctx := h.closeCtx
	if ctx == nil {
		ctx = context.Background()
	}
	for _, sink := range h.sinks {
		if sink == nil {
			continue
		}
		if err := sink.Close(ctx); err != nil {
			h.logger.Warn("progress sink close failed", zap.Error(err))
		}
	}
}
