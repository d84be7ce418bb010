// Package sinks implements concrete progress consumers: structured logging,
// Prometheus run counters, and the in-memory run status board served by the
// HTTP API. Each sink satisfies progress.Sink.
package sinks
