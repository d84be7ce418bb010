// Package progress carries run narration events (run start, per-company
// start/done/skip, run done) from the dispatcher to pluggable sinks. Emit
// never blocks the pipeline; a background goroutine batches events and fans
// them out to sinks such as the log narrator, Prometheus counters and the
// run status board.
package progress
