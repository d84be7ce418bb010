package store

import (
	"sync"
	"time"
)

// RunStatus is a point-in-time view of a digest run.
type RunStatus struct {
	RunID      string         `json:"run_id"`
	Seed       string         `json:"seed"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Current    string         `json:"current,omitempty"`
	Total      int            `json:"total"`
	Outcomes   map[string]int `json:"outcomes"`
}

// StatusBoard holds the status of the active (or last) run.
type StatusBoard struct {
	mu     sync.RWMutex
	status RunStatus
	active bool
}

// NewStatusBoard returns an empty board.
func NewStatusBoard() *StatusBoard {
	return &StatusBoard{}
}

// Start resets the board for a new run.
func (b *StatusBoard) Start(runID, seed string, total int, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = RunStatus{
		RunID:     runID,
		Seed:      seed,
		StartedAt: at,
		Total:     total,
		Outcomes:  make(map[string]int),
	}
	b.active = true
}

// Begin records the company currently being processed.
func (b *StatusBoard) Begin(companyURL string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status.Current = companyURL
}

// Record counts one company outcome.
func (b *StatusBoard) Record(outcome string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.status.Outcomes == nil {
		b.status.Outcomes = make(map[string]int)
	}
	b.status.Outcomes[outcome]++
	b.status.Current = ""
}

// Finish stamps the run as done.
func (b *StatusBoard) Finish(at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status.FinishedAt = &at
	b.status.Current = ""
}

// Snapshot returns a copy of the current status. ok is false before any run
// started.
func (b *StatusBoard) Snapshot() (RunStatus, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := b.status
	out.Outcomes = make(map[string]int, len(b.status.Outcomes))
	for k, v := range b.status.Outcomes {
		out.Outcomes[k] = v
	}
	if b.status.FinishedAt != nil {
		finished := *b.status.FinishedAt
		out.FinishedAt = &finished
	}
	return out, b.active
}
