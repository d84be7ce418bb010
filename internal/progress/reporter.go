package progress

import (
	"time"

	"github.com/google/uuid"
)

// Reporter stamps events with a run ID and the current time before handing
// them to an Emitter.
type Reporter struct {
	runID   uuid.UUID
	emitter Emitter
	now     func() time.Time
}

// NewReporter builds a Reporter. A nil emitter discards events and a nil now
// uses time.Now.
func NewReporter(runID uuid.UUID, emitter Emitter, now func() time.Time) *Reporter {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if now == nil {
		now = time.Now
	}
	return &Reporter{runID: runID, emitter: emitter, now: now}
}

// RunID returns the run identifier.
func (r *Reporter) RunID() uuid.UUID { return r.runID }

// RunStart reports the beginning of a run over total companies.
func (r *Reporter) RunStart(seed string, total int) {
	r.emit(Event{Stage: StageRunStart, URL: seed, Total: total})
}

// CompanyStart reports that work on a company began.
func (r *Reporter) CompanyStart(url, company string) {
	r.emit(Event{Stage: StageCompanyStart, URL: url, Company: company})
}

// CompanyDone reports a processed company.
func (r *Reporter) CompanyDone(url, company, outcome string, pages int, dur time.Duration) {
	r.emit(Event{Stage: StageCompanyDone, URL: url, Company: company, Outcome: outcome, Pages: pages, Dur: dur})
}

// CompanySkipped reports a company that was not processed.
func (r *Reporter) CompanySkipped(url, company, outcome, note string, dur time.Duration) {
	r.emit(Event{Stage: StageCompanySkipped, URL: url, Company: company, Outcome: outcome, Note: note, Dur: dur})
}

// RunDone reports the end of the run.
func (r *Reporter) RunDone(seed string, dur time.Duration, note string) {
	r.emit(Event{Stage: StageRunDone, URL: seed, Dur: dur, Note: note})
}

func (r *Reporter) emit(evt Event) {
	evt.RunID = r.runID
	evt.TS = r.now()
	r.emitter.Emit(evt)
}
