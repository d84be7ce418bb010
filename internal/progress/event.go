package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the milestone an Event represents.
type Stage string

// Run milestones.
const (
	StageRunStart       Stage = "RUN_START"
	StageCompanyStart   Stage = "COMPANY_START"
	StageCompanyDone    Stage = "COMPANY_DONE"
	StageCompanySkipped Stage = "COMPANY_SKIPPED"
	StageRunDone        Stage = "RUN_DONE"
)

// Event is one run milestone.
type Event struct {
	RunID uuid.UUID
	TS    time.Time
	Stage Stage
	// URL is the company URL for company stages and the portfolio seed for
	// run stages.
	URL     string
	Company string
	// Outcome is the company outcome kind for COMPANY_DONE and
	// COMPANY_SKIPPED.
	Outcome string
	// Total is the number of companies queued, set on RUN_START.
	Total int
	Pages int
	Dur   time.Duration
	Note  string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == uuid.Nil {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone:
	case StageCompanyStart:
		if e.URL == "" {
			return errors.New("company start requires url")
		}
	case StageCompanyDone, StageCompanySkipped:
		if e.URL == "" {
			return errors.New("company event requires url")
		}
		if e.Outcome == "" {
			return errors.New("company event requires outcome")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
