package windowmanager

import (
	"time"

	"github.com/google/uuid"
)

// Outcome summarizes one iteration of a reconciliation pass.
type Outcome string

const (
	OutcomeUnchanged  Outcome = "unchanged"
	OutcomeApplied    Outcome = "applied"
	OutcomeAborted    Outcome = "aborted"
	OutcomeSkipped    Outcome = "skipped"
	OutcomeReadFailed Outcome = "read-failed"
	OutcomePanicked   Outcome = "panicked"
)

// PassRecord describes one iteration of a reconciliation pass.
type PassRecord struct {
	ID        string
	Reason    Reason
	Outcome   Outcome
	StartedAt time.Time
	Duration  time.Duration
	Displays  []string
	Added     []string
	Removed   []string
	Error     string
}

// PassRecorder receives a record after every pass iteration. Record is called
// on the reconciling goroutine and must not block.
type PassRecorder interface {
	Record(rec PassRecord)
}

func newPassRecord(reason Reason) PassRecord {
	return PassRecord{
		ID:        uuid.NewString(),
		Reason:    reason,
		StartedAt: time.Now(),
	}
}
