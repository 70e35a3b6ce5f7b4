// Package sink stores analysis job state and results.
//
// Every sink enforces the job lifecycle on its own records: repeating a state
// is a no-op, an illegal change is rejected, and a result can be attached once
// to a completed job.
package sink

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/algo-eeg/eeg"
	"github.com/cwbudde/algo-eeg/eeg/job"
)

// ResultSink and MetadataRecorder are defined by the job package, which
// consumes them.
type (
	ResultSink       = job.ResultSink
	MetadataRecorder = job.MetadataRecorder
)

var (
	ErrNotFound      = errors.New("sink: job not found")
	ErrNotCompleted  = errors.New("sink: job not completed")
	ErrResultPresent = errors.New("sink: result already attached")
)

// Record is the stored view of one job.
type Record struct {
	ID           uuid.UUID           `json:"id"`
	State        job.State           `json:"state"`
	ErrorMessage string              `json:"error_message,omitempty"`
	Result       *eeg.ClinicalResult `json:"result,omitempty"`
	Metadata     *job.Metadata       `json:"metadata,omitempty"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// nextState decides how a stored state reacts to a SetState call. It reports
// whether a write is needed.
func nextState(id uuid.UUID, stored, to job.State, exists bool) (bool, error) {
	if !to.Valid() {
		return false, fmt.Errorf("sink: invalid state %q", to)
	}
	if !exists {
		return true, nil
	}
	if stored == to {
		return false, nil
	}
	if err := job.Transition(stored, to); err != nil {
		return false, &job.InvalidTransitionError{ID: id, From: stored, To: to}
	}
	return true, nil
}
