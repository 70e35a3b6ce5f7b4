// Package job runs one EEG analysis through its lifecycle.
//
// A Job moves pending → processing → completed | error and never leaves a
// terminal state. Runner drives the pipeline for a single job; Pool submits
// jobs to a bounded set of workers.
package job

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/algo-eeg/eeg"
)

// State is the lifecycle position of a job.
type State string

const (
	Pending    State = "pending"
	Processing State = "processing"
	Completed  State = "completed"
	Error      State = "error"
)

// Terminal reports whether s is final.
func (s State) Terminal() bool { return s == Completed || s == Error }

// Valid reports whether s is one of the four lifecycle states.
func (s State) Valid() bool {
	switch s {
	case Pending, Processing, Completed, Error:
		return true
	}
	return false
}

// ParseState converts a stored state name.
func ParseState(s string) (State, error) {
	st := State(s)
	if !st.Valid() {
		return "", fmt.Errorf("job: unknown state %q", s)
	}
	return st, nil
}

var transitions = map[State][]State{
	Pending:    {Processing},
	Processing: {Completed, Error},
}

// Transition validates a move from one state to another.
func Transition(from, to State) error {
	if !slices.Contains(transitions[from], to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}

// InvalidTransitionError reports a state change the lifecycle forbids.
type InvalidTransitionError struct {
	ID   uuid.UUID
	From State
	To   State
}

// Error implements error.
func (e *InvalidTransitionError) Error() string {
	if e.ID == uuid.Nil {
		return fmt.Sprintf("job: invalid transition %s -> %s", e.From, e.To)
	}
	return fmt.Sprintf("job %s: invalid transition %s -> %s", e.ID, e.From, e.To)
}

// AlreadyStartedError is returned when Start is called on a job that has left
// the pending state.
type AlreadyStartedError struct {
	ID    uuid.UUID
	State State
}

// Error implements error.
func (e *AlreadyStartedError) Error() string {
	return fmt.Sprintf("job %s: already started (state %s)", e.ID, e.State)
}

// ChannelStats summarizes the raw amplitude of one channel.
type ChannelStats struct {
	Name     string  `json:"name"`
	RMS      float64 `json:"rms"`
	Peak     float64 `json:"peak"`
	Kurtosis float64 `json:"kurtosis"`
	Flat     bool    `json:"flat,omitempty"`
}

// Metadata describes the recording behind a job. Fields are filled in as the
// pipeline progresses and survive a failure.
type Metadata struct {
	Channels        []string             `json:"channels,omitempty"`
	ChannelCount    int                  `json:"channels_count"`
	SampleRate      float64              `json:"sampling_rate"`
	DurationSeconds float64              `json:"duration_seconds"`
	Samples         int                  `json:"samples"`
	ChannelStats    []ChannelStats       `json:"channel_stats,omitempty"`
	Conditioning    *eeg.ConditionReport `json:"conditioning,omitempty"`
	Issues          []string             `json:"issues,omitempty"`
	ModelVersion    string               `json:"model_version,omitempty"`
}

func (m Metadata) clone() Metadata {
	m.Channels = slices.Clone(m.Channels)
	m.Issues = slices.Clone(m.Issues)
	m.ChannelStats = slices.Clone(m.ChannelStats)
	if m.Conditioning != nil {
		r := *m.Conditioning
		r.NotchFrequencies = slices.Clone(r.NotchFrequencies)
		m.Conditioning = &r
	}
	return m
}

// Snapshot is a point-in-time copy of a job.
type Snapshot struct {
	ID           uuid.UUID           `json:"id"`
	State        State               `json:"state"`
	CreatedAt    time.Time           `json:"created_at"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
	Result       *eeg.ClinicalResult `json:"result,omitempty"`
	ErrorMessage string              `json:"error_message,omitempty"`
	Metadata     Metadata            `json:"metadata"`
}

// Job is one analysis record. A Job is owned by the worker running it; other
// goroutines observe it through Snapshot.
type Job struct {
	id        uuid.UUID
	createdAt time.Time

	mu          sync.RWMutex
	state       State
	completedAt time.Time
	result      *eeg.ClinicalResult
	errMsg      string
	meta        Metadata
}

// New returns a pending job with a random id.
func New() *Job {
	return NewWithID(uuid.New(), time.Now().UTC())
}

// NewWithID returns a pending job with the given identity.
func NewWithID(id uuid.UUID, createdAt time.Time) *Job {
	return &Job{id: id, createdAt: createdAt, state: Pending}
}

// ID returns the job identifier.
func (j *Job) ID() uuid.UUID { return j.id }

// State returns the current lifecycle state.
func (j *Job) State() State {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state
}

// Snapshot returns a deep copy of the job.
func (j *Job) Snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()

	s := Snapshot{
		ID:           j.id,
		State:        j.state,
		CreatedAt:    j.createdAt,
		ErrorMessage: j.errMsg,
		Metadata:     j.meta.clone(),
	}
	if !j.completedAt.IsZero() {
		t := j.completedAt
		s.CompletedAt = &t
	}
	if j.result != nil {
		r := *j.result
		s.Result = &r
	}
	return s
}

// advance moves the job to state to, stamping CompletedAt on terminal states.
func (j *Job) advance(to State, now time.Time, update func(*Job)) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := Transition(j.state, to); err != nil {
		return &InvalidTransitionError{ID: j.id, From: j.state, To: to}
	}
	j.state = to
	if to.Terminal() {
		j.completedAt = now
	}
	if update != nil {
		update(j)
	}
	return nil
}

func (j *Job) setMetadata(m Metadata) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.meta = m.clone()
}
