package sink

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/algo-eeg/eeg"
	"github.com/cwbudde/algo-eeg/eeg/job"
)

// Memory keeps records in a map. It is safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Record
	now     func() time.Time
}

// NewMemory returns an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[uuid.UUID]*Record),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetState records state for id, creating the record on first use.
func (m *Memory) SetState(_ context.Context, id uuid.UUID, state job.State, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	var stored job.State
	if ok {
		stored = rec.State
	}
	write, err := nextState(id, stored, state, ok)
	if err != nil || !write {
		return err
	}
	if !ok {
		rec = &Record{ID: id}
		m.records[id] = rec
	}
	rec.State = state
	rec.ErrorMessage = errMsg
	rec.UpdatedAt = m.now()
	return nil
}

// AttachResult stores the result of a completed job once.
func (m *Memory) AttachResult(_ context.Context, id uuid.UUID, result eeg.ClinicalResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	switch {
	case !ok:
		return ErrNotFound
	case rec.State != job.Completed:
		return ErrNotCompleted
	case rec.Result != nil:
		return ErrResultPresent
	}
	rec.Result = &result
	rec.UpdatedAt = m.now()
	return nil
}

// RecordMetadata replaces the stored metadata for id.
func (m *Memory) RecordMetadata(_ context.Context, id uuid.UUID, meta job.Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.Metadata = &meta
	rec.UpdatedAt = m.now()
	return nil
}

// Get returns a copy of the record for id.
func (m *Memory) Get(_ context.Context, id uuid.UUID) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	out := *rec
	if rec.Result != nil {
		r := *rec.Result
		out.Result = &r
	}
	if rec.Metadata != nil {
		md := *rec.Metadata
		out.Metadata = &md
	}
	return out, nil
}
