package job

import (
	"context"

	"github.com/google/uuid"

	"github.com/cwbudde/algo-eeg/eeg"
)

// ResultSink persists job state. SetState must be idempotent; AttachResult is
// called once per completed job, after SetState(Completed).
type ResultSink interface {
	SetState(ctx context.Context, id uuid.UUID, state State, errMsg string) error
	AttachResult(ctx context.Context, id uuid.UUID, result eeg.ClinicalResult) error
}

// MetadataRecorder is implemented by sinks that also store recording
// metadata. Runner calls it on success and failure alike.
type MetadataRecorder interface {
	RecordMetadata(ctx context.Context, id uuid.UUID, meta Metadata) error
}

// ModelSource reports the active scoring model, if one is registered.
type ModelSource interface {
	Active() (version string, ok bool)
}

type discardSink struct{}

func (discardSink) SetState(context.Context, uuid.UUID, State, string) error { return nil }

func (discardSink) AttachResult(context.Context, uuid.UUID, eeg.ClinicalResult) error { return nil }
