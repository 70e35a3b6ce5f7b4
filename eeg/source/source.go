// Package source provides eeg.Source implementations: EDF files, in-memory
// recordings and a guard that enforces a single read per analysis.
package source

import (
	"context"
	"errors"
	"sync"

	"github.com/cwbudde/algo-eeg/eeg"
)

// ErrAlreadyRead is returned by Once on every read after the first.
var ErrAlreadyRead = errors.New("source: already read")

// Memory serves a recording held in memory.
type Memory struct {
	Name   string
	Signal eeg.RawSignal
}

// Read returns the stored signal. A Memory without channels is unavailable.
func (m Memory) Read(ctx context.Context) (eeg.RawSignal, error) {
	if err := ctx.Err(); err != nil {
		return eeg.RawSignal{}, &eeg.SourceUnavailableError{Source: m.name(), Err: err}
	}
	if m.Signal.NumChannels() == 0 {
		return eeg.RawSignal{}, &eeg.SourceUnavailableError{Source: m.name(), Err: errors.New("no channels")}
	}
	return m.Signal, nil
}

func (m Memory) name() string {
	if m.Name == "" {
		return "memory"
	}
	return m.Name
}

// Func adapts a function to eeg.Source.
type Func func(ctx context.Context) (eeg.RawSignal, error)

// Read calls f.
func (f Func) Read(ctx context.Context) (eeg.RawSignal, error) { return f(ctx) }

// Once wraps a source so that it can be read a single time. Later reads fail
// with a SourceUnavailableError wrapping ErrAlreadyRead.
type Once struct {
	src  eeg.Source
	name string

	mu   sync.Mutex
	read bool
}

// NewOnce guards src. name identifies it in errors.
func NewOnce(name string, src eeg.Source) *Once {
	return &Once{src: src, name: name}
}

// Read delegates to the wrapped source the first time and fails afterwards.
func (o *Once) Read(ctx context.Context) (eeg.RawSignal, error) {
	o.mu.Lock()
	if o.read {
		o.mu.Unlock()
		return eeg.RawSignal{}, &eeg.SourceUnavailableError{Source: o.name, Err: ErrAlreadyRead}
	}
	o.read = true
	o.mu.Unlock()
	return o.src.Read(ctx)
}
