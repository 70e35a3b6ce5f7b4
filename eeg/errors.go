package eeg

import (
	"errors"
	"fmt"
)

// Sentinel values matched by the typed errors below through errors.Is.
var (
	ErrSourceUnavailable = errors.New("eeg: signal source unavailable")
	ErrSignalTooShort    = errors.New("eeg: signal too short")
	ErrInvalidChannel    = errors.New("eeg: invalid channel")
	ErrEstimation        = errors.New("eeg: spectral estimation failed")
	ErrSignalTooLarge    = errors.New("eeg: signal too large")
	ErrInvalidSignal     = errors.New("eeg: invalid signal")
)

// SourceUnavailableError reports that a recording could not be read.
type SourceUnavailableError struct {
	Source string
	Err    error
}

// Error implements error.
func (e *SourceUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("eeg: source %q unavailable", e.Source)
	}
	return fmt.Sprintf("eeg: source %q unavailable: %v", e.Source, e.Err)
}

// Unwrap returns the underlying cause.
func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// Is matches the package sentinel.
func (e *SourceUnavailableError) Is(target error) bool { return target == ErrSourceUnavailable }

// SignalTooShortError reports a recording shorter than the longest filter
// kernel applied to it.
type SignalTooShortError struct {
	Samples  int
	Required int
}

// Error implements error.
func (e *SignalTooShortError) Error() string {
	return fmt.Sprintf("eeg: signal too short: %d samples, filter needs %d", e.Samples, e.Required)
}

// Is matches the package sentinel.
func (e *SignalTooShortError) Is(target error) bool { return target == ErrSignalTooShort }

// InvalidChannelError reports a missing, duplicated or malformed channel.
type InvalidChannelError struct {
	Channel string
	Reason  string
}

// Error implements error.
func (e *InvalidChannelError) Error() string {
	if e.Channel == "" {
		return "eeg: invalid channel: " + e.Reason
	}
	return fmt.Sprintf("eeg: invalid channel %q: %s", e.Channel, e.Reason)
}

// Is matches the package sentinel.
func (e *InvalidChannelError) Is(target error) bool { return target == ErrInvalidChannel }

// EstimationError wraps a numerical failure during spectral estimation.
// Channel is -1 when the failure is not tied to one channel.
type EstimationError struct {
	Stage   string
	Channel int
	Err     error
}

// Error implements error.
func (e *EstimationError) Error() string {
	if e.Channel >= 0 {
		return fmt.Sprintf("eeg: estimation failed at %s (channel %d): %v", e.Stage, e.Channel, e.Err)
	}
	return fmt.Sprintf("eeg: estimation failed at %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *EstimationError) Unwrap() error { return e.Err }

// Is matches the package sentinel.
func (e *EstimationError) Is(target error) bool { return target == ErrEstimation }

// SignalTooLargeError reports a recording above the configured working-set
// limit (channels × samples).
type SignalTooLargeError struct {
	Values int
	Limit  int
}

// Error implements error.
func (e *SignalTooLargeError) Error() string {
	return fmt.Sprintf("eeg: signal too large: %d values exceeds limit %d", e.Values, e.Limit)
}

// Is matches the package sentinel.
func (e *SignalTooLargeError) Is(target error) bool { return target == ErrSignalTooLarge }
