// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package edf reads and writes European Data Format (EDF/EDF+) recordings.
package edf

import (
	"errors"
	"time"
)

// Version is the header version field.
type Version string

const (
	// Version0 represents the version of the EDF/EDF+ standard.
	Version0 Version = "0"
)

var (
	// ErrMalformedHeader is returned when a header field cannot be parsed.
	ErrMalformedHeader = errors.New("edf: malformed header")
	// ErrSignalIndex is returned for an out-of-range signal index.
	ErrSignalIndex = errors.New("edf: signal index out of range")
)

// Header represents the EDF/EDF+ file header.
type Header struct {
	Version            Version       // Version of the EDF/EDF+ standard (usually "0")
	PatientID          string        // Identification of the patient
	RecordingID        string        // Identification of the recording session
	StartTime          time.Time     // Start date of the recording
	HeaderBytes        int           // Number of bytes in the header
	DataRecordDuration time.Duration // Duration of a single data record
	DataRecords        int           // Number of data records, -1 if unknown
	SignalCount        int           // Number of signals in each data record
	Signals            []Signal      // Details of each signal
}

// Signal represents the characteristics of each signal in the EDF/EDF+ file.
type Signal struct {
	Label             string  // Label of the signal (e.g., EEG Fpz-Cz)
	TransducerType    string  // Type of transducer used
	PhysicalDimension string  // Physical dimension (e.g., uV, mV)
	PhysicalMin       float64 // Minimum physical value
	PhysicalMax       float64 // Maximum physical value
	DigitalMin        int     // Minimum digital value
	DigitalMax        int     // Maximum digital value
	Prefiltering      string  // Pre-filtering information
	SamplesPerRecord  int     // Number of samples in each data record for this signal
	Reserved          string  // Reserved for future use
}

// SampleRate returns the sampling rate of signal i in Hz, or 0 when the record
// duration is unknown.
func (h *Header) SampleRate(i int) float64 {
	if i < 0 || i >= len(h.Signals) || h.DataRecordDuration <= 0 {
		return 0
	}
	return float64(h.Signals[i].SamplesPerRecord) / h.DataRecordDuration.Seconds()
}

// Samples returns the total number of samples of signal i across all records.
func (h *Header) Samples(i int) int {
	if i < 0 || i >= len(h.Signals) || h.DataRecords < 0 {
		return 0
	}
	return h.Signals[i].SamplesPerRecord * h.DataRecords
}

// Duration returns the recording length.
func (h *Header) Duration() time.Duration {
	if h.DataRecords < 0 {
		return 0
	}
	return time.Duration(h.DataRecords) * h.DataRecordDuration
}

// recordSize returns the size of one data record in bytes.
func (h *Header) recordSize() int {
	size := 0
	for _, sig := range h.Signals {
		size += sig.SamplesPerRecord * 2
	}
	return size
}
