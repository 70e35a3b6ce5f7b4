// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Reader reads EDF/EDF+ files.
type Reader struct {
	r   io.ReadSeeker
	hdr *Header
}

// Open parses the header of an EDF/EDF+ file.
func Open(r io.ReadSeeker) (*Reader, error) {
	reader := bufio.NewReader(r)

	b := make([]byte, 256)
	if _, err := io.ReadFull(reader, b); err != nil {
		return nil, fmt.Errorf("edf: reading header: %w", err)
	}

	hdr := &Header{
		Version:     Version(field(b[0:8])),
		PatientID:   field(b[8:88]),
		RecordingID: field(b[88:168]),
	}

	startDate, err := time.Parse("02.01.06", field(b[168:176]))
	if err != nil {
		return nil, fmt.Errorf("%w: start date: %w", ErrMalformedHeader, err)
	}
	startTime, err := time.Parse("15.04.05", field(b[176:184]))
	if err != nil {
		return nil, fmt.Errorf("%w: start time: %w", ErrMalformedHeader, err)
	}
	hdr.StartTime = time.Date(startDate.Year(), startDate.Month(), startDate.Day(),
		startTime.Hour(), startTime.Minute(), startTime.Second(), 0, time.UTC)

	if hdr.HeaderBytes, err = strconv.Atoi(field(b[184:192])); err != nil {
		return nil, fmt.Errorf("%w: header bytes: %w", ErrMalformedHeader, err)
	}
	if hdr.DataRecords, err = strconv.Atoi(field(b[236:244])); err != nil {
		return nil, fmt.Errorf("%w: data records: %w", ErrMalformedHeader, err)
	}
	seconds, err := strconv.ParseFloat(field(b[244:252]), 64)
	if err != nil || seconds < 0 {
		return nil, fmt.Errorf("%w: record duration %q", ErrMalformedHeader, field(b[244:252]))
	}
	hdr.DataRecordDuration = time.Duration(seconds * float64(time.Second))
	if hdr.SignalCount, err = strconv.Atoi(field(b[252:256])); err != nil || hdr.SignalCount < 0 {
		return nil, fmt.Errorf("%w: signal count %q", ErrMalformedHeader, field(b[252:256]))
	}

	hdr.Signals = make([]Signal, hdr.SignalCount)
	columns := []struct {
		width int
		set   func(s *Signal, v string)
	}{
		{16, func(s *Signal, v string) { s.Label = v }},
		{80, func(s *Signal, v string) { s.TransducerType = v }},
		{8, func(s *Signal, v string) { s.PhysicalDimension = v }},
		{8, func(s *Signal, v string) { s.PhysicalMin = parseFloat(v) }},
		{8, func(s *Signal, v string) { s.PhysicalMax = parseFloat(v) }},
		{8, func(s *Signal, v string) { s.DigitalMin = parseInt(v) }},
		{8, func(s *Signal, v string) { s.DigitalMax = parseInt(v) }},
		{80, func(s *Signal, v string) { s.Prefiltering = v }},
		{8, func(s *Signal, v string) { s.SamplesPerRecord = parseInt(v) }},
		{32, func(s *Signal, v string) { s.Reserved = v }},
	}
	for _, col := range columns {
		buf := make([]byte, col.width)
		for i := range hdr.Signals {
			if _, err := io.ReadFull(reader, buf); err != nil {
				return nil, fmt.Errorf("edf: reading signal headers: %w", err)
			}
			col.set(&hdr.Signals[i], field(buf))
		}
	}

	if err := checkLayout(r, hdr); err != nil {
		return nil, err
	}
	return &Reader{r: r, hdr: hdr}, nil
}

// checkLayout rejects counts that are negative or that describe more data
// than the file holds, before anything is sized from them.
func checkLayout(r io.Seeker, hdr *Header) error {
	if hdr.DataRecords < -1 {
		return fmt.Errorf("%w: data records %d", ErrMalformedHeader, hdr.DataRecords)
	}
	if want := 256 * (hdr.SignalCount + 1); hdr.HeaderBytes != want {
		return fmt.Errorf("%w: header bytes %d, want %d", ErrMalformedHeader, hdr.HeaderBytes, want)
	}
	for i, sig := range hdr.Signals {
		if sig.SamplesPerRecord < 0 {
			return fmt.Errorf("%w: signal %d has %d samples per record", ErrMalformedHeader, i, sig.SamplesPerRecord)
		}
	}

	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("edf: sizing file: %w", err)
	}
	record := int64(hdr.recordSize())
	if hdr.DataRecords <= 0 || record == 0 {
		return nil
	}
	if avail := (size - int64(hdr.HeaderBytes)) / record; int64(hdr.DataRecords) > avail {
		return fmt.Errorf("%w: %d data records declared, file holds %d", ErrMalformedHeader, hdr.DataRecords, max(avail, 0))
	}
	return nil
}

// Header returns a copy of the parsed header.
func (er *Reader) Header() Header {
	h := *er.hdr
	h.Signals = append([]Signal(nil), er.hdr.Signals...)
	return h
}

// ReadAll decodes every data record and returns one row of physical values
// per signal, in header order.
func (er *Reader) ReadAll() ([][]float64, error) {
	hdr := er.hdr
	if hdr.DataRecords < 0 {
		return nil, fmt.Errorf("%w: unknown number of data records", ErrMalformedHeader)
	}
	out := make([][]float64, len(hdr.Signals))
	for i := range out {
		out[i] = make([]float64, 0, hdr.Samples(i))
	}
	if _, err := er.r.Seek(int64(hdr.HeaderBytes), io.SeekStart); err != nil {
		return nil, fmt.Errorf("edf: seeking to data: %w", err)
	}

	reader := bufio.NewReader(er.r)
	record := make([]byte, hdr.recordSize())
	for rec := 0; rec < hdr.DataRecords; rec++ {
		if _, err := io.ReadFull(reader, record); err != nil {
			return nil, fmt.Errorf("edf: reading record %d: %w", rec, err)
		}
		off := 0
		for i, sig := range hdr.Signals {
			for s := 0; s < sig.SamplesPerRecord; s++ {
				digital := int16(binary.LittleEndian.Uint16(record[off:]))
				out[i] = append(out[i], convertDigitalToPhysical(digital, sig))
				off += 2
			}
		}
	}
	return out, nil
}

// SignalReader reads continuous signal data from an EDF/EDF+ file.
type SignalReader struct {
	r             io.ReadSeeker
	hdr           *Header
	signalIndex   int
	currentRecord int
	currentSample int
	recordSize    int
	signalOffset  int // byte offset of the signal in a record
}

// Signal creates a new SignalReader for a specified signal index.
func (er *Reader) Signal(signalIndex int) (*SignalReader, error) {
	if signalIndex < 0 || signalIndex >= len(er.hdr.Signals) {
		return nil, fmt.Errorf("%w: %d", ErrSignalIndex, signalIndex)
	}

	signalOffset := 0
	for _, sig := range er.hdr.Signals[:signalIndex] {
		signalOffset += sig.SamplesPerRecord * 2
	}

	return &SignalReader{
		r:            er.r,
		hdr:          er.hdr,
		signalIndex:  signalIndex,
		recordSize:   er.hdr.recordSize(),
		signalOffset: signalOffset,
	}, nil
}

// Read fills data with physical values from the signal. It returns io.EOF once
// every record has been consumed.
func (sr *SignalReader) Read(data []float64) (int, error) {
	sig := sr.hdr.Signals[sr.signalIndex]
	buf := make([]byte, 2)

	n := 0
	for n < len(data) {
		if sr.currentRecord >= sr.hdr.DataRecords {
			return n, io.EOF
		}

		pos := int64(sr.hdr.HeaderBytes) + int64(sr.currentRecord)*int64(sr.recordSize) +
			int64(sr.signalOffset) + int64(sr.currentSample*2)
		if _, err := sr.r.Seek(pos, io.SeekStart); err != nil {
			return n, fmt.Errorf("edf: seeking to sample: %w", err)
		}
		if _, err := io.ReadFull(sr.r, buf); err != nil {
			return n, fmt.Errorf("edf: reading sample: %w", err)
		}
		data[n] = convertDigitalToPhysical(int16(binary.LittleEndian.Uint16(buf)), sig)
		n++

		sr.currentSample++
		if sr.currentSample >= sig.SamplesPerRecord {
			sr.currentSample = 0
			sr.currentRecord++
		}
	}

	return n, nil
}

func convertDigitalToPhysical(digital int16, sig Signal) float64 {
	if sig.DigitalMax == sig.DigitalMin {
		return 0
	}
	scale := (sig.PhysicalMax - sig.PhysicalMin) / float64(sig.DigitalMax-sig.DigitalMin)
	return sig.PhysicalMin + (float64(digital)-float64(sig.DigitalMin))*scale
}

func field(b []byte) string {
	return strings.TrimSpace(string(b))
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0.0
	}
	return f
}

func parseInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}
