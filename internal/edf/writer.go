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
	"math"
	"strconv"
)

// maxRecordBytes is the data record size limit recommended by the standard.
const maxRecordBytes = 61440

// Writer writes EDF files.
type Writer struct {
	w           io.WriteSeeker
	hdr         *Header
	dataRecords int // Number of data records written so far.
}

// Create creates a new EDF writer that writes to the given writer.
func Create(w io.WriteSeeker, hdr Header) (*Writer, error) {
	hdr.DataRecords = -1 // unknown until Close
	hdr.SignalCount = len(hdr.Signals)
	if hdr.Version == "" {
		hdr.Version = Version0
	}

	ew := &Writer{w: w, hdr: &hdr}
	if err := ew.writeHeader(); err != nil {
		return nil, fmt.Errorf("edf: writing header: %w", err)
	}
	return ew, nil
}

// Close finalizes the file by rewriting the header with the record count.
func (ew *Writer) Close() error {
	ew.hdr.DataRecords = ew.dataRecords
	if err := ew.writeHeader(); err != nil {
		return fmt.Errorf("edf: writing header: %w", err)
	}
	return nil
}

// WriteRecord writes a single data record. signals holds one slice per header
// signal, each SamplesPerRecord long.
func (ew *Writer) WriteRecord(signals [][]float64) error {
	if len(signals) != ew.hdr.SignalCount {
		return fmt.Errorf("edf: expected %d signals, got %d", ew.hdr.SignalCount, len(signals))
	}

	totalSamples := 0
	for i, signal := range signals {
		if want := ew.hdr.Signals[i].SamplesPerRecord; len(signal) != want {
			return fmt.Errorf("edf: signal %d has %d samples, want %d per record", i, len(signal), want)
		}
		totalSamples += len(signal)
	}
	if totalSamples*2 > maxRecordBytes {
		return fmt.Errorf("edf: data record too large: %d bytes, max is %d bytes", totalSamples*2, maxRecordBytes)
	}

	if _, err := ew.w.Seek(int64(ew.hdr.HeaderBytes)+int64(ew.dataRecords)*int64(totalSamples*2), io.SeekStart); err != nil {
		return fmt.Errorf("edf: seeking to record: %w", err)
	}

	writer := bufio.NewWriter(ew.w)
	buf := make([]byte, 2)
	for i, signal := range signals {
		sig := ew.hdr.Signals[i]
		for _, sample := range signal {
			binary.LittleEndian.PutUint16(buf, uint16(convertPhysicalToDigital(sample, sig)))
			if _, err := writer.Write(buf); err != nil {
				return err
			}
		}
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	ew.dataRecords++
	return nil
}

// WriteSignals splits whole-recording rows into data records and writes them.
// Trailing samples that do not fill a complete record are dropped.
func (ew *Writer) WriteSignals(rows [][]float64) error {
	if len(rows) != ew.hdr.SignalCount {
		return fmt.Errorf("edf: expected %d signals, got %d", ew.hdr.SignalCount, len(rows))
	}
	records := math.MaxInt
	for i, row := range rows {
		spr := ew.hdr.Signals[i].SamplesPerRecord
		if spr <= 0 {
			return fmt.Errorf("edf: signal %d has no samples per record", i)
		}
		records = min(records, len(row)/spr)
	}

	record := make([][]float64, len(rows))
	for rec := 0; rec < records; rec++ {
		for i, row := range rows {
			spr := ew.hdr.Signals[i].SamplesPerRecord
			record[i] = row[rec*spr : (rec+1)*spr]
		}
		if err := ew.WriteRecord(record); err != nil {
			return fmt.Errorf("edf: record %d: %w", rec, err)
		}
	}
	return nil
}

func (ew *Writer) writeHeader() error {
	if _, err := ew.w.Seek(0, io.SeekStart); err != nil {
		return err
	}
	hdr := ew.hdr
	hdr.HeaderBytes = 256 + hdr.SignalCount*256

	writer := bufio.NewWriter(ew.w)
	put := func(width int, v string) {
		if len(v) > width {
			v = v[:width]
		}
		fmt.Fprintf(writer, "%-*s", width, v)
	}

	put(8, string(hdr.Version))
	put(80, hdr.PatientID)
	put(80, hdr.RecordingID)
	put(8, hdr.StartTime.Format("02.01.06"))
	put(8, hdr.StartTime.Format("15.04.05"))
	put(8, strconv.Itoa(hdr.HeaderBytes))
	put(44, "")
	put(8, strconv.Itoa(hdr.DataRecords))
	put(8, strconv.FormatFloat(hdr.DataRecordDuration.Seconds(), 'f', -1, 64))
	put(4, strconv.Itoa(hdr.SignalCount))

	for _, s := range hdr.Signals {
		put(16, s.Label)
	}
	for _, s := range hdr.Signals {
		put(80, s.TransducerType)
	}
	for _, s := range hdr.Signals {
		put(8, s.PhysicalDimension)
	}
	for _, s := range hdr.Signals {
		put(8, formatPhysicalValue(s.PhysicalMin))
	}
	for _, s := range hdr.Signals {
		put(8, formatPhysicalValue(s.PhysicalMax))
	}
	for _, s := range hdr.Signals {
		put(8, strconv.Itoa(s.DigitalMin))
	}
	for _, s := range hdr.Signals {
		put(8, strconv.Itoa(s.DigitalMax))
	}
	for _, s := range hdr.Signals {
		put(80, s.Prefiltering)
	}
	for _, s := range hdr.Signals {
		put(8, strconv.Itoa(s.SamplesPerRecord))
	}
	for range hdr.Signals {
		put(32, "")
	}

	return writer.Flush()
}

// convertPhysicalToDigital maps a physical value onto the digital range,
// rounding to the nearest step and saturating at the range limits.
func convertPhysicalToDigital(physical float64, sig Signal) int16 {
	if sig.PhysicalMax == sig.PhysicalMin {
		return 0
	}
	scale := float64(sig.DigitalMax-sig.DigitalMin) / (sig.PhysicalMax - sig.PhysicalMin)
	digital := math.Round((physical-sig.PhysicalMin)*scale) + float64(sig.DigitalMin)
	digital = math.Max(float64(sig.DigitalMin), math.Min(float64(sig.DigitalMax), digital))
	return int16(digital)
}

func formatPhysicalValue(val float64) string {
	s := strconv.FormatFloat(val, 'f', 2, 64)
	if len(s) > 8 {
		s = strconv.FormatFloat(val, 'f', 0, 64)
	}
	return s
}
