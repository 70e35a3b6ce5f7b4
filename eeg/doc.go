// Package eeg defines the values that flow through the EEG analysis pipeline:
// raw and conditioned recordings, band powers, clinical results, and the
// error taxonomy shared by the pipeline stages.
//
// The pipeline itself is split across subpackages:
//
//   - source: signal providers (EDF files, in-memory recordings)
//   - condition: line-noise notch and clinical band-pass filtering
//   - bands: Welch PSD and canonical band aggregation
//   - score: placeholder seizure-likelihood heuristics and summaries
//   - job: the analysis job state machine, runner and worker pool
//   - sink: result sinks and the active model registry
package eeg
