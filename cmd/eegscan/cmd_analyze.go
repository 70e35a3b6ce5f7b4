package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-eeg/eeg"
	"github.com/cwbudde/algo-eeg/eeg/job"
	"github.com/cwbudde/algo-eeg/eeg/source"
	"github.com/cwbudde/algo-eeg/internal/logging"
)

var analyzeFlags struct {
	output  string
	metrics bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.edf>...",
	Short: "Run the analysis pipeline on EDF recordings",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVarP(&analyzeFlags.output, "output", "o", formatTable, "Output format: table, json or yaml")
	f.BoolVar(&analyzeFlags.metrics, "metrics", false, "Print job metrics to stderr when done")
}

type analysis struct {
	File string       `json:"file" yaml:"file"`
	Job  job.Snapshot `json:"job" yaml:"job"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if err := checkFormat(analyzeFlags.output); err != nil {
		return err
	}
	ctx := cmd.Context()
	log := logging.New("analyze")

	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.close()

	conditioner, err := cfg.Conditioner()
	if err != nil {
		return err
	}
	estimator, err := cfg.Estimator()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics, err := job.NewMetrics(reg)
	if err != nil {
		return err
	}

	runner := job.NewRunner(conditioner, estimator, cfg.Scorer(),
		job.WithSink(b.store),
		job.WithMetrics(metrics),
		job.WithModels(b.models),
		job.WithMaxSamples(cfg.Workers.MaxSamples),
	)
	pool := job.NewPool(runner, cfg.Workers.Count)

	jobs := make([]*job.Job, len(args))
	for i, path := range args {
		jobs[i] = job.New()
		src := source.NewOnce(path, source.EDF{Path: path})
		if err := pool.Submit(ctx, jobs[i], src); err != nil {
			return err
		}
		log.Info("submitted", "job", jobs[i].ID(), "file", path)
	}

	waitCtx := ctx
	if cfg.Workers.WaitTimeoutSecs > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Workers.WaitTimeoutSecs)*time.Second)
		defer cancel()
	}

	results := make([]analysis, len(args))
	failed := 0
	for i, j := range jobs {
		snap, err := pool.Wait(waitCtx, j.ID())
		if err != nil {
			log.Error("wait", "job", j.ID(), "error", err)
		}
		if snap.State != job.Completed {
			failed++
		}
		results[i] = analysis{File: args[i], Job: snap}
	}
	if err := pool.Close(); err != nil {
		return err
	}

	if err := emit(cmd.OutOrStdout(), analyzeFlags.output, results, func() string {
		return analysisTable(results)
	}); err != nil {
		return err
	}
	if analyzeFlags.metrics {
		if err := dumpMetrics(reg); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d analyses failed", failed, len(results))
	}
	return nil
}

func analysisTable(results []analysis) string {
	t := newTable("File", "State", "Delta", "Theta", "Alpha", "Beta", "Peak Hz", "Line dB", "Risk")
	alignRight(t, 3, 4, 5, 6, 7, 8, 9)
	for _, a := range results {
		name := filepath.Base(a.File)
		if a.Job.Result == nil {
			t.AppendRow([]any{name, a.Job.State, "-", "-", "-", "-", "-", "-", "-"})
			continue
		}
		r := a.Job.Result
		t.AppendRow([]any{name, a.Job.State,
			f2(r.BandPowers.Delta), f2(r.BandPowers.Theta), f2(r.BandPowers.Alpha), f2(r.BandPowers.Beta),
			fmt.Sprintf("%.1f", r.DominantFrequency), lineRejection(a.Job.Metadata.Conditioning),
			fmt.Sprintf("%.0f%%", 100*r.SeizureProbability)})
	}
	out := t.Render()
	for _, a := range results {
		switch {
		case a.Job.Result != nil:
			out += fmt.Sprintf("\n%s: %s", filepath.Base(a.File), a.Job.Result.Summary)
		case a.Job.ErrorMessage != "":
			out += fmt.Sprintf("\n%s: %s", filepath.Base(a.File), a.Job.ErrorMessage)
		}
	}
	return out
}

func lineRejection(r *eeg.ConditionReport) string {
	if r == nil {
		return "-"
	}
	db := r.LineRejectionDB()
	switch {
	case math.IsNaN(db):
		return "-"
	case math.IsInf(db, 1):
		return "inf"
	}
	return fmt.Sprintf("%.0f", db)
}

func dumpMetrics(reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(os.Stderr, mf); err != nil {
			return err
		}
	}
	return nil
}
