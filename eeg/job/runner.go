package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/algo-eeg/dsp/stats"
	"github.com/cwbudde/algo-eeg/eeg"
	"github.com/cwbudde/algo-eeg/eeg/bands"
	"github.com/cwbudde/algo-eeg/eeg/condition"
	"github.com/cwbudde/algo-eeg/eeg/score"
	"github.com/cwbudde/algo-eeg/internal/logging"
)

// Option configures a Runner.
type Option func(*Runner)

// WithSink sets where state changes and results are persisted.
func WithSink(s ResultSink) Option {
	return func(r *Runner) { r.sink = s }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithLogger replaces the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithMaxSamples rejects recordings with more than n values in total
// (channels × samples). Zero disables the limit.
func WithMaxSamples(n int) Option {
	return func(r *Runner) { r.maxSamples = n }
}

// WithModels stamps results with the active registered model instead of the
// scorer's own version.
func WithModels(m ModelSource) Option {
	return func(r *Runner) { r.models = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// SpectralEstimator turns a conditioned recording into band powers.
// *bands.Estimator is the production implementation.
type SpectralEstimator interface {
	Estimate(sig eeg.ConditionedSignal) (bands.Estimate, error)
}

// Runner executes the analysis pipeline for one job at a time. A Runner is
// safe for concurrent use by several workers, each owning a different job.
type Runner struct {
	conditioner *condition.Conditioner
	estimator   SpectralEstimator
	scorer      *score.Scorer

	sink       ResultSink
	metrics    *Metrics
	models     ModelSource
	log        *slog.Logger
	maxSamples int
	now        func() time.Time
}

// NewRunner wires the pipeline stages.
func NewRunner(c *condition.Conditioner, e SpectralEstimator, s *score.Scorer, opts ...Option) *Runner {
	r := &Runner{
		conditioner: c,
		estimator:   e,
		scorer:      s,
		sink:        discardSink{},
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.log == nil {
		r.log = logging.New("job")
	}
	return r
}

// Start moves j from pending to processing.
func (r *Runner) Start(ctx context.Context, j *Job) error {
	if err := j.advance(Processing, r.now(), nil); err != nil {
		started := &AlreadyStartedError{ID: j.ID(), State: j.State()}
		r.log.Error("start rejected", "job", j.ID(), "state", started.State)
		return started
	}
	r.metrics.transition(Processing)
	r.log.Info("job processing", "job", j.ID())

	if err := r.sink.SetState(ctx, j.ID(), Processing, ""); err != nil {
		return fmt.Errorf("job %s: sink: %w", j.ID(), err)
	}
	return nil
}

// Run reads src once and drives j to completed or error. Pipeline failures,
// panics included, end in the error state and are not returned. Run returns
// an error only when j is not processing or the sink fails.
func (r *Runner) Run(ctx context.Context, j *Job, src eeg.Source) error {
	if st := j.State(); st != Processing {
		err := &InvalidTransitionError{ID: j.ID(), From: st, To: Completed}
		r.log.Error("run rejected", "job", j.ID(), "state", st)
		return err
	}

	began := time.Now()
	result, meta, perr := r.pipeline(ctx, src)
	elapsed := time.Since(began)

	j.setMetadata(meta)
	var errs []error
	if rec, ok := r.sink.(MetadataRecorder); ok {
		if err := rec.RecordMetadata(ctx, j.ID(), meta); err != nil {
			errs = append(errs, fmt.Errorf("job %s: sink: recording metadata: %w", j.ID(), err))
		}
	}

	if perr != nil {
		msg := perr.Error()
		if err := j.advance(Error, r.now(), func(j *Job) { j.errMsg = msg }); err != nil {
			return err
		}
		r.metrics.transition(Error)
		r.metrics.observe(Error, elapsed)
		r.log.Warn("job failed", "job", j.ID(), "error", msg, "elapsed", elapsed)

		if err := r.sink.SetState(ctx, j.ID(), Error, msg); err != nil {
			errs = append(errs, fmt.Errorf("job %s: sink: %w", j.ID(), err))
		}
		return errors.Join(errs...)
	}

	if err := j.advance(Completed, r.now(), func(j *Job) { j.result = &result }); err != nil {
		return err
	}
	r.metrics.transition(Completed)
	r.metrics.observe(Completed, elapsed)
	r.log.Info("job completed", "job", j.ID(),
		"probability", result.SeizureProbability,
		"model", result.ModelVersion,
		"elapsed", elapsed)

	if err := r.sink.SetState(ctx, j.ID(), Completed, ""); err != nil {
		errs = append(errs, fmt.Errorf("job %s: sink: %w", j.ID(), err))
		return errors.Join(errs...)
	}
	if err := r.sink.AttachResult(ctx, j.ID(), result); err != nil {
		errs = append(errs, fmt.Errorf("job %s: sink: attaching result: %w", j.ID(), err))
	}
	return errors.Join(errs...)
}

// Execute starts j and runs it to a terminal state.
func (r *Runner) Execute(ctx context.Context, j *Job, src eeg.Source) error {
	if err := r.Start(ctx, j); err != nil {
		var started *AlreadyStartedError
		if errors.As(err, &started) {
			return err
		}
		// The job is processing even though the sink missed the update.
		return errors.Join(err, r.Run(ctx, j, src))
	}
	return r.Run(ctx, j, src)
}

// pipeline runs read, condition, estimate and score. meta holds whatever was
// learned before a failure.
func (r *Runner) pipeline(ctx context.Context, src eeg.Source) (res eeg.ClinicalResult, meta Metadata, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job: pipeline panic: %v", p)
		}
	}()

	raw, err := src.Read(ctx)
	if err != nil {
		return res, meta, err
	}
	meta.Channels = raw.Channels()
	meta.ChannelCount = raw.NumChannels()
	meta.SampleRate = raw.SampleRate()
	meta.DurationSeconds = raw.Duration()
	meta.Samples = raw.NumSamples()
	meta.ChannelStats = channelStats(raw)
	for _, cs := range meta.ChannelStats {
		if cs.Flat {
			meta.Issues = append(meta.Issues, fmt.Sprintf("channel %q is flat", cs.Name))
			r.log.Warn("flat channel", "channel", cs.Name)
		}
	}

	if values := raw.NumChannels() * raw.NumSamples(); r.maxSamples > 0 && values > r.maxSamples {
		return res, meta, &eeg.SignalTooLargeError{Values: values, Limit: r.maxSamples}
	}

	cond, err := r.conditioner.Condition(raw)
	if err != nil {
		if plan, perr := r.conditioner.Plan(raw.SampleRate()); perr == nil {
			meta.Conditioning = &plan
		}
		return res, meta, err
	}
	meta.Conditioning = &cond.Report

	est, err := r.estimator.Estimate(cond)
	if err != nil {
		return res, meta, err
	}
	for _, issue := range est.Issues {
		meta.Issues = append(meta.Issues, issue.Error())
		r.log.Warn("spectral issue", "stage", issue.Stage, "channel", issue.Channel, "error", issue.Err)
	}

	a := r.scorer.Score(est.Power)
	version := r.scorer.Version()
	if r.models != nil {
		if v, ok := r.models.Active(); ok {
			version = v
		}
	}
	meta.ModelVersion = version

	res = eeg.ClinicalResult{
		BandPowers:         est.Power,
		RelativePowers:     est.Relative,
		DominantFrequency:  est.DominantFrequency,
		SeizureProbability: a.Probability,
		Summary:            a.Summary,
		ModelVersion:       version,
	}
	return res, meta, nil
}

// flatTolerance is the peak-to-peak range, in recording units, below which a
// channel counts as disconnected.
const flatTolerance = 1e-9

func channelStats(raw eeg.RawSignal) []ChannelStats {
	out := make([]ChannelStats, raw.NumChannels())
	for i, name := range raw.Channels() {
		s := stats.Summarize(raw.Row(i))
		out[i] = ChannelStats{
			Name:     name,
			RMS:      s.RMS,
			Peak:     s.Peak,
			Kurtosis: s.Kurtosis,
			Flat:     s.Flat(flatTolerance),
		}
	}
	return out
}
