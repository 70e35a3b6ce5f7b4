// Package score turns band powers into a seizure-likelihood probability and a
// short textual interpretation.
//
// The default policies are placeholders: a uniformly random low baseline and
// a random high draw when beta exceeds three times alpha. They are not a
// trained detector. Both sit behind interfaces so a real model can replace
// them without changing the Scorer contract.
package score

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/cwbudde/algo-eeg/dsp/core"
	"github.com/cwbudde/algo-eeg/eeg/bands"
)

// RandomSource yields uniform values in [0, 1).
type RandomSource interface {
	Float64() float64
}

// LockedRand is a RandomSource safe for concurrent use.
type LockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewLockedRand returns a PCG-backed source seeded with seed.
func NewLockedRand(seed uint64) *LockedRand {
	return &LockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Float64 returns the next draw in [0, 1).
func (l *LockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// BaselineEstimator produces the starting probability for a recording.
type BaselineEstimator interface {
	Baseline(p bands.Power) float64
	Name() string
}

// EscalationRule may replace the baseline probability. It reports whether it
// fired.
type EscalationRule interface {
	Escalate(p bands.Power, prob float64) (float64, bool)
	Name() string
}

// UniformBaseline draws uniformly from [Low, High]. It is a placeholder for a
// real estimate.
type UniformBaseline struct {
	Low, High float64
	Rand      RandomSource
}

// Baseline ignores the band powers and draws from [Low, High].
func (u UniformBaseline) Baseline(bands.Power) float64 {
	return u.Low + (u.High-u.Low)*u.Rand.Float64()
}

// Name identifies the range, for policy versions.
func (u UniformBaseline) Name() string {
	return fmt.Sprintf("uniform[%.2f,%.2f]", u.Low, u.High)
}

// BetaAlphaRatio fires when beta exceeds Ratio times alpha and redraws the
// probability uniformly from [Low, High].
type BetaAlphaRatio struct {
	Ratio     float64
	Low, High float64
	Rand      RandomSource
}

// Escalate redraws prob when beta dominates alpha by Ratio.
func (b BetaAlphaRatio) Escalate(p bands.Power, prob float64) (float64, bool) {
	if p.Beta > b.Ratio*p.Alpha {
		return b.Low + (b.High-b.Low)*b.Rand.Float64(), true
	}
	return prob, false
}

// Name identifies the rule and its range, for policy versions.
func (b BetaAlphaRatio) Name() string {
	return fmt.Sprintf("beta>%gxalpha[%.2f,%.2f]", b.Ratio, b.Low, b.High)
}

// Assessment is the scorer output for one recording.
type Assessment struct {
	Probability float64
	Summary     string
	Escalated   bool
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithBaseline replaces the baseline estimator.
func WithBaseline(b BaselineEstimator) Option {
	return func(s *Scorer) { s.baseline = b }
}

// WithEscalation replaces the escalation rule. A nil rule disables escalation.
func WithEscalation(r EscalationRule) Option {
	return func(s *Scorer) {
		s.escalation = r
		s.escalationSet = true
	}
}

// WithRandomSource sets the source used by the default policies.
func WithRandomSource(r RandomSource) Option {
	return func(s *Scorer) { s.rand = r }
}

// WithVersion overrides the reported policy version.
func WithVersion(v string) Option {
	return func(s *Scorer) { s.version = v }
}

// Scorer applies a baseline and an escalation rule to band powers. It is safe
// for concurrent use when its policies are.
type Scorer struct {
	baseline      BaselineEstimator
	escalation    EscalationRule
	escalationSet bool
	rand          RandomSource
	version       string
}

// New returns a Scorer with the placeholder policies: a uniform 0.01-0.15
// baseline and a 0.75-0.99 redraw when beta > 3*alpha.
func New(opts ...Option) *Scorer {
	s := &Scorer{}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.rand == nil {
		s.rand = NewLockedRand(rand.Uint64())
	}
	if s.baseline == nil {
		s.baseline = UniformBaseline{Low: 0.01, High: 0.15, Rand: s.rand}
	}
	if !s.escalationSet {
		s.escalation = BetaAlphaRatio{Ratio: 3, Low: 0.75, High: 0.99, Rand: s.rand}
	}
	return s
}

// Version identifies the policy pair and is stamped on results.
func (s *Scorer) Version() string {
	if s.version != "" {
		return s.version
	}
	if s.escalation == nil {
		return "heuristic/" + s.baseline.Name()
	}
	return "heuristic/" + s.baseline.Name() + "+" + s.escalation.Name()
}

// Score assesses p. The probability is always clamped to [0, 1].
func (s *Scorer) Score(p bands.Power) Assessment {
	prob := s.baseline.Baseline(p)
	escalated := false
	if s.escalation != nil {
		prob, escalated = s.escalation.Escalate(p, prob)
	}
	prob = core.Clamp(prob, 0, 1)
	return Assessment{
		Probability: prob,
		Summary:     Summary(prob, p),
		Escalated:   escalated,
	}
}

// Summary renders the interpretation text. The headline is chosen by the
// first matching severity; the alpha clause always follows and a beta clause
// is appended when beta exceeds alpha.
func Summary(prob float64, p bands.Power) string {
	var b strings.Builder
	switch {
	case prob > 0.7:
		b.WriteString("Findings suggest high-risk epileptiform activity; urgent clinical review is recommended.")
	case prob > 0.3:
		b.WriteString("Findings show moderate asynchrony; follow-up monitoring is advised.")
	default:
		b.WriteString("Findings are consistent with normal rhythmic activity.")
	}
	fmt.Fprintf(&b, " Dominant alpha power: %.2f.", p.Alpha)
	if p.Beta > p.Alpha {
		b.WriteString(" Elevated beta activity may reflect tension or a medication effect.")
	}
	return b.String()
}
