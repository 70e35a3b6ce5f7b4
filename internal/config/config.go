// Package config loads eegscan settings from built-in defaults, an optional
// TOML file and EEG__SECTION__KEY environment variables, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/cwbudde/algo-eeg/dsp/window"
	"github.com/cwbudde/algo-eeg/eeg/bands"
	"github.com/cwbudde/algo-eeg/eeg/condition"
	"github.com/cwbudde/algo-eeg/eeg/score"
	"github.com/cwbudde/algo-eeg/internal/logging"
)

// EnvPrefix starts every environment override, e.g. EEG__WORKERS__COUNT.
const EnvPrefix = "EEG"

// Config is the full eegscan configuration, one field per TOML table.
type Config struct {
	Log          LogConfig          `toml:"log"`
	Conditioning ConditioningConfig `toml:"conditioning"`
	Spectral     SpectralConfig     `toml:"spectral"`
	Scoring      ScoringConfig      `toml:"scoring"`
	Workers      WorkersConfig      `toml:"workers"`
	Sink         SinkConfig         `toml:"sink"`
}

// LogConfig selects the slog level and handler format.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ConditioningConfig configures the notch and band-pass stage.
type ConditioningConfig struct {
	// LineFrequency is the mains frequency to notch; 0 disables the notch.
	LineFrequency float64 `toml:"line_frequency"`
	MaxHarmonic   float64 `toml:"max_harmonic"`
	LowCut        float64 `toml:"low_cut"`
	HighCut       float64 `toml:"high_cut"`
	Window        string  `toml:"window"`
	Parallelism   int     `toml:"parallelism"`
}

// SpectralConfig configures Welch estimation and band aggregation.
type SpectralConfig struct {
	SegmentLength int     `toml:"segment_length"`
	Overlap       float64 `toml:"overlap"`
	Window        string  `toml:"window"`
	MinHz         float64 `toml:"min_hz"`
	MaxHz         float64 `toml:"max_hz"`
	ChannelPolicy string  `toml:"channel_policy"`
	HalfOpenBands bool    `toml:"half_open_bands"`
}

// ScoringConfig configures the scorer.
type ScoringConfig struct {
	// Seed fixes the placeholder policies' random source; 0 seeds randomly.
	Seed    uint64 `toml:"seed"`
	Version string `toml:"version"`
}

// WorkersConfig bounds the job pool.
type WorkersConfig struct {
	Count           int `toml:"count"`
	MaxSamples      int `toml:"max_samples"`
	WaitTimeoutSecs int `toml:"wait_timeout_secs"`
}

// SinkConfig chooses where job state is persisted.
type SinkConfig struct {
	// Kind is memory, sqlite or redis.
	Kind         string `toml:"kind"`
	SQLitePath   string `toml:"sqlite_path"`
	RedisAddr    string `toml:"redis_addr"`
	RedisPrefix  string `toml:"redis_prefix"`
	RedisTTLSecs int    `toml:"redis_ttl_secs"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Conditioning: ConditioningConfig{
			LineFrequency: condition.DefaultLineFrequency,
			MaxHarmonic:   condition.DefaultMaxHarmonic,
			LowCut:        condition.DefaultLowCut,
			HighCut:       condition.DefaultHighCut,
			Window:        "hamming",
			Parallelism:   1,
		},
		Spectral: SpectralConfig{
			SegmentLength: 256,
			Overlap:       0.5,
			Window:        "hamming",
			MinHz:         0.5,
			MaxHz:         40,
			ChannelPolicy: bands.AverageSpectra.String(),
		},
		Workers: WorkersConfig{Count: 2, MaxSamples: 64 * 256 * 3600, WaitTimeoutSecs: 600},
		Sink: SinkConfig{
			Kind:         "sqlite",
			SQLitePath:   "eegscan.db",
			RedisAddr:    "localhost:6379",
			RedisPrefix:  "eeg",
			RedisTTLSecs: 7 * 24 * 3600,
		},
	}
}

// Load builds a Config. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := Decode(data, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode merges TOML data into cfg. Unknown keys are rejected.
func Decode(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var sme *toml.StrictMissingError
		if errors.As(err, &sme) {
			return fmt.Errorf("config: %s", sme.String())
		}
		return fmt.Errorf("config: parse: %w", err)
	}
	return nil
}

// Encode renders cfg as TOML.
func Encode(cfg Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

// ApplyEnv overrides fields from variables named EEG__<SECTION>__<KEY>, where
// SECTION and KEY are the upper-cased TOML names.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	root := reflect.ValueOf(cfg).Elem()
	for i := range root.NumField() {
		section := root.Type().Field(i).Tag.Get("toml")
		sv := root.Field(i)
		for j := range sv.NumField() {
			key := sv.Type().Field(j).Tag.Get("toml")
			name := EnvPrefix + "__" + strings.ToUpper(section) + "__" + strings.ToUpper(key)
			raw, ok := lookup(name)
			if !ok {
				continue
			}
			if err := setField(sv.Field(j), strings.TrimSpace(raw)); err != nil {
				return fmt.Errorf("config: %s: %w", name, err)
			}
		}
	}
	return nil
}

func setField(f reflect.Value, raw string) error {
	switch f.Kind() {
	case reflect.String:
		f.SetString(raw)
	case reflect.Int:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		f.SetInt(int64(v))
	case reflect.Uint64:
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return err
		}
		f.SetUint(v)
	case reflect.Float64:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		f.SetFloat(v)
	case reflect.Bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		f.SetBool(v)
	default:
		return fmt.Errorf("unsupported kind %s", f.Kind())
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	_, err := logging.ParseLevel(c.Log.Level)
	check(err == nil, "log.level: unknown level %q", c.Log.Level)
	check(c.Log.Format == "text" || c.Log.Format == "json", "log.format: want text or json, got %q", c.Log.Format)

	cc := c.Conditioning
	check(cc.LineFrequency >= 0, "conditioning.line_frequency: must be >= 0")
	check(cc.LineFrequency == 0 || cc.MaxHarmonic >= cc.LineFrequency,
		"conditioning.max_harmonic: must be >= line_frequency")
	check(cc.LowCut > 0 && cc.HighCut > cc.LowCut, "conditioning: need 0 < low_cut < high_cut")
	_, err = window.ParseType(cc.Window)
	check(err == nil, "conditioning.window: unknown window %q", cc.Window)
	check(cc.Parallelism >= 1, "conditioning.parallelism: must be >= 1")

	sc := c.Spectral
	check(sc.SegmentLength >= 8, "spectral.segment_length: must be >= 8")
	check(sc.Overlap >= 0 && sc.Overlap < 1, "spectral.overlap: must be in [0, 1)")
	_, err = window.ParseType(sc.Window)
	check(err == nil, "spectral.window: unknown window %q", sc.Window)
	check(sc.MinHz >= 0 && sc.MaxHz > sc.MinHz, "spectral: need 0 <= min_hz < max_hz")
	_, err = bands.ParseChannelPolicy(sc.ChannelPolicy)
	check(err == nil, "spectral.channel_policy: unknown policy %q", sc.ChannelPolicy)

	check(c.Workers.Count >= 1, "workers.count: must be >= 1")
	check(c.Workers.MaxSamples >= 0, "workers.max_samples: must be >= 0")
	check(c.Workers.WaitTimeoutSecs >= 0, "workers.wait_timeout_secs: must be >= 0")

	switch c.Sink.Kind {
	case "memory":
	case "sqlite":
		check(c.Sink.SQLitePath != "", "sink.sqlite_path: required for sqlite sink")
	case "redis":
		check(c.Sink.RedisAddr != "", "sink.redis_addr: required for redis sink")
		check(c.Sink.RedisTTLSecs >= 0, "sink.redis_ttl_secs: must be >= 0")
	default:
		errs = append(errs, fmt.Errorf("sink.kind: want memory, sqlite or redis, got %q", c.Sink.Kind))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Conditioner builds the signal conditioner described by c.
func (c Config) Conditioner() (*condition.Conditioner, error) {
	w, err := window.ParseType(c.Conditioning.Window)
	if err != nil {
		return nil, err
	}
	return condition.New(
		condition.WithLineFrequency(c.Conditioning.LineFrequency),
		condition.WithMaxHarmonic(c.Conditioning.MaxHarmonic),
		condition.WithPassband(c.Conditioning.LowCut, c.Conditioning.HighCut),
		condition.WithWindow(w),
		condition.WithParallelism(c.Conditioning.Parallelism),
	)
}

// Estimator builds the band-power estimator described by c.
func (c Config) Estimator() (*bands.Estimator, error) {
	w, err := window.ParseType(c.Spectral.Window)
	if err != nil {
		return nil, err
	}
	policy, err := bands.ParseChannelPolicy(c.Spectral.ChannelPolicy)
	if err != nil {
		return nil, err
	}
	opts := []bands.Option{
		bands.WithRange(c.Spectral.MinHz, c.Spectral.MaxHz),
		bands.WithSegmentLength(c.Spectral.SegmentLength),
		bands.WithOverlap(c.Spectral.Overlap),
		bands.WithWindow(w),
		bands.WithChannelPolicy(policy),
	}
	if c.Spectral.HalfOpenBands {
		opts = append(opts, bands.WithHalfOpenBands())
	}
	return bands.New(opts...)
}

// Scorer builds the clinical scorer described by c.
func (c Config) Scorer() *score.Scorer {
	var opts []score.Option
	if c.Scoring.Seed != 0 {
		opts = append(opts, score.WithRandomSource(score.NewLockedRand(c.Scoring.Seed)))
	}
	if c.Scoring.Version != "" {
		opts = append(opts, score.WithVersion(c.Scoring.Version))
	}
	return score.New(opts...)
}
