// Package config loads the hoselect YAML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/thalesfsp/hoselect"
	"github.com/thalesfsp/hoselect/internal/hash"
	"github.com/thalesfsp/hoselect/internal/schema"
)

// ErrInvalid is wrapped by every error caused by the file's content rather
// than by reading it.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Data      Data             `yaml:"data" json:"data"`
	Search    Search           `yaml:"search" json:"search"`
	Space     map[string][]any `yaml:"space" json:"space"`
	Stability Stability        `yaml:"stability" json:"stability"`
	Curve     Curve            `yaml:"curve" json:"curve"`
	Output    Output           `yaml:"output" json:"output"`
	Log       Log              `yaml:"log" json:"log"`
}

type Data struct {
	// Path of the CSV file. Relative paths are resolved against the
	// directory of the configuration file.
	Path        string  `yaml:"path" json:"path"`
	LabelColumn string  `yaml:"label_column" json:"label_column"`
	Filter      *Range  `yaml:"filter" json:"filter,omitempty"`
	TestSize    float64 `yaml:"test_size" json:"test_size"`
	SplitSeed   int64   `yaml:"split_seed" json:"split_seed"`
	Scale       bool    `yaml:"scale" json:"scale"`
}

// Range bounds every feature value of a kept row, inclusive.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

type Search struct {
	Metric         string `yaml:"metric" json:"metric"`
	Trials         int    `yaml:"trials" json:"trials"`
	Iterations     int    `yaml:"iterations" json:"iterations"`
	Folds          int    `yaml:"folds" json:"folds"`
	Seed           int64  `yaml:"seed" json:"seed"`
	Strategy       string `yaml:"strategy" json:"strategy"`
	Acquisition    string `yaml:"acquisition" json:"acquisition"`
	VaryTrialFolds bool   `yaml:"vary_trial_folds" json:"vary_trial_folds"`
	MaxRetries     int    `yaml:"max_retries" json:"max_retries"`

	// Workers of 0 means one per CPU.
	Workers    int    `yaml:"workers" json:"workers"`
	PoolSource string `yaml:"pool_source" json:"pool_source"`
	TopK       int    `yaml:"top_k" json:"top_k"`
}

type Stability struct {
	Percentile float64 `yaml:"percentile" json:"percentile"`
}

type Curve struct {
	StartPercent int `yaml:"start_percent" json:"start_percent"`
	StepPercent  int `yaml:"step_percent" json:"step_percent"`
}

type Output struct {
	ResultsDir string `yaml:"results_dir" json:"results_dir"`

	// CheckpointDB is the SQLite file search progress is saved to. Empty
	// disables checkpointing.
	CheckpointDB string `yaml:"checkpoint_db" json:"checkpoint_db"`
}

type Log struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Default returns the configuration every loaded file is decoded onto, so
// any key the file leaves out keeps its value from here.
func Default() Config {
	lib := hoselect.DefaultConfig()

	return Config{
		Data: Data{
			LabelColumn: "label",
			TestSize:    0.2,
			SplitSeed:   lib.Seed,
			Scale:       true,
		},
		Search: Search{
			Metric:      lib.Metric,
			Trials:      lib.Trials,
			Iterations:  lib.Iterations,
			Folds:       lib.Folds,
			Seed:        lib.Seed,
			Strategy:    string(lib.Strategy),
			Acquisition: lib.Bayesian.Acquisition,
			MaxRetries:  lib.MaxRetries,
			PoolSource:  string(lib.PoolSource),
			TopK:        lib.TopK,
		},
		Stability: Stability{Percentile: lib.StabilityPercentile},
		Curve: Curve{
			StartPercent: lib.CurveStartPercent,
			StepPercent:  lib.CurveStepPercent,
		},
		Output: Output{ResultsDir: "runs"},
		Log:    Log{Level: "info", Format: "console"},
	}
}

// Load reads path, validates it against the embedded schema and decodes it
// onto Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", ErrInvalid, path, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s is empty", ErrInvalid, path)
	}
	if err := schema.Check(schema.Config, doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, path, err)
	}

	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", ErrInvalid, path, err)
	}

	if cfg.Data.Path != "" && !filepath.IsAbs(cfg.Data.Path) {
		cfg.Data.Path = filepath.Join(filepath.Dir(path), cfg.Data.Path)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, path, err)
	}

	return &cfg, nil
}

// Library returns the hoselect.Config the file describes. Logger and
// ProgressChan are left for the caller.
func (c *Config) Library() hoselect.Config {
	lib := hoselect.DefaultConfig()

	lib.Metric = c.Search.Metric
	lib.Folds = c.Search.Folds
	lib.Iterations = c.Search.Iterations
	lib.Trials = c.Search.Trials
	lib.Seed = c.Search.Seed
	lib.Strategy = hoselect.Strategy(c.Search.Strategy)
	lib.Bayesian.Acquisition = c.Search.Acquisition
	lib.VaryTrialFolds = c.Search.VaryTrialFolds
	lib.MaxRetries = c.Search.MaxRetries
	lib.PoolSource = hoselect.PoolSource(c.Search.PoolSource)
	lib.TopK = c.Search.TopK
	lib.StabilityPercentile = c.Stability.Percentile
	lib.CurveStartPercent = c.Curve.StartPercent
	lib.CurveStepPercent = c.Curve.StepPercent

	if c.Search.Workers > 0 {
		lib.Workers = c.Search.Workers
	}

	return lib
}

// SearchSpace builds the hyperparameter grid of the space section.
func (c *Config) SearchSpace() (*hoselect.SearchSpace, error) {
	return hoselect.NewSearchSpace(c.Space)
}

// SearchKey fingerprints everything that determines the outcome of the
// search trials. Settings that only change how fast they run, or what
// happens after them, do not change the key. Trial i depends only on i, so
// the trial count is left out and a longer search extends a shorter one.
func (c *Config) SearchKey() (string, error) {
	search := c.Search
	search.Trials = 0
	search.Workers = 0
	search.PoolSource = ""
	search.TopK = 0

	return hash.Fingerprint(struct {
		Data   Data             `json:"data"`
		Search Search           `json:"search"`
		Space  map[string][]any `json:"space"`
	}{c.Data, search, c.Space})
}

func validate(cfg *Config) error {
	if cfg.Data.Path == "" {
		return fmt.Errorf("data.path is required")
	}
	if cfg.Data.LabelColumn == "" {
		return fmt.Errorf("data.label_column must not be empty")
	}
	if f := cfg.Data.Filter; f != nil && f.Min > f.Max {
		return fmt.Errorf("data.filter: min %g is above max %g", f.Min, f.Max)
	}
	if len(cfg.Space) == 0 {
		return fmt.Errorf("space must name at least one hyperparameter")
	}
	if _, err := cfg.SearchSpace(); err != nil {
		return fmt.Errorf("space: %w", err)
	}
	if cfg.Output.ResultsDir == "" {
		cfg.Output.ResultsDir = "runs"
	}

	return nil
}
