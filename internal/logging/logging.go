// Package logging builds the zap loggers used by the CLI and defines the
// attribute keys shared by every component.
//
// Keys follow a hierarchical naming convention ("model.config",
// "metrics.mean") so logs from a run can be filtered per concern.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Model and operation context.
const (
	// ModelFamilyKey identifies the estimator family, e.g. "glvq".
	ModelFamilyKey = "model.family"

	// ConfigKey holds a configuration rendered as "{name=value,...}".
	ConfigKey = "model.config"

	// PhaseKey is the pipeline stage: search, screen, stability, curve.
	PhaseKey = "ml.phase"

	// RunIDKey identifies one pipeline run.
	RunIDKey = "run.id"
)

// Search and cross-validation.
const (
	TrialKey     = "search.trial"
	SeedKey      = "search.seed"
	AttemptKey   = "search.attempt"
	EvaluatedKey = "search.evaluated"
	FailedKey    = "search.failed"
	FoldsKey     = "cv.folds"
	FoldSeedKey  = "cv.fold_seed"
)

// Metrics.
const (
	MetricKey    = "metrics.name"
	MeanKey      = "metrics.mean"
	StdKey       = "metrics.std"
	ThresholdKey = "metrics.threshold"
	FractionKey  = "curve.fraction"
	ElapsedKey   = "duration"
)

// Data preparation.
const (
	SamplesKey  = "data.samples"
	RemovedKey  = "data.removed"
	FeaturesKey = "data.features"
	TrainKey    = "data.train"
	TestKey     = "data.test"
)

// Output formats accepted by New.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// New builds a logger writing to stderr at level ("debug", "info", "warn",
// "error"). Format "json" uses zap's production encoder, "console" the
// development one.
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	var cfg zap.Config
	switch format {
	case FormatJSON, "":
		cfg = zap.NewProductionConfig()
	case FormatConsole:
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("log format: unknown %q", format)
	}

	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return logger, nil
}
