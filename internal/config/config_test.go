package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalesfsp/hoselect"
	"github.com/thalesfsp/hoselect/internal/config"
	"github.com/thalesfsp/hoselect/internal/schema"
)

func TestLoadMinimal(t *testing.T) {
	cfg, err := config.Load("testdata/minimal.yaml")
	require.NoError(t, err)

	want := config.Default()
	want.Data.Path = "/data/eeg.csv"
	want.Space = map[string][]any{"solver_type": {"sgd", "adam"}}
	assert.Equal(t, want, *cfg)

	lib := cfg.Library()
	assert.Equal(t, hoselect.MetricAccuracy, lib.Metric)
	assert.Equal(t, 5, lib.Folds)
	assert.Equal(t, int64(51), lib.Seed)
	assert.Equal(t, runtime.NumCPU(), lib.Workers)
	assert.Equal(t, hoselect.StrategyRandom, lib.Strategy)
	assert.Equal(t, hoselect.PoolFromSearch, lib.PoolSource)
}

func TestLoadFull(t *testing.T) {
	cfg, err := config.Load("testdata/full.yaml")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("testdata", "eeg.csv"), cfg.Data.Path)
	assert.Equal(t, "eyeDetection", cfg.Data.LabelColumn)
	require.NotNil(t, cfg.Data.Filter)
	assert.Equal(t, config.Range{Min: 3000, Max: 6000}, *cfg.Data.Filter)
	assert.True(t, cfg.Data.Scale, "scale keeps its default")
	assert.Equal(t, "checkpoints.db", cfg.Output.CheckpointDB)
	assert.Equal(t, config.Log{Level: "debug", Format: "json"}, cfg.Log)

	lib := cfg.Library()
	assert.Equal(t, hoselect.MetricF1, lib.Metric)
	assert.Equal(t, 10, lib.Trials)
	assert.Equal(t, 15, lib.Iterations)
	assert.Equal(t, 4, lib.Workers)
	assert.Equal(t, 2, lib.MaxRetries)
	assert.Equal(t, hoselect.StrategyBayesian, lib.Strategy)
	assert.Equal(t, hoselect.AcquisitionEI, lib.Bayesian.Acquisition)
	assert.Equal(t, hoselect.PoolFromScreen, lib.PoolSource)
	assert.Equal(t, 10, lib.TopK)
	assert.Equal(t, 30.0, lib.StabilityPercentile)
	assert.Equal(t, 10, lib.CurveStartPercent)
	assert.Equal(t, 10, lib.CurveStepPercent)

	space, err := cfg.SearchSpace()
	require.NoError(t, err)
	assert.Equal(t, 2*4*3*2*2, space.Size())
}

func TestLoadErrors(t *testing.T) {
	_, err := config.Load("testdata/nonexistent.yaml")
	require.Error(t, err)
	assert.NotErrorIs(t, err, config.ErrInvalid)

	_, err = config.Load("testdata/unknown_section.yaml")
	assert.ErrorIs(t, err, config.ErrInvalid)
	assert.ErrorIs(t, err, schema.ErrInvalid)

	_, err = config.Load("testdata/bad_filter.yaml")
	assert.ErrorIs(t, err, config.ErrInvalid)
	assert.Contains(t, err.Error(), "data.filter")

	_, err = config.Load("testdata/duplicate_value.yaml")
	assert.ErrorIs(t, err, config.ErrInvalid)
	assert.ErrorIs(t, err, hoselect.ErrInvalidInput)
}

func TestLoadEmptyAndMalformed(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err := config.Load(empty)
	assert.ErrorIs(t, err, config.ErrInvalid)

	malformed := filepath.Join(dir, "malformed.yaml")
	require.NoError(t, os.WriteFile(malformed, []byte("data: [unclosed"), 0o644))
	_, err = config.Load(malformed)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestSearchKey(t *testing.T) {
	cfg, err := config.Load("testdata/full.yaml")
	require.NoError(t, err)

	key, err := cfg.SearchKey()
	require.NoError(t, err)

	same := *cfg
	same.Search.Workers = 1
	same.Search.PoolSource = "search"
	same.Search.TopK = 3
	same.Search.Trials = 40
	same.Stability.Percentile = 50
	sameKey, err := same.SearchKey()
	require.NoError(t, err)
	assert.Equal(t, key, sameKey)

	other := *cfg
	other.Search.Seed = 52
	otherKey, err := other.SearchKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, otherKey)
}
