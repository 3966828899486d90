// Package result lays out run directories and reads and writes the JSON
// artifacts of a pipeline run.
package result

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/thalesfsp/hoselect"
	"github.com/thalesfsp/hoselect/internal/schema"
)

// LatestLink is the symlink in the results directory pointing at the most
// recent run.
const LatestLink = "latest"

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.New().String() }

// CreateRunDir creates baseDir/<UTC timestamp> and points baseDir/latest at
// it. It returns the absolute run directory.
func CreateRunDir(baseDir string) (string, error) {
	stamp := time.Now().UTC().Format("2006-01-02T15-04-05.000")
	runDir, err := filepath.Abs(filepath.Join(baseDir, stamp))
	if err != nil {
		return "", fmt.Errorf("resolving run dir: %w", err)
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("creating run dir: %w", err)
	}

	latest := filepath.Join(baseDir, LatestLink)
	os.Remove(latest)
	if err := os.Symlink(runDir, latest); err != nil {
		return "", fmt.Errorf("creating latest symlink: %w", err)
	}

	return runDir, nil
}

type artifact struct {
	name string
	v    any
}

// Write stores every artifact of res in runDir. The metrics report is
// validated against its schema before anything is written.
func Write(runDir string, meta Meta, res *hoselect.PipelineResult) error {
	if err := schema.Check(schema.Metrics, res.Evaluation.Metrics); err != nil {
		return fmt.Errorf("metrics report: %w", err)
	}

	meta.Selected = res.Selected()
	meta.State = res.Evaluation.State

	artifacts := []artifact{
		{MetaFile, meta},
		{FrequenciesFile, hoselect.ParamFrequencies(res.Pool)},
		{StabilityFile, NewStability(res.Stability)},
		{CurveFile, Curve{Config: res.Evaluation.Config, Metric: res.Evaluation.Metric, LearningCurve: res.Evaluation.Curve}},
		{ConfusionFile, NewConfusion(res.Evaluation.Confusion)},
	}
	if res.Search != nil {
		artifacts = append(artifacts, artifact{TrialsFile, res.Search.Trials})
	}
	if res.Screen != nil {
		artifacts = append(artifacts, artifact{ScreenFile, res.Screen})
	}
	if res.Evaluation.ROC != nil {
		artifacts = append(artifacts, artifact{ROCFile, res.Evaluation.ROC})
	}

	for _, a := range artifacts {
		if err := WriteJSON(runDir, a.name, a.v); err != nil {
			return err
		}
	}

	return WriteMetrics(runDir, res.Evaluation.Metrics)
}

// WriteMetrics writes metrics.json. The report is validated first and the
// file is never overwritten.
func WriteMetrics(runDir string, m hoselect.MetricsReport) error {
	if err := schema.Check(schema.Metrics, m); err != nil {
		return fmt.Errorf("metrics report: %w", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", MetricsFile, err)
	}

	f, err := os.OpenFile(filepath.Join(runDir, MetricsFile), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", MetricsFile, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", MetricsFile, err)
	}

	return f.Close()
}

// WriteJSON writes v as indented JSON to runDir/name.
func WriteJSON(runDir, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", name, err)
	}

	return os.WriteFile(filepath.Join(runDir, name), data, 0o644)
}

// ReadJSON decodes runDir/name into v.
func ReadJSON(runDir, name string, v any) error {
	data, err := os.ReadFile(filepath.Join(runDir, name))
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}

	return nil
}

// Read loads every artifact of the run in runDir.
func Read(runDir string) (*Bundle, error) {
	b := &Bundle{Dir: runDir}

	required := []artifact{
		{MetaFile, &b.Meta},
		{FrequenciesFile, &b.Frequencies},
		{StabilityFile, &b.Stability},
		{CurveFile, &b.Curve},
		{ConfusionFile, &b.Confusion},
		{MetricsFile, &b.Metrics},
	}
	for _, a := range required {
		if err := ReadJSON(runDir, a.name, a.v); err != nil {
			return nil, err
		}
	}

	optional := []artifact{
		{TrialsFile, &b.Trials},
		{ScreenFile, &b.Screen},
		{ROCFile, &b.ROC},
	}
	for _, a := range optional {
		if err := ReadJSON(runDir, a.name, a.v); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return b, nil
}

// Collect reads the run in dir, or, when dir is a results directory, every
// run below it ordered by start time. The latest symlink is not followed.
func Collect(dir string) ([]*Bundle, error) {
	if _, err := os.Stat(filepath.Join(dir, MetaFile)); err == nil {
		b, err := Read(dir)
		if err != nil {
			return nil, err
		}

		return []*Bundle{b}, nil
	}

	var bundles []*Bundle
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != MetaFile {
			return nil
		}

		b, err := Read(filepath.Dir(path))
		if err != nil {
			return fmt.Errorf("run %s: %w", filepath.Dir(path), err)
		}
		bundles = append(bundles, b)

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(bundles, func(i, j int) bool {
		return bundles[i].Meta.StartedAt.Before(bundles[j].Meta.StartedAt)
	})

	return bundles, nil
}
