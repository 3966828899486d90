package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalesfsp/hoselect"
	"github.com/thalesfsp/hoselect/internal/config"
	"github.com/thalesfsp/hoselect/internal/result"
)

// workspace writes a two-cluster CSV and a config pointing at it, and
// returns the config path and the results directory.
func workspace(t *testing.T, extra string) (string, string) {
	t.Helper()

	dir := t.TempDir()
	rng := rand.New(rand.NewSource(7))

	var csv strings.Builder
	csv.WriteString("f1,f2,eyeDetection\n")
	for i := 0; i < 120; i++ {
		label := i % 2
		centre := 4000.0
		if label == 1 {
			centre = 4400
		}
		fmt.Fprintf(&csv, "%.2f,%.2f,%d\n", centre+60*rng.NormFloat64(), centre+60*rng.NormFloat64(), label)
	}
	fmt.Fprintf(&csv, "9999,4000,1\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "eeg.csv"), []byte(csv.String()), 0o644))

	results := filepath.Join(dir, "runs")
	cfg := fmt.Sprintf(`data:
  path: eeg.csv
  label_column: eyeDetection
  filter: {min: 3000, max: 6000}
search:
  trials: 2
  iterations: 2
  folds: 3
  workers: 2
space:
  solver_type: [sgd, adam]
  step_size: [0.1, 0.05]
output:
  results_dir: %s
  checkpoint_db: %s
log:
  level: error
%s`, results, filepath.Join(dir, "checkpoints.db"), extra)

	path := filepath.Join(dir, "hoselect.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))

	return path, results
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := newRootCommand()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()

	return out.String(), err
}

func TestRunAndReport(t *testing.T) {
	cfgPath, results := workspace(t, "")

	out, err := execute(t, "--config", cfgPath, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "Run directory:")
	assert.Contains(t, out, "FRACTION")

	runs, err := result.Collect(results)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	run := runs[0]
	assert.Equal(t, hoselect.StateReported, run.Meta.State)
	assert.Equal(t, 1, run.Meta.Dataset.Filter.Removed)
	assert.NotEmpty(t, run.Meta.SearchKey)
	assert.Len(t, run.Trials, 2)
	assert.Len(t, run.Curve.Fractions, 17)
	assert.NotNil(t, run.Metrics.AUC, "GLVQ exposes a decision function")
	assert.GreaterOrEqual(t, run.Metrics.AccuracyTest, 0.9)

	out, err = execute(t, "--config", cfgPath, "report", "--format", "json")
	require.NoError(t, err)

	var summaries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, run.Meta.RunID, summaries[0]["run_id"])

	// The second run resumes the checkpointed search.
	_, err = execute(t, "--config", cfgPath, "run", "--trials", "3")
	require.NoError(t, err)

	out, err = execute(t, "--config", cfgPath, "report", "--all", "--format", "markdown")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "\n### "))

	out, err = execute(t, "--config", cfgPath, "checkpoints", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "sha256:")
}

func TestRunFromScreening(t *testing.T) {
	cfgPath, results := workspace(t, "")

	_, err := execute(t, "--config", cfgPath, "run", "--pool", "screen")
	require.NoError(t, err)

	runs, err := result.Collect(results)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "screen", runs[0].Meta.PoolSource)
	require.NotNil(t, runs[0].Screen)
	assert.Len(t, runs[0].Screen.Succeeded, 4)
	assert.Nil(t, runs[0].Trials)
}

func TestSearchCommand(t *testing.T) {
	cfgPath, _ := workspace(t, "")

	out, err := execute(t, "--config", cfgPath, "search", "--json")
	require.NoError(t, err)

	var res struct {
		Trials      []hoselect.TrialResult           `json:"trials"`
		Frequencies map[string][]hoselect.ValueCount `json:"frequencies"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Len(t, res.Trials, 2)
	assert.Contains(t, res.Frequencies, "solver_type")

	out, err = execute(t, "--config", cfgPath, "search")
	require.NoError(t, err)
	assert.Contains(t, out, "(2 resumed)")
	assert.Contains(t, out, "HYPERPARAMETER")
}

func TestScreenCommand(t *testing.T) {
	cfgPath, _ := workspace(t, "")

	out, err := execute(t, "--config", cfgPath, "screen", "--top", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "4 of 4 configurations succeeded")
	assert.Equal(t, 1, strings.Count(out, "\n2 "))
	assert.NotContains(t, out, "\n3 ")
}

func TestSpaceCommand(t *testing.T) {
	cfgPath, _ := workspace(t, "")

	out, err := execute(t, "--config", cfgPath, "space", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "4 configurations; each trial evaluates 2")
	assert.Contains(t, out, "{solver_type=sgd,step_size=0.05}")
}

func TestSpaceCommandRejectsBadValues(t *testing.T) {
	cfgPath, _ := workspace(t, "")

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	bad := strings.Replace(string(data), "[sgd, adam]", "[sgd, newton]", 1)
	require.NoError(t, os.WriteFile(cfgPath, []byte(bad), 0o644))

	_, err = execute(t, "--config", cfgPath, "space")
	require.Error(t, err)
	assert.Equal(t, exitInvalid, exitCode(err))
}

func TestExitCode(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "run")
	require.Error(t, err)
	assert.Equal(t, exitFailure, exitCode(err))

	cfgPath, _ := workspace(t, "plots: true\n")
	_, err = execute(t, "--config", cfgPath, "run")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalid)
	assert.Equal(t, exitInvalid, exitCode(err))

	assert.Equal(t, 3, exitCode(fmt.Errorf("wrapped: %w", cliError{code: 3, err: errors.New("x")})))
	assert.Equal(t, exitFailure, exitCode(errors.New("boom")))
}
