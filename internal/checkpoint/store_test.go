package checkpoint

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalesfsp/hoselect"
)

func tempStore(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "checkpoints.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s, path
}

func trial(i int, step float64) hoselect.TrialResult {
	return hoselect.TrialResult{
		Trial:     i,
		Seed:      51 + int64(i),
		FoldSeed:  51,
		Config:    hoselect.NewConfiguration(map[string]any{"solver_type": "adam", "step_size": step}),
		Score:     0.75,
		Scores:    hoselect.ScoreVector{0.5, 0.75, 1},
		Metric:    hoselect.MetricAccuracy,
		Folds:     3,
		Evaluated: 4,
		Failures: []hoselect.Failure{{
			Config: hoselect.NewConfiguration(map[string]any{"solver_type": "sgd", "step_size": step}),
			Reason: "diverged",
		}},
		Elapsed: 1500 * time.Millisecond,
	}
}

func TestLoadMissing(t *testing.T) {
	s, _ := tempStore(t)

	state, err := s.Load(context.Background(), "sha256:none")
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	s, path := tempStore(t)

	want := hoselect.SearchState{
		Trials:  []hoselect.TrialResult{trial(0, 0.1), trial(1, 0.01)},
		Elapsed: 3 * time.Second,
	}
	require.NoError(t, s.Save(ctx, "k", want))

	got, err := s.Load(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Elapsed, got.Elapsed)
	require.Len(t, got.Trials, 2)
	for i := range want.Trials {
		assert.True(t, want.Trials[i].Config.Equal(got.Trials[i].Config))
		assert.True(t, want.Trials[i].Failures[0].Config.Equal(got.Trials[i].Failures[0].Config))
		assert.Equal(t, want.Trials[i].Scores, got.Trials[i].Scores)
		assert.Equal(t, want.Trials[i].Elapsed, got.Trials[i].Elapsed)
		assert.Equal(t, "diverged", got.Trials[i].Failures[0].Reason)
	}

	// A second connection sees the committed state.
	other, err := Open(path)
	require.NoError(t, err)
	defer other.Close()

	again, err := other.Load(ctx, "k")
	require.NoError(t, err)
	assert.Len(t, again.Trials, 2)
	assert.NotEqual(t, s.RunID(), other.RunID())
}

func TestSaveReplaces(t *testing.T) {
	ctx := context.Background()
	s, _ := tempStore(t)

	require.NoError(t, s.Save(ctx, "k", hoselect.SearchState{
		Trials: []hoselect.TrialResult{trial(0, 0.1), trial(1, 0.01), trial(2, 0.001)},
	}))
	require.NoError(t, s.Save(ctx, "k", hoselect.SearchState{
		Trials:  []hoselect.TrialResult{trial(0, 0.5)},
		Elapsed: time.Second,
	}))

	got, err := s.Load(ctx, "k")
	require.NoError(t, err)
	require.Len(t, got.Trials, 1)
	step, _, err := got.Trials[0].Config.FloatValue("step_size")
	require.NoError(t, err)
	assert.Equal(t, 0.5, step)
	assert.Equal(t, time.Second, got.Elapsed)
}

func TestListDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := tempStore(t)

	require.NoError(t, s.Save(ctx, "a", hoselect.SearchState{Trials: []hoselect.TrialResult{trial(0, 0.1)}}))
	require.NoError(t, s.Save(ctx, "b", hoselect.SearchState{}))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	byKey := map[string]Search{}
	for _, sr := range list {
		byKey[sr.Key] = sr
		assert.Equal(t, s.RunID(), sr.RunID)
		assert.False(t, sr.UpdatedAt.IsZero())
	}
	assert.Equal(t, 1, byKey["a"].Trials)
	assert.Equal(t, 0, byKey["b"].Trials)

	require.NoError(t, s.Delete(ctx, "a"))

	state, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, state)

	list, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// stump predicts 1 when the first feature reaches the configured cut.
type stump struct{ cut float64 }

func (s *stump) Fit([][]float64, []int) error { return nil }

func (s *stump) Predict(X [][]float64) ([]int, error) {
	out := make([]int, len(X))
	for i, x := range X {
		if x[0] >= s.cut {
			out[i] = 1
		}
	}

	return out, nil
}

func stumpFactory(cfg hoselect.Configuration, _ int64) (hoselect.Estimator, error) {
	cut, _, err := cfg.FloatValue("cut")
	if err != nil {
		return nil, err
	}

	return &stump{cut: cut}, nil
}

func TestSearcherResumesFromStore(t *testing.T) {
	ctx := context.Background()
	s, _ := tempStore(t)

	var (
		trainX, testX [][]float64
		trainY, testY []int
	)
	for i := 0; i < 60; i++ {
		x := float64(i) / 60
		trainX = append(trainX, []float64{x})
		trainY = append(trainY, map[bool]int{true: 1, false: 0}[x >= 0.5])
	}
	for i := 0; i < 20; i++ {
		x := (float64(i) + 0.5) / 20
		testX = append(testX, []float64{x})
		testY = append(testY, map[bool]int{true: 1, false: 0}[x >= 0.5])
	}

	ds, err := hoselect.NewDataset(trainX, trainY, testX, testY)
	require.NoError(t, err)

	space, err := hoselect.NewSearchSpace(map[string][]any{"cut": {0.3, 0.4, 0.5, 0.6}})
	require.NoError(t, err)

	cfg := hoselect.DefaultConfig()
	cfg.Trials = 3
	cfg.Iterations = 2
	cfg.Workers = 1

	run := func(trials int) hoselect.SearchResult {
		cfg.Trials = trials
		runner, err := hoselect.NewTrialRunner(ds, stumpFactory, space, cfg)
		require.NoError(t, err)

		res, err := hoselect.NewSearcher(runner).WithCheckpoint(s, "key").Run(ctx)
		require.NoError(t, err)

		return res
	}

	first := run(2)
	assert.Equal(t, 0, first.Resumed)
	assert.Len(t, first.Trials, 2)

	second := run(3)
	assert.Equal(t, 2, second.Resumed)
	require.Len(t, second.Trials, 3)
	for i := range first.Trials {
		assert.True(t, first.Trials[i].Config.Equal(second.Trials[i].Config))
		assert.Equal(t, first.Trials[i].Score, second.Trials[i].Score)
	}
}
