package hoselect

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidates(means, stds []float64) []Candidate {
	out := make([]Candidate, len(means))
	for i := range means {
		out[i] = Candidate{PoolIndex: i, Mean: means[i], Std: stds[i]}
	}

	return out
}

func TestSelectStable(t *testing.T) {
	tests := []struct {
		name         string
		means, stds  []float64
		wantSelected int
		wantStable   []int
		wantFellBack bool
	}{
		{
			name:         "low variance beats higher mean",
			means:        []float64{0.91, 0.88},
			stds:         []float64{0.01, 0.05},
			wantSelected: 0,
			wantStable:   []int{0},
		},
		{
			name:         "equal means keep pool order",
			means:        []float64{0.9, 0.9, 0.9, 0.9},
			stds:         []float64{0.02, 0.02, 0.10, 0.10},
			wantSelected: 0,
			wantStable:   []int{0, 1},
		},
		{
			name:         "best stable mean wins",
			means:        []float64{0.80, 0.95, 0.85, 0.99},
			stds:         []float64{0.01, 0.09, 0.01, 0.08},
			wantSelected: 2,
			wantStable:   []int{0, 2},
		},
		{
			name:         "single candidate",
			means:        []float64{0.5},
			stds:         []float64{0.3},
			wantSelected: 0,
			wantStable:   []int{0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := SelectStable(candidates(tt.means, tt.stds), 25)
			require.NoError(t, err)

			assert.Equal(t, tt.wantSelected, p.Selected)
			assert.Equal(t, tt.wantStable, p.Stable)
			assert.Equal(t, tt.wantFellBack, p.FellBack)
			assert.Equal(t, len(tt.means), len(p.Stable)+len(p.Unstable))
			assert.LessOrEqual(t, tt.stds[p.Selected], p.Threshold)
		})
	}
}

func TestSelectStableFallback(t *testing.T) {
	// A NaN threshold leaves nothing stable.
	cands := candidates([]float64{0.7, 0.9, 0.9}, []float64{0.01, 0.02, 0.03})
	cands[0].Std = math.NaN()

	p, err := SelectStable(cands, 25)
	require.NoError(t, err)

	assert.True(t, p.FellBack)
	assert.Empty(t, p.Stable)
	assert.Equal(t, 1, p.Selected, "global arg-max by mean, first occurrence")
}

func TestSelectStableDeterministic(t *testing.T) {
	cands := candidates([]float64{0.8, 0.81, 0.79, 0.8, 0.83}, []float64{0.03, 0.01, 0.02, 0.01, 0.05})

	a, err := SelectStable(cands, 25)
	require.NoError(t, err)
	b, err := SelectStable(cands, 25)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestSelectStableEmpty(t *testing.T) {
	_, err := SelectStable(nil, 25)
	assert.ErrorIs(t, err, ErrEmptyPool)
}

func TestStabilityAnalyzer(t *testing.T) {
	bad := cfgAB(2, "y")
	var calls int64

	factory := countingFactory(failingOn(thresholdFactory, bad), &calls)

	analyzer, err := NewStabilityAnalyzer(testDataset(t), factory, testConfig())
	require.NoError(t, err)

	pool := []Configuration{cfgAB(2, "x"), cfgAB(1, "x"), bad, cfgAB(2, "x"), cfgAB(1, "y")}

	report, err := analyzer.Analyze(context.Background(), pool)
	require.NoError(t, err)

	// The duplicate is kept but cross-validated once: 4 distinct x 5 folds.
	assert.Equal(t, int64(20), calls)

	require.Len(t, report.Candidates, 4)
	assert.Equal(t, []int{0, 1, 3, 4}, []int{
		report.Candidates[0].PoolIndex,
		report.Candidates[1].PoolIndex,
		report.Candidates[2].PoolIndex,
		report.Candidates[3].PoolIndex,
	})
	assert.Equal(t, report.Candidates[0].Scores, report.Candidates[2].Scores)

	require.Len(t, report.Failed, 1)
	assert.True(t, report.Failed[0].Config.Equal(bad))

	// {A:1,B:x} is perfect on every fold: std 0, mean 1.
	selected := report.SelectedCandidate()
	assert.True(t, selected.Config.Equal(cfgAB(1, "x")))
	assert.Equal(t, 1.0, selected.Mean)
	assert.Equal(t, 0.0, selected.Std)
	assert.False(t, report.FellBack)
	assert.Equal(t, int64(51), report.FoldSeed)

	again, err := analyzer.Analyze(context.Background(), pool)
	require.NoError(t, err)
	assert.Equal(t, report.Partition, again.Partition)
}

func TestStabilityAnalyzerEmptyPool(t *testing.T) {
	var calls int64

	analyzer, err := NewStabilityAnalyzer(testDataset(t), countingFactory(thresholdFactory, &calls), testConfig())
	require.NoError(t, err)

	_, err = analyzer.Analyze(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyPool)
	assert.Zero(t, calls)
}

func TestStabilityAnalyzerAllFail(t *testing.T) {
	bad := cfgAB(2, "y")

	analyzer, err := NewStabilityAnalyzer(testDataset(t), failingOn(thresholdFactory, bad), testConfig())
	require.NoError(t, err)

	_, err = analyzer.Analyze(context.Background(), []Configuration{bad})
	assert.ErrorIs(t, err, ErrExhaustedSearchSpace)
}
