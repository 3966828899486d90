package hoselect

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// thresholdEstimator predicts 1 for rows whose first feature reaches
// threshold. Fit learns nothing, so scores depend only on the configuration
// and the fold membership.
type thresholdEstimator struct {
	threshold float64
}

func (e *thresholdEstimator) Fit(X [][]float64, y []int) error { return nil }

func (e *thresholdEstimator) Predict(X [][]float64) ([]int, error) {
	pred := make([]int, len(X))
	for i, row := range X {
		if row[0] >= e.threshold {
			pred[i] = 1
		}
	}

	return pred, nil
}

// rankingEstimator adds a decision function to thresholdEstimator.
type rankingEstimator struct {
	thresholdEstimator
}

func (e *rankingEstimator) DecisionFunction(X [][]float64) ([]float64, error) {
	scores := make([]float64, len(X))
	for i, row := range X {
		scores[i] = row[0] - e.threshold
	}

	return scores, nil
}

// thresholdOf maps the test space {A: [1, 2], B: [x, y]} to a threshold.
// {A:1,B:x} is the true decision boundary 0.5; every other configuration is
// worse.
func thresholdOf(cfg Configuration) (float64, error) {
	a, _, err := cfg.IntValue("A")
	if err != nil {
		return 0, err
	}
	b, _, err := cfg.StringValue("B")
	if err != nil {
		return 0, err
	}

	t := 0.5 + 0.1*float64(a-1)
	if b == "y" {
		t += 0.05
	}

	return t, nil
}

func thresholdFactory(cfg Configuration, _ int64) (Estimator, error) {
	t, err := thresholdOf(cfg)
	if err != nil {
		return nil, err
	}

	return &thresholdEstimator{threshold: t}, nil
}

func rankingFactory(cfg Configuration, _ int64) (Estimator, error) {
	t, err := thresholdOf(cfg)
	if err != nil {
		return nil, err
	}

	return &rankingEstimator{thresholdEstimator{threshold: t}}, nil
}

// failingOn wraps factory so that every fit of cfg fails.
func failingOn(factory EstimatorFactory, bad Configuration) EstimatorFactory {
	return func(cfg Configuration, seed int64) (Estimator, error) {
		if cfg.Equal(bad) {
			return nil, errors.New("fit exploded")
		}

		return factory(cfg, seed)
	}
}

// countingFactory counts factory calls.
func countingFactory(factory EstimatorFactory, calls *int64) EstimatorFactory {
	return func(cfg Configuration, seed int64) (Estimator, error) {
		atomic.AddInt64(calls, 1)

		return factory(cfg, seed)
	}
}

// testDataset has one feature x; the label is 1 exactly when x >= 0.5.
// Train holds 100 evenly spaced rows, test 40.
func testDataset(t *testing.T) *Dataset {
	t.Helper()

	build := func(n int, offset float64) ([][]float64, []int) {
		X := make([][]float64, n)
		y := make([]int, n)
		for i := range X {
			x := (float64(i) + offset) / float64(n)
			X[i] = []float64{x}
			if x >= 0.5 {
				y[i] = 1
			}
		}

		return X, y
	}

	trainX, trainY := build(100, 0)
	testX, testY := build(40, 0.5)

	ds, err := NewDataset(trainX, trainY, testX, testY)
	require.NoError(t, err)

	return ds
}

func testSpace(t *testing.T) *SearchSpace {
	t.Helper()

	space, err := NewSearchSpace(map[string][]any{
		"A": {1, 2},
		"B": {"x", "y"},
	})
	require.NoError(t, err)

	return space
}

func cfgAB(a int, b string) Configuration {
	return NewConfiguration(map[string]any{"A": a, "B": b})
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Trials = 2
	cfg.Iterations = 4
	cfg.Workers = 2

	return cfg
}
