package hoselect

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurveFractions(t *testing.T) {
	fractions := CurveFractions(20, 5)

	require.Len(t, fractions, 17)
	assert.Equal(t, 0.2, fractions[0])
	assert.Equal(t, 1.0, fractions[len(fractions)-1])
	for i := 1; i < len(fractions); i++ {
		assert.Greater(t, fractions[i], fractions[i-1])
		assert.InDelta(t, 0.05, fractions[i]-fractions[i-1], 1e-9)
	}

	// A step that misses 100 still ends on the full set.
	assert.Equal(t, []float64{0.3, 0.7, 1}, CurveFractions(30, 40))
}

func TestCurveEvaluator(t *testing.T) {
	ds := testDataset(t)

	evaluator, err := NewCurveEvaluator(ds, rankingFactory, testConfig())
	require.NoError(t, err)

	res, err := evaluator.Evaluate(context.Background(), cfgAB(1, "x"))
	require.NoError(t, err)

	assert.Equal(t, StateReported, res.State)

	curve := res.Curve
	require.Len(t, curve.Fractions, 17)
	assert.Len(t, curve.TrainScores, 17)
	assert.Len(t, curve.TestScores, 17)
	assert.Equal(t, 20, curve.Sizes[0])
	assert.Equal(t, ds.Train().Len(), curve.Sizes[len(curve.Sizes)-1])

	m := res.Metrics
	assert.Equal(t, 1.0, m.AccuracyTest)
	assert.Equal(t, 1.0, m.F1Train)
	require.NotNil(t, m.AUC)
	assert.GreaterOrEqual(t, *m.AUC, 0.0)
	assert.LessOrEqual(t, *m.AUC, 1.0)
	assert.Equal(t, 1.0, *m.AUC)
	assert.Empty(t, res.AUCError)
	require.NotNil(t, res.ROC)

	assert.Equal(t, ConfusionMatrix{{20, 0}, {0, 20}}, res.Confusion)
}

func TestCurveEvaluatorUnsupportedAUC(t *testing.T) {
	evaluator, err := NewCurveEvaluator(testDataset(t), thresholdFactory, testConfig())
	require.NoError(t, err)

	res, err := evaluator.Evaluate(context.Background(), cfgAB(2, "x"))
	require.NoError(t, err, "a missing AUC does not abort the report")

	assert.Equal(t, StateReported, res.State)
	assert.Nil(t, res.Metrics.AUC)
	assert.Nil(t, res.ROC)
	assert.Contains(t, res.AUCError, ErrUnsupportedEstimator.Error())

	// Threshold 0.6 misses the 4 test rows in [0.5, 0.6).
	assert.InDelta(t, 36.0/40, res.Metrics.AccuracyTest, 1e-12)
	assert.Equal(t, 1.0, res.Metrics.PrecisionTest)
}

func TestCurveEvaluatorSweepFailureAborts(t *testing.T) {
	// Fitting more than half of the training rows fails.
	factory := func(cfg Configuration, seed int64) (Estimator, error) {
		est, err := thresholdFactory(cfg, seed)
		if err != nil {
			return nil, err
		}

		return &fussyEstimator{Estimator: est, maxRows: 50}, nil
	}

	evaluator, err := NewCurveEvaluator(testDataset(t), factory, testConfig())
	require.NoError(t, err)

	res, err := evaluator.Evaluate(context.Background(), cfgAB(1, "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fraction 0.55")
	assert.Equal(t, StateFailed, res.State)
	assert.Empty(t, res.Curve.Fractions, "no partial curve is returned")
}

func TestCurveEvaluatorRejectsTinyTrainSet(t *testing.T) {
	ds, err := NewDataset([][]float64{{0}, {1}}, []int{0, 1}, [][]float64{{0}}, []int{0})
	require.NoError(t, err)

	evaluator, err := NewCurveEvaluator(ds, thresholdFactory, testConfig())
	require.NoError(t, err)

	_, err = evaluator.Evaluate(context.Background(), cfgAB(1, "x"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEvaluatorStateTransitions(t *testing.T) {
	assert.True(t, StateInit.canTransition(StateSweeping))
	assert.True(t, StateSweeping.canTransition(StateSweeping))
	assert.True(t, StateSweeping.canTransition(StateFinalFit))
	assert.True(t, StateFinalFit.canTransition(StateReported))
	assert.True(t, StateSweeping.canTransition(StateFailed))

	assert.False(t, StateInit.canTransition(StateFinalFit))
	assert.False(t, StateSweeping.canTransition(StateReported), "FINAL_FIT cannot be skipped")
	assert.False(t, StateReported.canTransition(StateFailed))

	text, err := StateFinalFit.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "FINAL_FIT", string(text))

	var s EvaluatorState
	require.NoError(t, s.UnmarshalText([]byte("REPORTED")))
	assert.Equal(t, StateReported, s)
}

type fussyEstimator struct {
	Estimator
	maxRows int
}

func (e *fussyEstimator) Fit(X [][]float64, y []int) error {
	if len(X) > e.maxRows {
		return errors.New("too many rows")
	}

	return e.Estimator.Fit(X, y)
}

func TestPipeline(t *testing.T) {
	for _, source := range []PoolSource{PoolFromSearch, PoolFromScreen} {
		t.Run(string(source), func(t *testing.T) {
			cfg := testConfig()
			cfg.PoolSource = source

			p, err := NewPipeline(testDataset(t), failingOn(rankingFactory, cfgAB(2, "y")), testSpace(t), cfg)
			require.NoError(t, err)

			res, err := p.Run(context.Background())
			require.NoError(t, err)

			assert.NotEmpty(t, res.Pool)
			assert.True(t, res.Selected().Equal(cfgAB(1, "x")))
			assert.Equal(t, StateReported, res.Evaluation.State)
			require.NotNil(t, res.Evaluation.Metrics.AUC)

			if source == PoolFromSearch {
				require.NotNil(t, res.Search)
				assert.Nil(t, res.Screen)
				assert.Len(t, res.Pool, cfg.Trials)
			} else {
				require.NotNil(t, res.Screen)
				assert.Nil(t, res.Search)
				assert.Len(t, res.Pool, 3)
			}
		})
	}
}

func TestPipelineEmptyPoolNeverReached(t *testing.T) {
	factory := func(Configuration, int64) (Estimator, error) {
		return nil, errors.New("broken")
	}

	p, err := NewPipeline(testDataset(t), factory, testSpace(t), testConfig())
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	assert.ErrorIs(t, err, ErrExhaustedSearchSpace)
}
