package hoselect

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScorers(t *testing.T) {
	yTrue := []int{1, 1, 1, 0, 0, 0}
	yPred := []int{1, 1, 0, 1, 0, 0}

	assert.InDelta(t, 4.0/6, Accuracy(yTrue, yPred), 1e-12)
	assert.InDelta(t, 2.0/3, Precision(yTrue, yPred), 1e-12)
	assert.InDelta(t, 2.0/3, Recall(yTrue, yPred), 1e-12)
	assert.InDelta(t, 2.0/3, F1(yTrue, yPred), 1e-12)

	cm := Confusion(yTrue, yPred)
	assert.Equal(t, 2, cm.TP())
	assert.Equal(t, 1, cm.FP())
	assert.Equal(t, 1, cm.FN())
	assert.Equal(t, 2, cm.TN())
}

func TestScorersZeroDivision(t *testing.T) {
	// Nothing predicted positive and no positives at all.
	yTrue := []int{0, 0, 0}
	yPred := []int{0, 0, 0}

	assert.Equal(t, 1.0, Accuracy(yTrue, yPred))
	assert.Equal(t, 0.0, Precision(yTrue, yPred))
	assert.Equal(t, 0.0, Recall(yTrue, yPred))
	assert.Equal(t, 0.0, F1(yTrue, yPred))
}

func TestScorerFor(t *testing.T) {
	for _, m := range []string{MetricAccuracy, MetricPrecision, MetricRecall, MetricF1} {
		s, err := ScorerFor(m)
		require.NoError(t, err, m)
		assert.NotNil(t, s)
	}

	_, err := ScorerFor("roc_auc")
	assert.ErrorIs(t, err, ErrUnknownMetric)
}

func TestROC(t *testing.T) {
	curve, err := ROC([]int{0, 0, 1, 1}, []float64{0.1, 0.4, 0.35, 0.8})
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0, 0.5, 0.5, 1}, curve.FPR)
	assert.Equal(t, []float64{0, 0.5, 0.5, 1, 1}, curve.TPR)
	assert.InDeltaSlice(t, []float64{1.8, 0.8, 0.4, 0.35, 0.1}, curve.Thresholds, 1e-12)
	assert.InDelta(t, 0.75, curve.AUC(), 1e-12)
}

func TestROCTiedScores(t *testing.T) {
	// All rows share one score: the curve jumps straight to (1, 1).
	auc, err := ROCAUC([]int{0, 1, 0, 1}, []float64{0.5, 0.5, 0.5, 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, auc, 1e-12)
}

func TestROCSingleClass(t *testing.T) {
	_, err := ROC([]int{1, 1}, []float64{0.2, 0.9})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestStats(t *testing.T) {
	assert.InDelta(t, 2.5, Mean([]int{1, 2, 3, 4}), 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), StdDev([]float64{1, 2, 3, 4}), 1e-12)
	assert.Equal(t, 0.0, StdDev([]float64{0.7}))
	assert.True(t, math.IsNaN(Mean([]float64{})))
	assert.True(t, math.IsNaN(StdDev([]int{})))

	// Integer and float inputs, and ScoreVector, agree.
	assert.InDelta(t, 2, StdDev([]int{2, 4, 4, 4, 5, 5, 7, 9}), 1e-12)
	assert.InDelta(t, 2, ScoreVector{2, 4, 4, 4, 5, 5, 7, 9}.Std(), 1e-12)
	assert.InDelta(t, 5, ScoreVector{2, 4, 4, 4, 5, 5, 7, 9}.Mean(), 1e-12)

	xs := []float64{4, 1, 3, 2}
	assert.InDelta(t, 1.75, Percentile(xs, 25), 1e-12)
	assert.InDelta(t, 2.5, Percentile(xs, 50), 1e-12)
	assert.InDelta(t, 1, Percentile(xs, 0), 1e-12)
	assert.InDelta(t, 4, Percentile(xs, 100), 1e-12)
	assert.Equal(t, []float64{4, 1, 3, 2}, xs, "input must not be sorted in place")
}
