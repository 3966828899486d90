package hoselect

import (
	"fmt"
	"sort"
)

// Metric names understood by ScorerFor.
const (
	MetricAccuracy  = "accuracy"
	MetricPrecision = "precision"
	MetricRecall    = "recall"
	MetricF1        = "f1"
)

// Scorer computes a metric from true and predicted labels. Higher is better.
type Scorer func(yTrue, yPred []int) float64

// ScorerFor returns the scorer registered under metric.
func ScorerFor(metric string) (Scorer, error) {
	switch metric {
	case MetricAccuracy:
		return Accuracy, nil
	case MetricPrecision:
		return Precision, nil
	case MetricRecall:
		return Recall, nil
	case MetricF1:
		return F1, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
}

// ConfusionMatrix counts outcomes indexed as [actual][predicted].
type ConfusionMatrix [2][2]int

// Confusion tallies predictions against truth. Label 1 is the positive class.
func Confusion(yTrue, yPred []int) ConfusionMatrix {
	var cm ConfusionMatrix
	for i := range yTrue {
		cm[yTrue[i]][yPred[i]]++
	}

	return cm
}

// TP returns the true positive count.
func (cm ConfusionMatrix) TP() int { return cm[1][1] }

// FP returns the false positive count.
func (cm ConfusionMatrix) FP() int { return cm[0][1] }

// FN returns the false negative count.
func (cm ConfusionMatrix) FN() int { return cm[1][0] }

// TN returns the true negative count.
func (cm ConfusionMatrix) TN() int { return cm[0][0] }

// Accuracy is the fraction of correct predictions.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}

	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}

	return float64(correct) / float64(len(yTrue))
}

// Precision is TP / (TP + FP); 0 when nothing was predicted positive.
func Precision(yTrue, yPred []int) float64 {
	cm := Confusion(yTrue, yPred)

	return safeDiv(cm.TP(), cm.TP()+cm.FP())
}

// Recall is TP / (TP + FN); 0 when there are no positives.
func Recall(yTrue, yPred []int) float64 {
	cm := Confusion(yTrue, yPred)

	return safeDiv(cm.TP(), cm.TP()+cm.FN())
}

// F1 is the harmonic mean of precision and recall: 2TP / (2TP + FP + FN).
func F1(yTrue, yPred []int) float64 {
	cm := Confusion(yTrue, yPred)

	return safeDiv(2*cm.TP(), 2*cm.TP()+cm.FP()+cm.FN())
}

func safeDiv(num, den int) float64 {
	if den == 0 {
		return 0
	}

	return float64(num) / float64(den)
}

// ROCCurve holds the points of a receiver operating characteristic curve,
// one per distinct score threshold, starting at (0, 0).
type ROCCurve struct {
	FPR        []float64 `json:"fpr"`
	TPR        []float64 `json:"tpr"`
	Thresholds []float64 `json:"thresholds"`
}

// ROC builds the ROC curve of scores against binary truth, label 1 being the
// positive class. The first threshold is max(scores)+1 so that the curve
// starts at the origin.
func ROC(yTrue []int, scores []float64) (ROCCurve, error) {
	if len(yTrue) != len(scores) {
		return ROCCurve{}, invalidInput("%d labels but %d scores", len(yTrue), len(scores))
	}

	var pos, neg int
	for _, y := range yTrue {
		if y == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return ROCCurve{}, invalidInput("only one class present in labels; ROC is not defined")
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	curve := ROCCurve{
		FPR:        []float64{0},
		TPR:        []float64{0},
		Thresholds: []float64{scores[order[0]] + 1},
	}

	var tp, fp int
	for i, idx := range order {
		if yTrue[idx] == 1 {
			tp++
		} else {
			fp++
		}
		// Emit a point only once every row sharing this score is counted.
		if i+1 < len(order) && scores[order[i+1]] == scores[idx] {
			continue
		}
		curve.FPR = append(curve.FPR, float64(fp)/float64(neg))
		curve.TPR = append(curve.TPR, float64(tp)/float64(pos))
		curve.Thresholds = append(curve.Thresholds, scores[idx])
	}

	return curve, nil
}

// AUC integrates the curve with the trapezoidal rule.
func (c ROCCurve) AUC() float64 {
	var area float64
	for i := 1; i < len(c.FPR); i++ {
		area += (c.FPR[i] - c.FPR[i-1]) * (c.TPR[i] + c.TPR[i-1]) / 2
	}

	return area
}

// ROCAUC is the area under the ROC curve, in [0, 1].
func ROCAUC(yTrue []int, scores []float64) (float64, error) {
	curve, err := ROC(yTrue, scores)
	if err != nil {
		return 0, err
	}

	return curve.AUC(), nil
}
