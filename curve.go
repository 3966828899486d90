package hoselect

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/thalesfsp/hoselect/internal/logging"
)

// EvaluatorState is a state of the learning-curve evaluation:
//
//	Init -> Sweeping -> ... -> FinalFit -> Reported
//
// Any failure moves to Failed. No path reaches Reported without FinalFit.
type EvaluatorState int

const (
	StateInit EvaluatorState = iota
	StateSweeping
	StateFinalFit
	StateReported
	StateFailed
)

var stateNames = [...]string{"INIT", "SWEEPING", "FINAL_FIT", "REPORTED", "FAILED"}

func (s EvaluatorState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("EvaluatorState(%d)", int(s))
	}

	return stateNames[s]
}

// MarshalText renders the state by name.
func (s EvaluatorState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *EvaluatorState) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = EvaluatorState(i)

			return nil
		}
	}

	return fmt.Errorf("unknown evaluator state %q", text)
}

// canTransition reports whether s may move to next.
func (s EvaluatorState) canTransition(next EvaluatorState) bool {
	if next == StateFailed {
		return s != StateReported
	}

	switch s {
	case StateInit:
		return next == StateSweeping
	case StateSweeping:
		return next == StateSweeping || next == StateFinalFit
	case StateFinalFit:
		return next == StateReported
	}

	return false
}

// LearningCurve holds one point per training-set fraction.
type LearningCurve struct {
	Fractions   []float64 `json:"fractions"`
	Sizes       []int     `json:"sizes"`
	TrainScores []float64 `json:"train_scores"`
	TestScores  []float64 `json:"test_scores"`
}

// MetricsReport is the flat record of held-out performance of the final
// model. AUC is nil when it could not be computed.
type MetricsReport struct {
	AccuracyTrain  float64  `json:"accuracy_train"`
	AccuracyTest   float64  `json:"accuracy_test"`
	F1Train        float64  `json:"f1_train"`
	F1Test         float64  `json:"f1_test"`
	PrecisionTrain float64  `json:"precision_train"`
	PrecisionTest  float64  `json:"precision_test"`
	RecallTrain    float64  `json:"recall_train"`
	RecallTest     float64  `json:"recall_test"`
	AUC            *float64 `json:"auc"`
}

// CurveResult is everything the evaluator produced for one configuration.
type CurveResult struct {
	Config  Configuration  `json:"config"`
	Metric  string         `json:"metric"`
	Curve   LearningCurve  `json:"curve"`
	Metrics MetricsReport  `json:"metrics"`
	State   EvaluatorState `json:"state"`

	// AUCError says why Metrics.AUC is nil.
	AUCError string `json:"auc_error,omitempty"`

	// Confusion is the test-set confusion matrix of the final model.
	Confusion ConfusionMatrix `json:"confusion"`

	// ROC is the test-set ROC curve, nil whenever AUC is.
	ROC *ROCCurve `json:"roc,omitempty"`
}

// CurveFractions returns the training-set fractions from start to 100
// percent in step-percent increments. 1.0 is always the last fraction.
func CurveFractions(startPercent, stepPercent int) []float64 {
	percents := curvePercents(startPercent, stepPercent)

	out := make([]float64, len(percents))
	for i, p := range percents {
		out[i] = float64(p) / 100
	}

	return out
}

func curvePercents(start, step int) []int {
	var out []int
	for p := start; p < 100; p += step {
		out = append(out, p)
	}

	return append(out, 100)
}

// CurveEvaluator trains a configuration on growing prefixes of the training
// partition and then reports held-out metrics of a full fit.
type CurveEvaluator struct {
	data    *Dataset
	factory EstimatorFactory
	config  Config
}

// NewCurveEvaluator validates its inputs eagerly.
func NewCurveEvaluator(ds *Dataset, factory EstimatorFactory, cfg Config) (*CurveEvaluator, error) {
	if ds == nil {
		return nil, invalidInput("nil dataset")
	}
	if factory == nil {
		return nil, invalidInput("nil estimator factory")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &CurveEvaluator{data: ds, factory: factory, config: cfg}, nil
}

// evaluation tracks the state machine of one Evaluate call.
type evaluation struct {
	state  EvaluatorState
	result CurveResult
}

func (e *evaluation) transition(next EvaluatorState) {
	if !e.state.canTransition(next) {
		panic(fmt.Sprintf("evaluator: illegal transition %s -> %s", e.state, next))
	}

	e.state = next
	e.result.State = next
}

// Evaluate runs the learning-curve sweep and the final fit for cfg.
//
// How it works:
//  1. For every fraction f, a fresh estimator is fitted on the first
//     floor(f*N) training rows; the metric is recorded on that subset and
//     on the whole test partition
//  2. A fresh estimator is fitted on the whole training partition and the
//     MetricsReport, confusion matrix and ROC curve are computed
//
// A failure at any point of the sweep aborts the evaluation: a partial curve
// is never returned. An estimator without probability or decision output
// only leaves AUC nil.
func (c *CurveEvaluator) Evaluate(ctx context.Context, cfg Configuration) (CurveResult, error) {
	scorer, err := ScorerFor(c.config.Metric)
	if err != nil {
		return CurveResult{}, err
	}

	train, test := c.data.Train(), c.data.Test()
	percents := curvePercents(c.config.CurveStartPercent, c.config.CurveStepPercent)

	if first := percents[0] * train.Len() / 100; first < 1 {
		return CurveResult{}, invalidInput("%d%% of %d training rows is empty", percents[0], train.Len())
	}

	logger := c.config.logger().With(
		zap.String(logging.PhaseKey, string(PhaseCurve)),
		zap.Stringer(logging.ConfigKey, cfg),
	)

	e := &evaluation{result: CurveResult{Config: cfg, Metric: c.config.Metric}}

	fail := func(err error) (CurveResult, error) {
		e.transition(StateFailed)

		logger.Error("evaluation aborted", zap.Error(err))

		return CurveResult{State: StateFailed}, err
	}

	for i, pct := range percents {
		e.transition(StateSweeping)

		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		fraction := float64(pct) / 100
		size := pct * train.Len() / 100
		subset := train.Prefix(size)

		est, err := c.fit(cfg, subset)
		if err != nil {
			return fail(fmt.Errorf("fraction %.2f: %w", fraction, err))
		}

		trainScore, err := c.score(est, subset, scorer)
		if err != nil {
			return fail(fmt.Errorf("fraction %.2f: %w", fraction, err))
		}

		testScore, err := c.score(est, test, scorer)
		if err != nil {
			return fail(fmt.Errorf("fraction %.2f: %w", fraction, err))
		}

		curve := &e.result.Curve
		curve.Fractions = append(curve.Fractions, fraction)
		curve.Sizes = append(curve.Sizes, size)
		curve.TrainScores = append(curve.TrainScores, trainScore)
		curve.TestScores = append(curve.TestScores, testScore)

		logger.Debug("curve point",
			zap.Float64(logging.FractionKey, fraction),
			zap.Int(logging.SamplesKey, size),
			zap.Float64("curve.train_score", trainScore),
			zap.Float64("curve.test_score", testScore),
		)

		c.config.sendProgress(ProgressUpdate{
			Phase:            PhaseCurve,
			CurrentIteration: i + 1,
			TotalIterations:  len(percents),
			CurrentParams:    cfg,
			LastScore:        testScore,
		})
	}

	e.transition(StateFinalFit)

	est, err := c.fit(cfg, train)
	if err != nil {
		return fail(fmt.Errorf("final fit: %w", err))
	}

	trainPred, err := c.predict(est, train)
	if err != nil {
		return fail(fmt.Errorf("final fit: %w", err))
	}

	testPred, err := c.predict(est, test)
	if err != nil {
		return fail(fmt.Errorf("final fit: %w", err))
	}

	e.result.Metrics = MetricsReport{
		AccuracyTrain:  Accuracy(train.Y, trainPred),
		AccuracyTest:   Accuracy(test.Y, testPred),
		F1Train:        F1(train.Y, trainPred),
		F1Test:         F1(test.Y, testPred),
		PrecisionTrain: Precision(train.Y, trainPred),
		PrecisionTest:  Precision(test.Y, testPred),
		RecallTrain:    Recall(train.Y, trainPred),
		RecallTest:     Recall(test.Y, testPred),
	}
	e.result.Confusion = Confusion(test.Y, testPred)

	if err := c.attachROC(e, est, test); err != nil {
		logger.Warn("AUC unavailable", zap.Error(err))

		e.result.AUCError = err.Error()
	}

	e.transition(StateReported)

	logger.Info("evaluation reported",
		zap.Float64("metrics.accuracy_test", e.result.Metrics.AccuracyTest),
		zap.Float64("metrics.f1_test", e.result.Metrics.F1Test),
		zap.Bool("metrics.auc_available", e.result.Metrics.AUC != nil),
	)

	return e.result, nil
}

// attachROC fills the ROC curve and AUC. Both stay nil on error, which is
// either ErrUnsupportedEstimator or ErrInvalidInput for a single-class test
// partition.
func (c *CurveEvaluator) attachROC(e *evaluation, est Estimator, test Split) error {
	scores, err := positiveScores(est, test.X)
	if err != nil {
		if errors.Is(err, ErrUnsupportedEstimator) {
			return err
		}

		return fmt.Errorf("%w: %v", ErrUnsupportedEstimator, err)
	}

	roc, err := ROC(test.Y, scores)
	if err != nil {
		return err
	}

	auc := roc.AUC()
	e.result.ROC = &roc
	e.result.Metrics.AUC = &auc

	return nil
}

func (c *CurveEvaluator) fit(cfg Configuration, data Split) (Estimator, error) {
	est, err := c.factory(cfg, c.config.Seed)
	if err != nil {
		return nil, fmt.Errorf("build estimator: %w", err)
	}

	if err := est.Fit(data.X, data.Y); err != nil {
		return nil, fmt.Errorf("fit %d rows: %w", data.Len(), err)
	}

	return est, nil
}

func (c *CurveEvaluator) predict(est Estimator, data Split) ([]int, error) {
	pred, err := est.Predict(data.X)
	if err != nil {
		return nil, fmt.Errorf("predict %d rows: %w", data.Len(), err)
	}
	if err := checkPredictions(pred, data.Len()); err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	return pred, nil
}

func (c *CurveEvaluator) score(est Estimator, data Split, scorer Scorer) (float64, error) {
	pred, err := c.predict(est, data)
	if err != nil {
		return 0, err
	}

	return scorer(data.Y, pred), nil
}
