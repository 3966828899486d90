package hoselect

import (
	"context"
	"errors"
	"fmt"
)

// ScoreVector is the ordered sequence of per-fold scores of a configuration.
type ScoreVector []float64

// Mean returns the mean fold score.
func (s ScoreVector) Mean() float64 { return Mean(s) }

// Std returns the population standard deviation of the fold scores.
func (s ScoreVector) Std() float64 { return StdDev(s) }

// Evaluation is the explicit result of cross-validating one configuration:
// either Scores (Err == nil) or the reason it failed. Callers aggregate these
// into succeeded and failed lists; nothing is swallowed.
type Evaluation struct {
	Config Configuration
	Scores ScoreVector
	Err    error
}

// Succeeded reports whether the configuration produced a score vector.
func (e Evaluation) Succeeded() bool { return e.Err == nil }

// crossValidator evaluates configurations on a fixed set of stratified folds.
// One validator is built per fold seed; every configuration it evaluates is
// scored on identical fold membership.
type crossValidator struct {
	data          Split
	factory       EstimatorFactory
	scorer        Scorer
	folds         []Fold
	estimatorSeed int64
	workers       int
}

func newCrossValidator(data Split, factory EstimatorFactory, metric string, k int, foldSeed, estimatorSeed int64, workers int) (*crossValidator, error) {
	scorer, err := ScorerFor(metric)
	if err != nil {
		return nil, err
	}

	folds, err := StratifiedKFold(data.Y, k, foldSeed)
	if err != nil {
		return nil, err
	}

	return &crossValidator{
		data:          data,
		factory:       factory,
		scorer:        scorer,
		folds:         folds,
		estimatorSeed: estimatorSeed,
		workers:       workers,
	}, nil
}

// evaluate scores cfg on every fold. Folds run on the worker pool; each gets
// its own estimator instance and its own row subsets. The first failing fold
// (in fold order) fails the whole configuration.
func (cv *crossValidator) evaluate(cfg Configuration) Evaluation {
	scores := make(ScoreVector, len(cv.folds))

	jobs := make([]job, len(cv.folds))
	for i, fold := range cv.folds {
		i, fold := i, fold
		jobs[i] = func() error {
			est, err := cv.factory(cfg, cv.estimatorSeed)
			if err != nil {
				return fmt.Errorf("build estimator: %w", err)
			}

			train := cv.data.Take(fold.Train)
			if err := est.Fit(train.X, train.Y); err != nil {
				return fmt.Errorf("fit fold %d: %w", i+1, err)
			}

			test := cv.data.Take(fold.Test)
			pred, err := est.Predict(test.X)
			if err != nil {
				return fmt.Errorf("predict fold %d: %w", i+1, err)
			}
			if err := checkPredictions(pred, test.Len()); err != nil {
				return fmt.Errorf("predict fold %d: %w", i+1, err)
			}

			scores[i] = cv.scorer(test.Y, pred)

			return nil
		}
	}

	for _, err := range runPool(cv.workers, jobs) {
		if err != nil {
			return Evaluation{Config: cfg, Err: &ConfigurationError{Config: cfg, Err: err}}
		}
	}

	return Evaluation{Config: cfg, Scores: scores}
}

// CrossValidate scores one configuration by k-fold stratified
// cross-validation on data, with folds drawn from foldSeed and every
// estimator built with estimatorSeed. Identical arguments always yield an
// identical ScoreVector for a deterministic estimator.
//
// data is checked like a Dataset partition before any fold is built; a
// violation is ErrInvalidInput, never a configuration failure.
//
// Usage example:
//
//	scores, err := CrossValidate(ctx, dataset.Train(), factory, cfg, MetricAccuracy, 5, 51, 51)
//	fmt.Printf("%.3f ± %.3f\n", scores.Mean(), scores.Std())
func CrossValidate(
	ctx context.Context,
	data Split,
	factory EstimatorFactory,
	cfg Configuration,
	metric string,
	k int,
	foldSeed, estimatorSeed int64,
) (ScoreVector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	features := 0
	if len(data.X) > 0 {
		features = len(data.X[0])
	}
	if err := data.validate("cross-validation", features); err != nil {
		return nil, err
	}

	cv, err := newCrossValidator(data, factory, metric, k, foldSeed, estimatorSeed, k)
	if err != nil {
		return nil, err
	}

	ev := cv.evaluate(cfg)
	if ev.Err != nil {
		var ce *ConfigurationError
		if errors.As(ev.Err, &ce) {
			return nil, ce
		}

		return nil, ev.Err
	}

	return ev.Scores, nil
}
