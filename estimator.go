package hoselect

import (
	"errors"
	"fmt"
)

// Estimator is the classifier capability the harness is built around. The
// harness never trains models itself; it only drives Fit and Predict.
//
// Implementations must not mutate X or y.
type Estimator interface {
	// Fit trains the estimator on binary labels {0, 1}.
	Fit(X [][]float64, y []int) error

	// Predict returns one label per row of X.
	Predict(X [][]float64) ([]int, error)
}

// ProbabilityEstimator is an Estimator with class probability output.
// Column 1 of each row is the probability of label 1.
type ProbabilityEstimator interface {
	Estimator
	PredictProba(X [][]float64) ([][]float64, error)
}

// DecisionEstimator is an Estimator with a decision score per row. Larger
// values favour label 1.
type DecisionEstimator interface {
	Estimator
	DecisionFunction(X [][]float64) ([]float64, error)
}

// EstimatorFactory builds a fresh, untrained estimator from a configuration
// and a reproducibility seed. Invalid configurations must be rejected here,
// wrapped in ErrInvalidConfiguration, rather than deep inside Fit.
//
// Usage example:
//
//	factory := EstimatorFactory(func(cfg Configuration, seed int64) (Estimator, error) {
//	    params, err := lvq.ParseParams(cfg)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return lvq.New(params, seed), nil
//	})
type EstimatorFactory func(cfg Configuration, seed int64) (Estimator, error)

// positiveScores returns the ranking score of label 1 for every row of X:
// the probability column when available, else the decision function.
func positiveScores(est Estimator, X [][]float64) ([]float64, error) {
	if p, ok := est.(ProbabilityEstimator); ok {
		proba, err := p.PredictProba(X)
		if err != nil {
			return nil, fmt.Errorf("predict proba: %w", err)
		}

		scores := make([]float64, len(proba))
		for i, row := range proba {
			if len(row) < 2 {
				return nil, errors.New("predict proba: expected two columns")
			}
			scores[i] = row[1]
		}

		return scores, nil
	}

	if d, ok := est.(DecisionEstimator); ok {
		scores, err := d.DecisionFunction(X)
		if err != nil {
			return nil, fmt.Errorf("decision function: %w", err)
		}

		return scores, nil
	}

	return nil, fmt.Errorf("%w: %T exposes neither PredictProba nor DecisionFunction", ErrUnsupportedEstimator, est)
}

// checkPredictions verifies an estimator returned one binary label per row.
func checkPredictions(pred []int, rows int) error {
	if len(pred) != rows {
		return fmt.Errorf("got %d predictions for %d rows", len(pred), rows)
	}
	for i, p := range pred {
		if p != 0 && p != 1 {
			return fmt.Errorf("prediction %d is %d, want 0 or 1", i, p)
		}
	}

	return nil
}
