package hoselect

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/thalesfsp/hoselect/internal/logging"
)

// TrialResult is the outcome of one randomized-search trial: the best
// configuration found and its provenance. Immutable once produced.
type TrialResult struct {
	Trial     int           `json:"trial"`
	Seed      int64         `json:"seed"`
	FoldSeed  int64         `json:"fold_seed"`
	Config    Configuration `json:"config"`
	Score     float64       `json:"score"`
	Scores    ScoreVector   `json:"scores"`
	Metric    string        `json:"metric"`
	Folds     int           `json:"folds"`
	Evaluated int           `json:"evaluated"`
	Failures  []Failure     `json:"failures,omitempty"`
	Elapsed   time.Duration `json:"elapsed"`
}

// TrialRunner executes single randomized-search trials over a search space.
// It holds no state between runs; the same arguments always produce the same
// result for a deterministic estimator.
type TrialRunner struct {
	data    Split
	factory EstimatorFactory
	space   *SearchSpace
	config  Config
}

// NewTrialRunner validates its inputs eagerly, before any fold is fitted.
func NewTrialRunner(ds *Dataset, factory EstimatorFactory, space *SearchSpace, cfg Config) (*TrialRunner, error) {
	if ds == nil {
		return nil, invalidInput("nil dataset")
	}
	if factory == nil {
		return nil, invalidInput("nil estimator factory")
	}
	if space == nil {
		return nil, invalidInput("nil search space")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &TrialRunner{
		data:    ds.Train(),
		factory: factory,
		space:   space,
		config:  cfg,
	}, nil
}

// Config returns the runner's configuration.
func (r *TrialRunner) Config() Config { return r.config }

// Run performs trial number trial. Configurations are drawn by the
// configured strategy seeded with seed and scored by stratified k-fold
// cross-validation with folds drawn from foldSeed.
//
// A configuration that fails to build, fit or predict is logged, recorded in
// TrialResult.Failures and excluded from comparison. If every configuration
// fails, Run returns an *ExhaustionError. Score ties keep the configuration
// evaluated first.
func (r *TrialRunner) Run(ctx context.Context, trial int, seed, foldSeed int64) (TrialResult, error) {
	logger := r.config.logger().With(
		zap.Int(logging.TrialKey, trial),
		zap.Int64(logging.SeedKey, seed),
		zap.Int64(logging.FoldSeedKey, foldSeed),
	)

	cv, err := newCrossValidator(r.data, r.factory, r.config.Metric, r.config.Folds, foldSeed, r.config.Seed, r.config.Workers)
	if err != nil {
		return TrialResult{}, err
	}

	s, err := newSampler(r.config, r.space, seed)
	if err != nil {
		return TrialResult{}, err
	}

	res := TrialResult{
		Trial:    trial,
		Seed:     seed,
		FoldSeed: foldSeed,
		Metric:   r.config.Metric,
		Folds:    r.config.Folds,
		Score:    math.Inf(-1),
	}

	total := r.config.Iterations
	if size := r.space.Size(); total > size {
		total = size
	}

	elapsed, err := measure(func() error {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}

			cfg, ok := s.Next()
			if !ok {
				return nil
			}

			ev := cv.evaluate(cfg)
			res.Evaluated++

			score := math.NaN()
			if ev.Succeeded() {
				score = ev.Scores.Mean()
			}
			s.Observe(cfg, score, ev.Err)

			if !ev.Succeeded() {
				res.Failures = append(res.Failures, newFailure(ev))

				logger.Warn("configuration failed",
					zap.Stringer(logging.ConfigKey, cfg),
					zap.Error(ev.Err),
				)
			} else if score > res.Score {
				res.Score = score
				res.Scores = ev.Scores
				res.Config = cfg
			}

			r.config.sendProgress(ProgressUpdate{
				Phase:             PhaseSearch,
				Trial:             trial,
				CurrentIteration:  res.Evaluated,
				TotalIterations:   total,
				CurrentParams:     cfg,
				CurrentBestParams: res.Config,
				CurrentBestScore:  res.Score,
				LastScore:         score,
			})
		}
	})
	res.Elapsed = elapsed

	if err != nil {
		return TrialResult{}, err
	}

	if res.Scores == nil {
		return TrialResult{}, &ExhaustionError{Trial: trial, Seed: seed, Failures: res.Failures}
	}

	logger.Info("trial completed",
		zap.Stringer(logging.ConfigKey, res.Config),
		zap.String(logging.MetricKey, res.Metric),
		zap.Float64(logging.MeanKey, res.Score),
		zap.Float64(logging.StdKey, res.Scores.Std()),
		zap.Int(logging.EvaluatedKey, res.Evaluated),
		zap.Int(logging.FailedKey, len(res.Failures)),
		zap.Duration(logging.ElapsedKey, res.Elapsed),
	)

	return res, nil
}

// IsExhausted reports whether err is a search exhaustion.
func IsExhausted(err error) bool {
	return errors.Is(err, ErrExhaustedSearchSpace)
}
