package hoselect

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/thalesfsp/hoselect/internal/logging"
)

// ScoredConfig is a configuration with its cross-validation scores.
type ScoredConfig struct {
	Config Configuration `json:"config"`
	Mean   float64       `json:"mean"`
	Scores ScoreVector   `json:"scores"`
}

// ScreenResult is the outcome of an exhaustive grid screening.
type ScreenResult struct {
	// Succeeded is sorted by mean score, descending; equal means keep grid
	// order.
	Succeeded []ScoredConfig `json:"succeeded"`
	Failed    []Failure      `json:"failed,omitempty"`
}

// Top returns the configurations of the k best entries of Succeeded.
func (r ScreenResult) Top(k int) []Configuration {
	if k > len(r.Succeeded) {
		k = len(r.Succeeded)
	}

	out := make([]Configuration, k)
	for i := 0; i < k; i++ {
		out[i] = r.Succeeded[i].Config
	}

	return out
}

// Screener evaluates every configuration of a search space on fixed folds.
// It is the exhaustive alternative to the Searcher for building a candidate
// pool.
type Screener struct {
	data    Split
	factory EstimatorFactory
	space   *SearchSpace
	config  Config
}

// NewScreener validates its inputs eagerly.
func NewScreener(ds *Dataset, factory EstimatorFactory, space *SearchSpace, cfg Config) (*Screener, error) {
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

	return &Screener{data: ds.Train(), factory: factory, space: space, config: cfg}, nil
}

// Run scores the whole grid with folds drawn from Config.Seed. Up to
// Config.Workers configurations are evaluated concurrently, each fitting its
// folds sequentially. Fails with ErrExhaustedSearchSpace when no
// configuration succeeds.
func (s *Screener) Run(ctx context.Context) (ScreenResult, error) {
	logger := s.config.logger().With(zap.String(logging.PhaseKey, string(PhaseScreen)))

	cv, err := newCrossValidator(s.data, s.factory, s.config.Metric, s.config.Folds, s.config.Seed, s.config.Seed, 1)
	if err != nil {
		return ScreenResult{}, err
	}

	grid := s.space.Grid()
	evals := make([]Evaluation, len(grid))

	jobs := make([]job, len(grid))
	for i, cfg := range grid {
		i, cfg := i, cfg
		jobs[i] = func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			evals[i] = cv.evaluate(cfg)

			return nil
		}
	}

	for _, err := range runPool(s.config.Workers, jobs) {
		if err != nil {
			return ScreenResult{}, err
		}
	}

	var res ScreenResult
	for i, ev := range evals {
		if !ev.Succeeded() {
			res.Failed = append(res.Failed, newFailure(ev))

			logger.Warn("configuration failed", zap.Stringer(logging.ConfigKey, ev.Config), zap.Error(ev.Err))

			continue
		}

		res.Succeeded = append(res.Succeeded, ScoredConfig{Config: ev.Config, Mean: ev.Scores.Mean(), Scores: ev.Scores})

		s.config.sendProgress(ProgressUpdate{
			Phase:            PhaseScreen,
			CurrentIteration: i + 1,
			TotalIterations:  len(grid),
			CurrentParams:    ev.Config,
			LastScore:        ev.Scores.Mean(),
		})
	}

	if len(res.Succeeded) == 0 {
		return res, fmt.Errorf("screening %d configurations: %w", len(grid), ErrExhaustedSearchSpace)
	}

	sort.SliceStable(res.Succeeded, func(a, b int) bool { return res.Succeeded[a].Mean > res.Succeeded[b].Mean })

	logger.Info("screening completed",
		zap.Int(logging.EvaluatedKey, len(grid)),
		zap.Int(logging.FailedKey, len(res.Failed)),
		zap.Stringer(logging.ConfigKey, res.Succeeded[0].Config),
		zap.Float64(logging.MeanKey, res.Succeeded[0].Mean),
	)

	return res, nil
}
