package hoselect

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/thalesfsp/hoselect/internal/logging"
)

// Candidate is one re-evaluated member of the candidate pool.
type Candidate struct {
	// PoolIndex is the position of the configuration in the input pool.
	PoolIndex int           `json:"pool_index"`
	Config    Configuration `json:"config"`
	Scores    ScoreVector   `json:"scores"`
	Mean      float64       `json:"mean"`
	Std       float64       `json:"std"`
}

// Partition splits candidates by fold-score stability. Stable and Unstable
// index into the candidate slice, ascending, disjoint and together cover it.
type Partition struct {
	Percentile float64 `json:"percentile"`
	Threshold  float64 `json:"threshold"`
	Stable     []int   `json:"stable"`
	Unstable   []int   `json:"unstable"`

	// Selected is the index of the chosen candidate.
	Selected int `json:"selected"`

	// FellBack is true when no candidate was stable and Selected is the
	// global best by mean.
	FellBack bool `json:"fell_back"`
}

// SelectStable partitions candidates and picks the winner.
//
// How it works:
//   - The threshold is the percentile-th percentile (linear interpolation)
//     of all candidate stds
//   - A candidate is stable when its std is <= threshold
//   - The winner is the stable candidate with the highest mean; if nothing is
//     stable, the candidate with the highest mean overall
//   - Equal means keep the first candidate in order
//
// The result is a pure function of the candidates' means and stds.
func SelectStable(candidates []Candidate, percentile float64) (Partition, error) {
	if len(candidates) == 0 {
		return Partition{}, ErrEmptyPool
	}

	stds := make([]float64, len(candidates))
	for i, c := range candidates {
		stds[i] = c.Std
	}

	p := Partition{
		Percentile: percentile,
		Threshold:  Percentile(stds, percentile),
		Stable:     []int{},
		Unstable:   []int{},
	}

	for i, c := range candidates {
		if c.Std <= p.Threshold {
			p.Stable = append(p.Stable, i)
		} else {
			p.Unstable = append(p.Unstable, i)
		}
	}

	pool := p.Stable
	if len(pool) == 0 {
		p.FellBack = true

		pool = make([]int, len(candidates))
		for i := range pool {
			pool[i] = i
		}
	}

	p.Selected = pool[0]
	for _, i := range pool[1:] {
		if candidates[i].Mean > candidates[p.Selected].Mean {
			p.Selected = i
		}
	}

	return p, nil
}

// StabilityReport is the outcome of a stability analysis.
type StabilityReport struct {
	Partition

	Metric     string      `json:"metric"`
	Folds      int         `json:"folds"`
	FoldSeed   int64       `json:"fold_seed"`
	Candidates []Candidate `json:"candidates"`

	// Failed lists pool configurations that could not be re-evaluated.
	// They take no part in the partition.
	Failed []Failure `json:"failed,omitempty"`
}

// SelectedCandidate returns the chosen candidate.
func (r StabilityReport) SelectedCandidate() Candidate {
	return r.Candidates[r.Selected]
}

// StabilityAnalyzer re-evaluates a candidate pool on one fixed set of folds
// and selects the best configuration among the low-variance ones.
type StabilityAnalyzer struct {
	data    Split
	factory EstimatorFactory
	config  Config
}

// NewStabilityAnalyzer validates its inputs eagerly.
func NewStabilityAnalyzer(ds *Dataset, factory EstimatorFactory, cfg Config) (*StabilityAnalyzer, error) {
	if ds == nil {
		return nil, invalidInput("nil dataset")
	}
	if factory == nil {
		return nil, invalidInput("nil estimator factory")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &StabilityAnalyzer{data: ds.Train(), factory: factory, config: cfg}, nil
}

// Analyze re-evaluates every configuration of pool with folds drawn from
// Config.Seed, so all of them are compared on identical folds, then applies
// SelectStable with Config.StabilityPercentile.
//
// Important notes:
//   - An empty pool fails with ErrEmptyPool before any fold is fitted
//   - Duplicate configurations are kept as distinct candidates in pool order
//     but cross-validated once
//   - A configuration failing re-evaluation is recorded in Failed; if all
//     fail, ErrExhaustedSearchSpace is returned
func (a *StabilityAnalyzer) Analyze(ctx context.Context, pool []Configuration) (StabilityReport, error) {
	if len(pool) == 0 {
		return StabilityReport{}, ErrEmptyPool
	}

	logger := a.config.logger().With(zap.String(logging.PhaseKey, string(PhaseStability)))

	cv, err := newCrossValidator(a.data, a.factory, a.config.Metric, a.config.Folds, a.config.Seed, a.config.Seed, a.config.Workers)
	if err != nil {
		return StabilityReport{}, err
	}

	report := StabilityReport{
		Metric:   a.config.Metric,
		Folds:    a.config.Folds,
		FoldSeed: a.config.Seed,
	}

	memo := make(map[string]Evaluation, len(pool))
	for i, cfg := range pool {
		if err := ctx.Err(); err != nil {
			return StabilityReport{}, err
		}

		ev, ok := memo[cfg.Key()]
		if !ok {
			ev = cv.evaluate(cfg)
			memo[cfg.Key()] = ev
		}

		if !ev.Succeeded() {
			report.Failed = append(report.Failed, newFailure(ev))

			logger.Warn("candidate failed re-evaluation", zap.Stringer(logging.ConfigKey, cfg), zap.Error(ev.Err))

			continue
		}

		c := Candidate{
			PoolIndex: i,
			Config:    cfg,
			Scores:    ev.Scores,
			Mean:      ev.Scores.Mean(),
			Std:       ev.Scores.Std(),
		}
		report.Candidates = append(report.Candidates, c)

		logger.Debug("candidate evaluated",
			zap.Stringer(logging.ConfigKey, cfg),
			zap.Float64(logging.MeanKey, c.Mean),
			zap.Float64(logging.StdKey, c.Std),
		)

		a.config.sendProgress(ProgressUpdate{
			Phase:            PhaseStability,
			CurrentIteration: i + 1,
			TotalIterations:  len(pool),
			CurrentParams:    cfg,
			LastScore:        c.Mean,
		})
	}

	if len(report.Candidates) == 0 {
		return report, fmt.Errorf("all %d candidates failed re-evaluation: %w", len(pool), ErrExhaustedSearchSpace)
	}

	partition, err := SelectStable(report.Candidates, a.config.StabilityPercentile)
	if err != nil {
		return report, err
	}
	report.Partition = partition

	selected := report.SelectedCandidate()
	logger.Info("configuration selected",
		zap.Stringer(logging.ConfigKey, selected.Config),
		zap.Float64(logging.MeanKey, selected.Mean),
		zap.Float64(logging.StdKey, selected.Std),
		zap.Float64(logging.ThresholdKey, partition.Threshold),
		zap.Int("stability.stable", len(partition.Stable)),
		zap.Bool("stability.fell_back", partition.FellBack),
	)

	return report, nil
}
