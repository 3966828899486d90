package hoselect

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/thalesfsp/hoselect/internal/logging"
)

// retrySeedStride separates the seeds of successive attempts of a trial so
// they never collide with another trial's seed.
const retrySeedStride = 1 << 20

// SearchResult is the accumulated output of a search.
type SearchResult struct {
	// Trials holds the best result of every trial, in trial order. The same
	// configuration may appear more than once.
	Trials []TrialResult `json:"trials"`

	// Elapsed is the cumulative wall-clock time of all trials, including
	// those restored from a checkpoint.
	Elapsed time.Duration `json:"elapsed"`

	// Resumed is how many trials were restored instead of run.
	Resumed int `json:"resumed"`
}

// BestConfigs returns the best configuration of every trial, in trial order.
func (r SearchResult) BestConfigs() []Configuration {
	out := make([]Configuration, len(r.Trials))
	for i, t := range r.Trials {
		out[i] = t.Config
	}

	return out
}

// Searcher repeats a TrialRunner Config.Trials times. Trial i uses seed
// Config.Seed+i.
type Searcher struct {
	runner     *TrialRunner
	checkpoint Checkpointer
	key        string
}

// NewSearcher returns a Searcher driving runner.
func NewSearcher(runner *TrialRunner) *Searcher {
	return &Searcher{runner: runner}
}

// WithCheckpoint makes the search resumable: state stored under key is
// restored before running and saved after every completed trial.
func (s *Searcher) WithCheckpoint(cp Checkpointer, key string) *Searcher {
	s.checkpoint = cp
	s.key = key

	return s
}

// Run executes the remaining trials and returns every trial's best result.
//
// How it works:
// 1. Restores prior state from the checkpointer, if any
// 2. Runs trials len(state.Trials) .. Trials-1; resuming is by count, so a
//    completed trial is never re-run
// 3. An exhausted trial is retried up to MaxRetries times with seed
//    Seed+i+attempt*2^20, then its *ExhaustionError is returned
//
// Trials restored beyond Config.Trials are ignored.
func (s *Searcher) Run(ctx context.Context) (SearchResult, error) {
	cfg := s.runner.config
	logger := cfg.logger()

	var state SearchState
	if s.checkpoint != nil {
		prior, err := s.checkpoint.Load(ctx, s.key)
		if err != nil {
			return SearchResult{}, fmt.Errorf("load checkpoint: %w", err)
		}
		if prior != nil {
			state = *prior
		}
	}

	if len(state.Trials) > cfg.Trials {
		state.Trials = state.Trials[:cfg.Trials]
	}

	resumed := len(state.Trials)
	if resumed > 0 {
		logger.Info("resuming search", zap.Int(logging.TrialKey, resumed))
	}

	for i := resumed; i < cfg.Trials; i++ {
		seed := cfg.Seed + int64(i)

		foldSeed := cfg.Seed
		if cfg.VaryTrialFolds {
			foldSeed = seed
		}

		var res TrialResult

		elapsed, err := measure(func() error {
			var err error
			for attempt := 0; ; attempt++ {
				res, err = s.runner.Run(ctx, i, seed+int64(attempt)*retrySeedStride, foldSeed)
				if err == nil || !IsExhausted(err) || attempt >= cfg.MaxRetries {
					return err
				}

				logger.Warn("trial exhausted, retrying with a new seed",
					zap.Int(logging.TrialKey, i),
					zap.Int(logging.AttemptKey, attempt+1),
					zap.Error(err),
				)
			}
		})
		if err != nil {
			return SearchResult{}, fmt.Errorf("trial %d: %w", i, err)
		}

		state.Trials = append(state.Trials, res)
		state.Elapsed += elapsed

		if s.checkpoint != nil {
			if err := s.checkpoint.Save(ctx, s.key, state); err != nil {
				return SearchResult{}, fmt.Errorf("save checkpoint: %w", err)
			}
		}
	}

	logger.Info("search completed",
		zap.Int(logging.TrialKey, len(state.Trials)),
		zap.Duration(logging.ElapsedKey, state.Elapsed),
	)

	return SearchResult{Trials: state.Trials, Elapsed: state.Elapsed, Resumed: resumed}, nil
}

//////
// Frequencies.
//////

// ValueCount is how often a hyperparameter value was selected.
type ValueCount struct {
	Value any `json:"value"`
	Count int `json:"count"`
}

// ParamFrequencies counts, per hyperparameter, how often each value occurs
// in configs. Values are ordered by count, then by first occurrence.
func ParamFrequencies(configs []Configuration) map[string][]ValueCount {
	type entry struct {
		ValueCount
		first int
	}

	seen := make(map[string]map[string]*entry)
	for i, cfg := range configs {
		for _, p := range cfg.Params() {
			byValue, ok := seen[p.Name]
			if !ok {
				byValue = make(map[string]*entry)
				seen[p.Name] = byValue
			}

			k := keyValue(p.Value)
			if e, ok := byValue[k]; ok {
				e.Count++
			} else {
				byValue[k] = &entry{ValueCount: ValueCount{Value: p.Value, Count: 1}, first: i}
			}
		}
	}

	out := make(map[string][]ValueCount, len(seen))
	for name, byValue := range seen {
		entries := make([]*entry, 0, len(byValue))
		for _, e := range byValue {
			entries = append(entries, e)
		}
		sort.Slice(entries, func(a, b int) bool {
			if entries[a].Count != entries[b].Count {
				return entries[a].Count > entries[b].Count
			}

			return entries[a].first < entries[b].first
		})

		counts := make([]ValueCount, len(entries))
		for i, e := range entries {
			counts[i] = e.ValueCount
		}
		out[name] = counts
	}

	return out
}
