package hoselect

import (
	"math/rand"
	"runtime"

	"go.uber.org/zap"
)

// Phase names the stage of the pipeline a ProgressUpdate comes from.
type Phase string

const (
	// PhaseSearch is a randomized-search trial evaluating sampled
	// configurations.
	PhaseSearch Phase = "Search"

	// PhaseScreen is the exhaustive grid screening pass.
	PhaseScreen Phase = "Screen"

	// PhaseStability is the fixed-fold re-evaluation of the candidate pool.
	PhaseStability Phase = "Stability"

	// PhaseCurve is one point of the learning-curve sweep.
	PhaseCurve Phase = "LearningCurve"
)

// ProgressUpdate represents the current state of a running stage.
type ProgressUpdate struct {
	// Phase indicates which stage produced the update.
	Phase Phase

	// Trial is the zero-based trial index during PhaseSearch.
	Trial int

	// CurrentIteration is the current iteration number within the stage.
	CurrentIteration int

	// TotalIterations is the total number of iterations of the stage.
	TotalIterations int

	// CurrentParams holds the configuration just evaluated.
	CurrentParams Configuration

	// CurrentBestParams holds the best configuration found so far.
	CurrentBestParams Configuration

	// CurrentBestScore holds the best mean score found so far.
	CurrentBestScore float64

	// LastScore holds the mean score of CurrentParams, NaN if it failed.
	LastScore float64
}

// Strategy selects how a trial draws configurations from the search space.
type Strategy string

const (
	// StrategyRandom draws configurations uniformly without replacement.
	StrategyRandom Strategy = "random"

	// StrategyBayesian lets a Gaussian Process pick the next configuration.
	StrategyBayesian Strategy = "bayesian"
)

// PoolSource selects where the Stability Analyzer's candidate pool comes
// from when the Pipeline runs.
type PoolSource string

const (
	// PoolFromSearch uses the best configuration of every search trial.
	PoolFromSearch PoolSource = "search"

	// PoolFromScreen uses the top configurations of an exhaustive screening.
	PoolFromScreen PoolSource = "screen"
)

// AcquisitionFunc defines the signature for acquisition functions used by
// the bayesian strategy. These functions help decide which configuration of
// the search space should be evaluated next.
//
// Parameters:
// - mean: The predicted loss at a point (lower is better)
// - variance: The predicted variance/uncertainty at that point
// - params: Additional parameters needed by specific acquisition functions
//
// Returns:
// - float64: Acquisition value (lower values indicate more promising points)
//
// Built-in acquisition functions:
// - UCB: Upper Confidence Bound
// - ProbabilityOfImprovement: Probability of finding better value
// - ExpectedImprovement: Expected magnitude of improvement
// - ThompsonSampling: Random sampling from posterior
//
// Implementation notes for custom acquisition functions:
// - Should handle zero variance
// - Should be deterministic given params.RandomState
// - Should return lower values for more promising points.
type AcquisitionFunc func(mean, variance float64, params AcquisitionParams) float64

// AcquisitionParams holds parameters used by different acquisition functions
// to balance exploring uncertain configurations against exploiting known good
// ones.
type AcquisitionParams struct {
	// Beta controls the exploration-exploitation trade-off in UCB.
	// - Higher values (e.g., 3.0 or 5.0) encourage more exploration
	// - Lower values (e.g., 0.1 or 0.5) focus on known good areas
	Beta float64

	// Xi is the minimum improvement PI and EI ask for over BestSoFar.
	// Typical values range from 0.01 to 0.1.
	Xi float64

	// BestSoFar is the lowest loss observed so far. Loss is the negated mean
	// score, so it lives in [-1, 0] for the built-in metrics. Maintained by
	// the sampler; any value set here is overwritten.
	BestSoFar float64

	// RandomState is the generator used by Thompson Sampling. The sampler
	// installs one seeded with the trial seed.
	RandomState *rand.Rand
}

// BayesianParams configures the bayesian strategy.
type BayesianParams struct {
	// InitialSamples is how many configurations are drawn at random before
	// the Gaussian Process starts steering.
	InitialSamples int

	// NumCandidates is how many unseen configurations are scored by the
	// acquisition function per step.
	NumCandidates int

	// Acquisition names the acquisition function: ucb, pi, ei or thompson.
	// Ignored when AcquisitionFunc is set.
	Acquisition string

	// AcquisitionFunc overrides Acquisition with a custom function.
	AcquisitionFunc AcquisitionFunc

	// AcqParams holds the parameters for the acquisition function.
	AcqParams AcquisitionParams
}

// Config holds every knob of the selection harness. Start from
// DefaultConfig() and adjust as needed.
//
// Fields explanation:
// - Metric: Scoring metric used by every component (accuracy, precision, recall, f1)
// - Folds: Number of stratified cross-validation folds
// - Iterations: Configurations sampled per trial
// - Trials: Number of independent trials run by the Searcher
// - Seed: Base seed; trial i uses Seed+i
// - StabilityPercentile: Percentile of fold-score stds used as the stability threshold
// - TopK: Pool size kept from a screening pass
//
// Usage example:
//
//	cfg := DefaultConfig()
//	cfg.Trials = 50
//	cfg.Logger = logger
//
//	runner, err := NewTrialRunner(dataset, factory, space, cfg)
type Config struct {
	// Metric is the scoring metric name. See ScorerFor.
	Metric string

	// Folds is the k of stratified k-fold cross-validation.
	Folds int

	// Iterations is the number of configurations a trial evaluates, capped
	// by the size of the search space.
	Iterations int

	// Trials is the number of trials the Searcher runs.
	Trials int

	// Seed is the base seed. Fold assignment in the Stability Analyzer and
	// (unless VaryTrialFolds) in every trial uses Seed itself; estimators are
	// always built with Seed.
	Seed int64

	// Workers bounds how many folds are fitted concurrently.
	Workers int

	// Strategy selects the trial sampling strategy.
	Strategy Strategy

	// Bayesian configures StrategyBayesian.
	Bayesian BayesianParams

	// VaryTrialFolds makes trial i draw its folds from Seed+i instead of Seed.
	VaryTrialFolds bool

	// MaxRetries is how many times an exhausted trial is retried with a fresh
	// seed before the failure is propagated.
	MaxRetries int

	// StabilityPercentile is the percentile (0..100) of the pool's std
	// distribution below which a configuration is stable.
	StabilityPercentile float64

	// TopK is how many screened configurations form the candidate pool.
	TopK int

	// CurveStartPercent and CurveStepPercent define the learning-curve
	// training-set fractions.
	CurveStartPercent int
	CurveStepPercent  int

	// PoolSource selects the Pipeline's candidate pool source.
	PoolSource PoolSource

	// Logger receives structured logs. If nil, nothing is logged.
	Logger *zap.Logger

	// ProgressChan is used to send progress updates.
	// If nil, no updates will be sent.
	ProgressChan chan<- ProgressUpdate
}

//////
// Exported functionalities.
//////

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		Metric:     MetricAccuracy,
		Folds:      5,
		Iterations: 20,
		Trials:     20,
		Seed:       51,
		Workers:    runtime.NumCPU(),
		Strategy:   StrategyRandom,
		Bayesian: BayesianParams{
			InitialSamples: 5,
			NumCandidates:  50,
			Acquisition:    AcquisitionUCB,
			AcqParams: AcquisitionParams{
				Beta: 2.0,
				Xi:   0.01,
			},
		},
		StabilityPercentile: 25,
		TopK:                20,
		CurveStartPercent:   20,
		CurveStepPercent:    5,
		PoolSource:          PoolFromSearch,
		ProgressChan:        nil, // Default to no progress updates.
	}
}

//////
// Helpers.
//////

func (c Config) validate() error {
	if _, err := ScorerFor(c.Metric); err != nil {
		return err
	}

	switch {
	case c.Folds < 2:
		return invalidInput("folds must be at least 2, got %d", c.Folds)
	case c.Iterations < 1:
		return invalidInput("iterations must be positive, got %d", c.Iterations)
	case c.Trials < 1:
		return invalidInput("trials must be positive, got %d", c.Trials)
	case c.Workers < 1:
		return invalidInput("workers must be positive, got %d", c.Workers)
	case c.MaxRetries < 0:
		return invalidInput("max retries must not be negative, got %d", c.MaxRetries)
	case c.StabilityPercentile < 0 || c.StabilityPercentile > 100:
		return invalidInput("stability percentile must be within [0, 100], got %g", c.StabilityPercentile)
	case c.TopK < 1:
		return invalidInput("top k must be positive, got %d", c.TopK)
	case c.CurveStartPercent < 1 || c.CurveStartPercent > 100:
		return invalidInput("curve start percent must be within [1, 100], got %d", c.CurveStartPercent)
	case c.CurveStepPercent < 1:
		return invalidInput("curve step percent must be positive, got %d", c.CurveStepPercent)
	}

	switch c.Strategy {
	case StrategyRandom:
	case StrategyBayesian:
		if c.Bayesian.InitialSamples < 1 {
			return invalidInput("bayesian initial samples must be positive, got %d", c.Bayesian.InitialSamples)
		}
		if c.Bayesian.NumCandidates < 1 {
			return invalidInput("bayesian candidates must be positive, got %d", c.Bayesian.NumCandidates)
		}
		if c.Bayesian.AcquisitionFunc == nil {
			if _, err := AcquisitionFuncFor(c.Bayesian.Acquisition); err != nil {
				return err
			}
		}
	default:
		return invalidInput("unknown strategy %q", c.Strategy)
	}

	switch c.PoolSource {
	case PoolFromSearch, PoolFromScreen:
	default:
		return invalidInput("unknown pool source %q", c.PoolSource)
	}

	return nil
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}

	return c.Logger
}

func (c Config) sendProgress(update ProgressUpdate) {
	if c.ProgressChan == nil {
		return
	}

	select {
	case c.ProgressChan <- update:
	default:
		// Skip update if channel is full.
	}
}
