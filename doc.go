// Package hoselect selects a robust binary classifier configuration by
// combining repeated randomized hyperparameter search with a stability-aware
// selection step, then reports held-out performance of the chosen
// configuration.
//
// # Features
//
// The package includes the following key features:
//
//   - Trial Runner: one randomized search over a SearchSpace, scoring every
//     sampled Configuration by stratified k-fold cross-validation
//   - Searcher: repeats the Trial Runner with seeds Seed, Seed+1, ... and can
//     resume from a Checkpointer without re-running completed trials
//   - Screener: exhaustive alternative that scores the whole grid and keeps
//     the top K
//   - Stability Analyzer: re-evaluates a candidate pool on identical folds and
//     picks the best mean among configurations whose fold-score standard
//     deviation is within a percentile threshold
//   - Learning-Curve Evaluator: fits growing training prefixes, then one full
//     fit, and produces the MetricsReport (accuracy, precision, recall, F1 on
//     train and test, plus test AUC)
//   - Sampling strategies: reproducible random draws, or Gaussian Process
//     guided sampling with UCB, PI, EI and Thompson acquisition functions
//   - Progress Monitoring: non-blocking updates via Config.ProgressChan
//
// # Estimators
//
// The harness never trains a model itself. It drives any Estimator built by
// an EstimatorFactory from a Configuration and a seed. AUC additionally needs
// a ProbabilityEstimator or a DecisionEstimator; without one the report's AUC
// is nil and every other metric is still computed. See package lvq for the
// bundled GLVQ family.
//
// # Determinism
//
// Fold membership is a pure function of labels, fold count and seed. The
// Stability Analyzer always uses Config.Seed, and so do trials unless
// Config.VaryTrialFolds is set, so scores from both stages are comparable.
// Re-running any stage with the same inputs yields identical results for a
// deterministic estimator.
//
// # Errors
//
// A configuration failing to build, fit or predict is recovered locally:
// logged, recorded as a Failure and excluded from comparison. Everything else
// is returned:
//   - ErrInvalidInput: contract violations, raised before any fold is fitted
//   - ErrEmptyPool: the Stability Analyzer received no candidates
//   - ErrExhaustedSearchSpace: every configuration of a trial failed
//     (*ExhaustionError), after Config.MaxRetries fresh seeds
//   - ErrUnsupportedEstimator: recorded in CurveResult.AUCError only
//
// # Configuration
//
// Start from DefaultConfig():
//
//	cfg := DefaultConfig()          // accuracy, 5 folds, 20 trials of 20 iterations, seed 51
//	cfg.StabilityPercentile = 25    // stability threshold
//	cfg.Strategy = StrategyBayesian // GP-guided sampling
//	cfg.Bayesian.Acquisition = AcquisitionEI
package hoselect
