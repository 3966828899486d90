package hoselect

import (
	"errors"
	"fmt"
)

//////
// Sentinel errors.
//////

var (
	// ErrInvalidInput is returned when data handed to a component violates its
	// contract (mismatched lengths, non-binary labels, non-finite features).
	// It is always raised before any cross-validation work begins.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyPool is returned by the Stability Analyzer for an empty
	// candidate pool.
	ErrEmptyPool = errors.New("empty candidate pool")

	// ErrExhaustedSearchSpace is returned when every sampled configuration of
	// a trial (or of a screening pass) failed.
	ErrExhaustedSearchSpace = errors.New("exhausted search space")

	// ErrUnsupportedEstimator is returned when AUC is requested from an
	// estimator exposing neither probability nor decision-score output.
	ErrUnsupportedEstimator = errors.New("unsupported estimator")

	// ErrInvalidConfiguration is returned by estimator factories when a
	// configuration names an unknown hyperparameter or carries a bad value.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnknownMetric is returned for a scoring metric name with no scorer.
	ErrUnknownMetric = errors.New("unknown metric")
)

//////
// Typed errors.
//////

// ConfigurationError records why one configuration could not be evaluated.
// It is recovered locally by the caller: logged, recorded as a Failure and
// excluded from comparison.
type ConfigurationError struct {
	Config Configuration
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %v", e.Config, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ExhaustionError is raised when no configuration of a trial succeeded.
type ExhaustionError struct {
	Trial    int
	Seed     int64
	Failures []Failure
}

func (e *ExhaustionError) Error() string {
	return fmt.Sprintf("trial %d (seed %d): all %d configurations failed: %v",
		e.Trial, e.Seed, len(e.Failures), ErrExhaustedSearchSpace)
}

func (e *ExhaustionError) Unwrap() error { return ErrExhaustedSearchSpace }

// Failure is the serializable record of a failed configuration.
type Failure struct {
	Config Configuration `json:"config"`
	Reason string        `json:"reason"`
}

func newFailure(ev Evaluation) Failure {
	return Failure{Config: ev.Config, Reason: ev.Err.Error()}
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
