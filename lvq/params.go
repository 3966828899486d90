package lvq

import (
	"fmt"

	"github.com/thalesfsp/hoselect"
)

// DistanceType selects the dissimilarity between a sample and a prototype.
type DistanceType string

const (
	SquaredEuclidean DistanceType = "squared-euclidean"
	Euclidean        DistanceType = "euclidean"
)

// ActivationType selects the function applied to the relative distance
// difference mu before averaging into the cost.
type ActivationType string

const (
	Identity ActivationType = "identity"
	Sigmoid  ActivationType = "sigmoid"
	SoftPlus ActivationType = "soft+"
	Swish    ActivationType = "swish"
)

// SolverType selects how the cost is minimised.
type SolverType string

const (
	// SGD is stochastic gradient descent over shuffled batches.
	SGD SolverType = "sgd"

	// WGD is waypoint gradient descent: normalised full-batch steps with an
	// adaptive step size, falling back to the mean of the last waypoints
	// when that is better.
	WGD SolverType = "wgd"

	// Adam is stochastic gradient descent with adaptive moments.
	Adam SolverType = "adam"

	// LBFGS and BFGS are the quasi-Newton methods of gonum/optimize.
	LBFGS SolverType = "lbfgs"
	BFGS  SolverType = "bfgs"
)

// Configuration keys understood by ParseParams.
const (
	KeyDistance           = "distance_type"
	KeyActivation         = "activation_type"
	KeyActivationBeta     = "activation_beta"
	KeySolver             = "solver_type"
	KeyStepSize           = "step_size"
	KeyMaxRuns            = "max_runs"
	KeyBatchSize          = "batch_size"
	KeyPrototypesPerClass = "prototypes_per_class"
)

// Params is the validated hyperparameter set of a GLVQ model.
type Params struct {
	Distance       DistanceType
	Activation     ActivationType
	ActivationBeta float64
	Solver         SolverType

	// StepSize is the learning rate of sgd, wgd and adam.
	StepSize float64

	// MaxRuns is the number of passes over the data for sgd, wgd and adam,
	// and the major iteration limit for lbfgs and bfgs.
	MaxRuns int

	// BatchSize is the mini-batch size of sgd and adam; 0 means the whole
	// training set.
	BatchSize int

	PrototypesPerClass int
}

// DefaultParams returns the parameters used for any key a Configuration
// leaves out.
func DefaultParams() Params {
	return Params{
		Distance:           SquaredEuclidean,
		Activation:         Sigmoid,
		ActivationBeta:     1,
		Solver:             SGD,
		StepSize:           0.1,
		MaxRuns:            10,
		BatchSize:          1,
		PrototypesPerClass: 1,
	}
}

// quasiNewtonMaxRuns replaces the default MaxRuns for lbfgs and bfgs when the
// configuration does not set max_runs.
const quasiNewtonMaxRuns = 100

// ParseParams builds Params from a Configuration, starting from
// DefaultParams. Unknown keys and invalid values are rejected with
// hoselect.ErrInvalidConfiguration.
func ParseParams(cfg hoselect.Configuration) (Params, error) {
	p := DefaultParams()

	var maxRunsSet bool

	for _, param := range cfg.Params() {
		var err error

		switch param.Name {
		case KeyDistance:
			var v string
			v, _, err = cfg.StringValue(param.Name)
			p.Distance = DistanceType(v)
		case KeyActivation:
			var v string
			v, _, err = cfg.StringValue(param.Name)
			p.Activation = ActivationType(v)
		case KeyActivationBeta:
			p.ActivationBeta, _, err = cfg.FloatValue(param.Name)
		case KeySolver:
			var v string
			v, _, err = cfg.StringValue(param.Name)
			p.Solver = SolverType(v)
		case KeyStepSize:
			p.StepSize, _, err = cfg.FloatValue(param.Name)
		case KeyMaxRuns:
			p.MaxRuns, _, err = cfg.IntValue(param.Name)
			maxRunsSet = true
		case KeyBatchSize:
			p.BatchSize, _, err = cfg.IntValue(param.Name)
		case KeyPrototypesPerClass:
			p.PrototypesPerClass, _, err = cfg.IntValue(param.Name)
		default:
			err = fmt.Errorf("%w: unknown hyperparameter %q", hoselect.ErrInvalidConfiguration, param.Name)
		}

		if err != nil {
			return Params{}, err
		}
	}

	if !maxRunsSet && (p.Solver == LBFGS || p.Solver == BFGS) {
		p.MaxRuns = quasiNewtonMaxRuns
	}

	if err := p.Validate(); err != nil {
		return Params{}, err
	}

	return p, nil
}

// Validate checks every field.
func (p Params) Validate() error {
	switch p.Distance {
	case SquaredEuclidean, Euclidean:
	default:
		return invalid("unknown %s %q", KeyDistance, p.Distance)
	}

	switch p.Activation {
	case Identity, Sigmoid, SoftPlus, Swish:
	default:
		return invalid("unknown %s %q", KeyActivation, p.Activation)
	}

	switch p.Solver {
	case SGD, WGD, Adam, LBFGS, BFGS:
	default:
		return invalid("unknown %s %q", KeySolver, p.Solver)
	}

	switch {
	case !(p.ActivationBeta > 0):
		return invalid("%s must be positive, got %g", KeyActivationBeta, p.ActivationBeta)
	case !(p.StepSize > 0):
		return invalid("%s must be positive, got %g", KeyStepSize, p.StepSize)
	case p.MaxRuns < 1:
		return invalid("%s must be positive, got %d", KeyMaxRuns, p.MaxRuns)
	case p.BatchSize < 0:
		return invalid("%s must not be negative, got %d", KeyBatchSize, p.BatchSize)
	case p.PrototypesPerClass < 1:
		return invalid("%s must be at least 1, got %d", KeyPrototypesPerClass, p.PrototypesPerClass)
	}

	return nil
}

// Configuration renders p back into a hoselect.Configuration.
func (p Params) Configuration() hoselect.Configuration {
	return hoselect.NewConfiguration(map[string]any{
		KeyDistance:           string(p.Distance),
		KeyActivation:         string(p.Activation),
		KeyActivationBeta:     p.ActivationBeta,
		KeySolver:             string(p.Solver),
		KeyStepSize:           p.StepSize,
		KeyMaxRuns:            p.MaxRuns,
		KeyBatchSize:          p.BatchSize,
		KeyPrototypesPerClass: p.PrototypesPerClass,
	})
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", hoselect.ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
