package hoselect

import (
	"fmt"
	"math"
)

// Names accepted by AcquisitionFuncFor.
const (
	AcquisitionUCB      = "ucb"
	AcquisitionPI       = "pi"
	AcquisitionEI       = "ei"
	AcquisitionThompson = "thompson"
)

//////
// Available acquisition functions for the bayesian strategy.
// Each function helps decide which configuration to evaluate next by
// balancing exploration (trying uncertain areas) and exploitation (focusing
// on known good areas). The Gaussian Process models loss, the negated mean
// score, so every function returns lower values for better points.
//////

// AcquisitionFuncFor returns the built-in acquisition function named name.
func AcquisitionFuncFor(name string) (AcquisitionFunc, error) {
	switch name {
	case AcquisitionUCB:
		return UCB, nil
	case AcquisitionPI:
		return ProbabilityOfImprovement, nil
	case AcquisitionEI:
		return ExpectedImprovement, nil
	case AcquisitionThompson:
		return ThompsonSampling, nil
	}

	return nil, invalidInput("unknown acquisition function %q", name)
}

// UCB implements the (lower) confidence bound acquisition function.
//
// How it works:
// - Combines the predicted loss with the uncertainty (variance)
// - Lower values are better
// - The Beta parameter controls the trade-off between exploration and exploitation
//
// Example:
//
//	params := AcquisitionParams{
//	    Beta: 2.0,  // Balance between exploration and exploitation
//	}
//	value := UCB(-0.85, 0.2, params)
func UCB(mean, variance float64, params AcquisitionParams) float64 {
	return mean - params.Beta*math.Sqrt(variance)
}

// ProbabilityOfImprovement (PI) scores a point by the probability that its
// loss beats BestSoFar by at least Xi, negated so that lower is better.
//
// When to use:
// - When you want to be conservative in exploring new points
// - In problems where being "probably better" matters more than "how much better"
func ProbabilityOfImprovement(mean, variance float64, params AcquisitionParams) float64 {
	improvement := params.BestSoFar - params.Xi - mean

	sigma := math.Sqrt(variance)
	if sigma == 0 {
		if improvement > 0 {
			return -1
		}

		return 0
	}

	return -normalCDF(improvement / sigma)
}

// ExpectedImprovement (EI) scores a point by the expected amount its loss
// falls below BestSoFar - Xi, negated so that lower is better.
//
// How it works:
// - Combines the probability of improvement with the magnitude of improvement
// - Often provides better exploration than PI
func ExpectedImprovement(mean, variance float64, params AcquisitionParams) float64 {
	improvement := params.BestSoFar - params.Xi - mean

	sigma := math.Sqrt(variance)
	if sigma == 0 {
		return -math.Max(improvement, 0)
	}

	z := improvement / sigma

	return -(improvement*normalCDF(z) + sigma*normalPDF(z))
}

// ThompsonSampling draws one sample from the posterior at the point.
//
// Warning:
// - params.RandomState must not be nil.
func ThompsonSampling(mean, variance float64, params AcquisitionParams) float64 {
	return mean + math.Sqrt(variance)*params.RandomState.NormFloat64()
}

func resolveAcquisition(p BayesianParams) (AcquisitionFunc, error) {
	if p.AcquisitionFunc != nil {
		return p.AcquisitionFunc, nil
	}

	fn, err := AcquisitionFuncFor(p.Acquisition)
	if err != nil {
		return nil, fmt.Errorf("bayesian strategy: %w", err)
	}

	return fn, nil
}
