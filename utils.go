package hoselect

import (
	"math"
	"sort"
	"time"

	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/stat"
)

//////
// Helper functions.
//////

// Mean returns the arithmetic mean of xs, or NaN for an empty slice.
func Mean[T constraints.Integer | constraints.Float](xs []T) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}

	return stat.Mean(asFloat64s(xs), nil)
}

// StdDev returns the population standard deviation of xs (divides by n, not
// n-1), or NaN for an empty slice.
//
// Important notes:
//   - Fold scores are the whole population being summarized, hence ddof = 0
//   - A single value has a standard deviation of 0
func StdDev[T constraints.Integer | constraints.Float](xs []T) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}

	return stat.PopStdDev(asFloat64s(xs), nil)
}

// asFloat64s returns xs as []float64, without copying when it already is one.
func asFloat64s[T constraints.Integer | constraints.Float](xs []T) []float64 {
	if fs, ok := any(xs).([]float64); ok {
		return fs
	}

	fs := make([]float64, len(xs))
	for i, x := range xs {
		fs[i] = float64(x)
	}

	return fs
}

// Percentile returns the p-th percentile (0 <= p <= 100) of xs using linear
// interpolation between the closest ranks:
//
//	rank = p/100 * (n-1)
//	value = s[floor(rank)] + frac(rank) * (s[ceil(rank)] - s[floor(rank)])
//
// xs is not modified. Returns NaN for an empty slice.
func Percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}

	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo < 0 {
		lo = 0
	}
	if hi >= len(sorted) {
		hi = len(sorted) - 1
	}

	return sorted[lo] + (rank-float64(lo))*(sorted[hi]-sorted[lo])
}

// Helper function used by PI and EI to compute the cumulative distribution
// function of the standard normal distribution.
func normalCDF(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}

// Helper function used by EI to compute the probability density function
// of the standard normal distribution.
func normalPDF(x float64) float64 {
	return math.Exp(-x*x/2.0) / math.Sqrt(2.0*math.Pi)
}

// measure runs f and returns its error along with the wall-clock time spent.
func measure(f func() error) (time.Duration, error) {
	start := time.Now()
	err := f()

	return time.Since(start), err
}
