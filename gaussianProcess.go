package hoselect

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
)

//////
// Const, vars, types.
//////

const (
	// gpJitter is added to the kernel diagonal so the Cholesky factorization
	// stays positive definite.
	gpJitter = 1e-6

	// gpMinVariance is the floor of a predicted variance.
	gpMinVariance = 1e-12
)

// gaussianProcess implements a thread-safe Gaussian Process regressor over
// encoded configurations. It predicts the loss of untested configurations
// based on previously observed ones.
//
// Fields:
// - mu: RWMutex for thread-safe access to all fields
// - X: Observed input points (encoded configurations)
// - Y: Observed losses at each input point
// - sigma: Kernel width parameter controlling the smoothness of interpolation
// - chol, alpha: Posterior state, refreshed on every Update
//
// Thread safety:
// - Predict takes the read lock, Update and SetSigma the write lock.
type gaussianProcess struct {
	mu sync.RWMutex

	X [][]float64
	Y []float64

	sigma float64

	// offset is the mean of Y; the process models Y - offset.
	offset float64
	chol   *mat.Cholesky
	alpha  *mat.VecDense
}

//////
// Methods.
//////

// RBFKernel implements the Radial Basis Function kernel:
//
//	k(x1, x2) = exp(-sum((x1 - x2)^2) / (2 * sigma^2))
//
// Important notes:
// - Panics if input vectors have different lengths
// - Returns 1.0 for identical points
// - The caller must hold gp.mu.
func (gp *gaussianProcess) RBFKernel(x1, x2 []float64) float64 {
	if len(x1) != len(x2) {
		panic("input vectors must have the same length")
	}

	var sum float64

	for i := range x1 {
		diff := x1[i] - x2[i]

		sum += diff * diff
	}

	return math.Exp(-sum / (2 * gp.sigma * gp.sigma))
}

// Predict returns the posterior mean and variance of the loss at x.
//
// Mathematical details:
//
//	mean     = offset + k(x)ᵀ K⁻¹ (Y - offset)
//	variance = 1 - k(x)ᵀ K⁻¹ k(x)
//
// where K is the kernel matrix of the observations plus jitter. Returns
// (0, 1), the prior, when nothing was observed. The variance is clamped to
// [gpMinVariance, 1].
func (gp *gaussianProcess) Predict(x []float64) (mean, variance float64) {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	if len(gp.X) == 0 || gp.chol == nil {
		return 0, 1
	}

	k := mat.NewVecDense(len(gp.X), nil)
	for i := range gp.X {
		k.SetVec(i, gp.RBFKernel(x, gp.X[i]))
	}

	mean = gp.offset + mat.Dot(k, gp.alpha)

	var w mat.VecDense
	if err := gp.chol.SolveVecTo(&w, k); err != nil {
		return mean, 1
	}

	variance = 1 - mat.Dot(k, &w)

	return mean, math.Min(1, math.Max(variance, gpMinVariance))
}

// Update adds a new observation and refreshes the posterior.
//
// Important notes:
// - Creates a deep copy of x to prevent external modifications
// - O(n³) in the number of observations; a trial observes at most
//   Iterations points.
func (gp *gaussianProcess) Update(x []float64, y float64) {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	newX := make([]float64, len(x))
	copy(newX, x)

	gp.X = append(gp.X, newX)
	gp.Y = append(gp.Y, y)

	gp.refit()
}

// SetSigma updates the kernel width and refreshes the posterior.
func (gp *gaussianProcess) SetSigma(sigma float64) {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	gp.sigma = sigma
	gp.refit()
}

// GetSigma returns the current kernel width.
func (gp *gaussianProcess) GetSigma() float64 {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	return gp.sigma
}

// refit factorizes the kernel matrix, growing the jitter until it is
// positive definite. The caller must hold the write lock.
func (gp *gaussianProcess) refit() {
	n := len(gp.X)
	if n == 0 {
		gp.chol, gp.alpha = nil, nil

		return
	}

	gp.offset = Mean(gp.Y)

	centered := mat.NewVecDense(n, nil)
	for i, y := range gp.Y {
		centered.SetVec(i, y-gp.offset)
	}

	for jitter := gpJitter; jitter <= 1; jitter *= 10 {
		K := mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				K.SetSym(i, j, gp.RBFKernel(gp.X[i], gp.X[j]))
			}
			K.SetSym(i, i, 1+jitter)
		}

		var chol mat.Cholesky
		if !chol.Factorize(K) {
			continue
		}

		var alpha mat.VecDense
		if err := chol.SolveVecTo(&alpha, centered); err != nil {
			continue
		}

		gp.chol, gp.alpha = &chol, &alpha

		return
	}

	gp.chol, gp.alpha = nil, nil
}

//////
// Factory.
//////

// newGaussianProcess creates a Gaussian Process with sigma = 0.5, suited to
// inputs normalized to [0, 1].
func newGaussianProcess() *gaussianProcess {
	return &gaussianProcess{
		sigma: 0.5,
	}
}
