package lvq

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// Waypoint gradient descent settings.
const (
	wgdWaypoints  = 3
	wgdLossFactor = 2.0 / 3.0
	wgdGainFactor = 1.1
)

// Adam settings.
const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-8
)

// solve minimises obj starting from theta and returns the final point.
func solve(p Params, obj *objective, theta []float64, rng *rand.Rand) ([]float64, error) {
	switch p.Solver {
	case SGD:
		return solveSGD(p, obj, theta, rng), nil
	case Adam:
		return solveAdam(p, obj, theta, rng), nil
	case WGD:
		return solveWGD(p, obj, theta), nil
	case LBFGS:
		return solveQuasiNewton(p, obj, theta, &optimize.LBFGS{})
	case BFGS:
		return solveQuasiNewton(p, obj, theta, &optimize.BFGS{})
	}

	return nil, fmt.Errorf("unknown solver %q", p.Solver)
}

// batches splits a fresh permutation of n rows into batches of size; size 0
// is one batch of everything.
func batches(n, size int, rng *rand.Rand) [][]int {
	perm := rng.Perm(n)
	if size <= 0 || size >= n {
		return [][]int{perm}
	}

	var out [][]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, perm[start:end])
	}

	return out
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}

	return rows
}

func solveSGD(p Params, obj *objective, theta []float64, rng *rand.Rand) []float64 {
	grad := make([]float64, len(theta))

	for run := 0; run < p.MaxRuns; run++ {
		for _, rows := range batches(len(obj.X), p.BatchSize, rng) {
			obj.gradient(grad, theta, rows)
			floats.AddScaled(theta, -p.StepSize, grad)
		}
	}

	return theta
}

func solveAdam(p Params, obj *objective, theta []float64, rng *rand.Rand) []float64 {
	var (
		grad = make([]float64, len(theta))
		m    = make([]float64, len(theta))
		v    = make([]float64, len(theta))
		t    int
	)

	for run := 0; run < p.MaxRuns; run++ {
		for _, rows := range batches(len(obj.X), p.BatchSize, rng) {
			obj.gradient(grad, theta, rows)
			t++

			c1 := 1 - math.Pow(adamBeta1, float64(t))
			c2 := 1 - math.Pow(adamBeta2, float64(t))

			for i, g := range grad {
				m[i] = adamBeta1*m[i] + (1-adamBeta1)*g
				v[i] = adamBeta2*v[i] + (1-adamBeta2)*g*g
				theta[i] -= p.StepSize * (m[i] / c1) / (math.Sqrt(v[i]/c2) + adamEpsilon)
			}
		}
	}

	return theta
}

// solveWGD takes normalised full-batch steps. Once enough waypoints exist,
// their mean replaces the step whenever it has the lower cost, and the step
// size shrinks; otherwise the step is kept and the step size grows.
func solveWGD(p Params, obj *objective, theta []float64) []float64 {
	var (
		grad      = make([]float64, len(theta))
		rows      = allRows(len(obj.X))
		step      = p.StepSize
		waypoints [][]float64
	)

	for run := 0; run < p.MaxRuns; run++ {
		obj.gradient(grad, theta, rows)

		norm := floats.Norm(grad, 2)
		if norm == 0 {
			break
		}

		candidate := append([]float64(nil), theta...)
		floats.AddScaled(candidate, -step/norm, grad)

		waypoints = append(waypoints, candidate)
		if len(waypoints) > wgdWaypoints {
			waypoints = waypoints[1:]
		}

		if len(waypoints) < wgdWaypoints {
			theta = candidate

			continue
		}

		mean := make([]float64, len(theta))
		for _, w := range waypoints {
			floats.Add(mean, w)
		}
		floats.Scale(1/float64(len(waypoints)), mean)

		if obj.cost(mean) < obj.cost(candidate) {
			theta = mean
			step *= wgdLossFactor
		} else {
			theta = candidate
			step *= wgdGainFactor
		}
	}

	return theta
}

func solveQuasiNewton(p Params, obj *objective, theta []float64, method optimize.Method) ([]float64, error) {
	rows := allRows(len(obj.X))

	problem := optimize.Problem{
		Func: obj.cost,
		Grad: func(grad, x []float64) {
			obj.gradient(grad, x, rows)
		},
	}

	settings := &optimize.Settings{
		MajorIterations:   p.MaxRuns,
		GradientThreshold: 1e-8,
	}

	result, err := optimize.Minimize(problem, theta, settings, method)
	if result == nil {
		return nil, err
	}

	// A line search that stalls after progress still leaves a usable point.
	if err != nil && result.F > obj.cost(theta) {
		return nil, err
	}

	return result.X, nil
}
