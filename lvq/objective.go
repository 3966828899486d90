package lvq

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

func dist(t DistanceType, x, w []float64) float64 {
	sq := floats.Distance(x, w, 2)
	if t == Euclidean {
		return sq
	}

	return sq * sq
}

// objective is the GLVQ cost over a training set, as a function of the
// flattened prototype vector theta.
type objective struct {
	X        [][]float64
	y        []int
	labels   []int
	features int
	distance DistanceType
	act      activation
}

func (o *objective) proto(theta []float64, j int) []float64 {
	return theta[j*o.features : (j+1)*o.features]
}

// nearest returns the closest prototype with label y (J, d1) and the closest
// with another label (K, d2).
func (o *objective) nearest(theta, x []float64, y int) (J int, d1 float64, K int, d2 float64) {
	d1, d2 = math.Inf(1), math.Inf(1)
	for j, label := range o.labels {
		d := dist(o.distance, x, o.proto(theta, j))
		if label == y {
			if d < d1 {
				J, d1 = j, d
			}
		} else if d < d2 {
			K, d2 = j, d
		}
	}

	return J, d1, K, d2
}

func mu(d1, d2 float64) float64 {
	if s := d1 + d2; s > 0 {
		return (d1 - d2) / s
	}

	return 0
}

// cost is the mean activation over every training row.
func (o *objective) cost(theta []float64) float64 {
	var sum float64
	for i, x := range o.X {
		_, d1, _, d2 := o.nearest(theta, x, o.y[i])
		sum += o.act.f(mu(d1, d2))
	}

	return sum / float64(len(o.X))
}

// gradient stores in grad the gradient of the mean cost over rows.
func (o *objective) gradient(grad, theta []float64, rows []int) {
	for i := range grad {
		grad[i] = 0
	}

	diff := make([]float64, o.features)
	for _, r := range rows {
		x := o.X[r]

		J, d1, K, d2 := o.nearest(theta, x, o.y[r])

		s := d1 + d2
		if s == 0 {
			continue
		}

		fp := o.act.deriv(mu(d1, d2))
		o.accumulate(grad, theta, x, J, d1, fp*2*d2/(s*s), diff)
		o.accumulate(grad, theta, x, K, d2, -fp*2*d1/(s*s), diff)
	}

	floats.Scale(1/float64(len(rows)), grad)
}

// accumulate adds coef * d(distance)/d(prototype j) to the gradient of j.
func (o *objective) accumulate(grad, theta, x []float64, j int, d, coef float64, diff []float64) {
	// d/dw ||x - w||^2 = -2 (x - w); d/dw ||x - w|| = -(x - w) / ||x - w||
	floats.SubTo(diff, x, o.proto(theta, j))

	scale := -2.0
	if o.distance == Euclidean {
		if d == 0 {
			return
		}
		scale = -1 / d
	}

	floats.AddScaled(grad[j*o.features:(j+1)*o.features], coef*scale, diff)
}
