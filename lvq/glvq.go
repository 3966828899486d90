// Package lvq implements Generalized Learning Vector Quantization (GLVQ), a
// prototype-based binary classifier, as a hoselect.Estimator.
//
// A model holds PrototypesPerClass prototypes per label. For a sample x with
// label c, let d+ be the distance to the nearest prototype of class c and d-
// the distance to the nearest prototype of the other class. Training
// minimises
//
//	cost = mean over samples of f((d+ - d-) / (d+ + d-))
//
// where f is the configured activation. Prediction is the label of the
// nearest prototype.
package lvq

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/thalesfsp/hoselect"
)

// ErrNotFitted is returned by prediction methods of an untrained model.
var ErrNotFitted = errors.New("lvq: model is not fitted")

// initJitter scales the noise added to extra prototypes of a class.
const initJitter = 1e-2

// GLVQ is a Generalized LVQ classifier. It is not safe for concurrent use;
// build one instance per goroutine.
type GLVQ struct {
	params Params
	seed   int64

	features   int
	prototypes [][]float64
	labels     []int
}

// New returns an untrained model. seed drives prototype initialisation and
// batch shuffling.
func New(p Params, seed int64) *GLVQ {
	return &GLVQ{params: p, seed: seed}
}

// Factory builds a GLVQ from a hoselect.Configuration. It is a
// hoselect.EstimatorFactory.
func Factory(cfg hoselect.Configuration, seed int64) (hoselect.Estimator, error) {
	p, err := ParseParams(cfg)
	if err != nil {
		return nil, err
	}

	return New(p, seed), nil
}

// Params returns the model's hyperparameters.
func (m *GLVQ) Params() Params { return m.params }

// Prototypes returns a copy of the trained prototypes and their labels.
func (m *GLVQ) Prototypes() ([][]float64, []int) {
	protos := make([][]float64, len(m.prototypes))
	for i, p := range m.prototypes {
		protos[i] = append([]float64(nil), p...)
	}

	return protos, append([]int(nil), m.labels...)
}

// Fit trains the prototypes on X and binary labels y.
func (m *GLVQ) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errors.New("lvq: no training rows")
	}
	if len(X) != len(y) {
		return fmt.Errorf("lvq: %d rows but %d labels", len(X), len(y))
	}

	features := len(X[0])
	rng := rand.New(rand.NewSource(m.seed))

	protos, labels, err := initPrototypes(X, y, features, m.params.PrototypesPerClass, rng)
	if err != nil {
		return err
	}

	obj := &objective{
		X:        X,
		y:        y,
		labels:   labels,
		features: features,
		distance: m.params.Distance,
		act:      newActivation(m.params.Activation, m.params.ActivationBeta),
	}

	theta, err := solve(m.params, obj, flatten(protos), rng)
	if err != nil {
		return fmt.Errorf("lvq: %s solver: %w", m.params.Solver, err)
	}

	if cost := obj.cost(theta); math.IsNaN(cost) || math.IsInf(cost, 0) {
		return fmt.Errorf("lvq: %s solver diverged: cost is %v", m.params.Solver, cost)
	}

	m.features = features
	m.prototypes = unflatten(theta, features)
	m.labels = labels

	return nil
}

// Predict returns the label of the nearest prototype for every row.
func (m *GLVQ) Predict(X [][]float64) ([]int, error) {
	if err := m.check(X); err != nil {
		return nil, err
	}

	pred := make([]int, len(X))
	for i, x := range X {
		best := math.Inf(1)
		for j, w := range m.prototypes {
			if d := dist(m.params.Distance, x, w); d < best {
				best = d
				pred[i] = m.labels[j]
			}
		}
	}

	return pred, nil
}

// DecisionFunction returns (d0 - d1) / (d0 + d1) per row, where dk is the
// distance to the nearest prototype of class k. Positive values favour
// label 1.
func (m *GLVQ) DecisionFunction(X [][]float64) ([]float64, error) {
	if err := m.check(X); err != nil {
		return nil, err
	}

	scores := make([]float64, len(X))
	for i, x := range X {
		d := m.classDistances(x)
		if s := d[0] + d[1]; s > 0 {
			scores[i] = (d[0] - d[1]) / s
		}
	}

	return scores, nil
}

// PredictProba returns, per row, a softmax over the negated class distances:
// column k is the probability of label k.
func (m *GLVQ) PredictProba(X [][]float64) ([][]float64, error) {
	if err := m.check(X); err != nil {
		return nil, err
	}

	proba := make([][]float64, len(X))
	for i, x := range X {
		d := m.classDistances(x)
		p1 := sigmoid(d[0] - d[1])
		proba[i] = []float64{1 - p1, p1}
	}

	return proba, nil
}

func (m *GLVQ) check(X [][]float64) error {
	if m.prototypes == nil {
		return ErrNotFitted
	}

	for i, x := range X {
		if len(x) != m.features {
			return fmt.Errorf("lvq: row %d has %d features, want %d", i, len(x), m.features)
		}
	}

	return nil
}

// classDistances returns the nearest prototype distance per class.
func (m *GLVQ) classDistances(x []float64) [2]float64 {
	d := [2]float64{math.Inf(1), math.Inf(1)}
	for j, w := range m.prototypes {
		if v := dist(m.params.Distance, x, w); v < d[m.labels[j]] {
			d[m.labels[j]] = v
		}
	}

	return d
}

// initPrototypes places every prototype at its class mean. Extra prototypes
// of a class are jittered by a small Gaussian offset.
func initPrototypes(X [][]float64, y []int, features, perClass int, rng *rand.Rand) ([][]float64, []int, error) {
	var (
		sums   [2][]float64
		counts [2]int
	)
	for c := range sums {
		sums[c] = make([]float64, features)
	}

	for i, x := range X {
		if len(x) != features {
			return nil, nil, fmt.Errorf("lvq: row %d has %d features, want %d", i, len(x), features)
		}
		if y[i] != 0 && y[i] != 1 {
			return nil, nil, fmt.Errorf("lvq: row %d has non-binary label %d", i, y[i])
		}

		floats.Add(sums[y[i]], x)
		counts[y[i]]++
	}

	if counts[0] == 0 || counts[1] == 0 {
		return nil, nil, fmt.Errorf("lvq: both classes are required to fit, got counts %v", counts)
	}

	var (
		protos [][]float64
		labels []int
	)
	for c := 0; c < 2; c++ {
		mean := floats.ScaleTo(make([]float64, features), 1/float64(counts[c]), sums[c])

		for k := 0; k < perClass; k++ {
			w := append([]float64(nil), mean...)
			if k > 0 {
				for f := range w {
					w[f] += initJitter * rng.NormFloat64()
				}
			}

			protos = append(protos, w)
			labels = append(labels, c)
		}
	}

	return protos, labels, nil
}

func flatten(protos [][]float64) []float64 {
	var theta []float64
	for _, w := range protos {
		theta = append(theta, w...)
	}

	return theta
}

func unflatten(theta []float64, features int) [][]float64 {
	protos := make([][]float64, len(theta)/features)
	for i := range protos {
		protos[i] = append([]float64(nil), theta[i*features:(i+1)*features]...)
	}

	return protos
}
