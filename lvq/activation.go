package lvq

import "math"

// activation is f(mu) with its derivative f'(mu).
type activation struct {
	f     func(x float64) float64
	deriv func(x float64) float64
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}

	e := math.Exp(x)

	return e / (1 + e)
}

func newActivation(t ActivationType, beta float64) activation {
	switch t {
	case Sigmoid:
		return activation{
			f: func(x float64) float64 { return sigmoid(beta * x) },
			deriv: func(x float64) float64 {
				s := sigmoid(beta * x)

				return beta * s * (1 - s)
			},
		}
	case SoftPlus:
		return activation{
			f: func(x float64) float64 {
				// log(1 + e^z) without overflow.
				z := beta * x
				if z > 0 {
					return z + math.Log1p(math.Exp(-z))
				}

				return math.Log1p(math.Exp(z))
			},
			deriv: func(x float64) float64 { return beta * sigmoid(beta*x) },
		}
	case Swish:
		return activation{
			f: func(x float64) float64 { return x * sigmoid(beta*x) },
			deriv: func(x float64) float64 {
				s := sigmoid(beta * x)

				return s + beta*x*s*(1-s)
			},
		}
	default:
		return activation{
			f:     func(x float64) float64 { return x },
			deriv: func(float64) float64 { return 1 },
		}
	}
}
