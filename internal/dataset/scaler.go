package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler centres every feature on the training mean and divides by
// the training population standard deviation. Constant features are only
// centred.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler learns per-feature mean and scale from X.
func FitScaler(X [][]float64) (*StandardScaler, error) {
	if len(X) == 0 {
		return nil, fmt.Errorf("%w: cannot fit a scaler on no rows", ErrInvalid)
	}

	features := len(X[0])
	s := &StandardScaler{Mean: make([]float64, features), Scale: make([]float64, features)}

	col := make([]float64, len(X))
	for f := 0; f < features; f++ {
		for i, row := range X {
			col[i] = row[f]
		}

		s.Mean[f], s.Scale[f] = stat.PopMeanStdDev(col, nil)
		if s.Scale[f] == 0 {
			s.Scale[f] = 1
		}
	}

	return s, nil
}

// Transform returns a standardised copy of X.
func (s *StandardScaler) Transform(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		if len(row) != len(s.Mean) {
			return nil, fmt.Errorf("%w: row %d has %d features, scaler was fitted on %d", ErrInvalid, i, len(row), len(s.Mean))
		}

		out[i] = make([]float64, len(row))
		for f, v := range row {
			out[i][f] = (v - s.Mean[f]) / s.Scale[f]
		}
	}

	return out, nil
}
