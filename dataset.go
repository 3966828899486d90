package hoselect

import "math"

// Split is one partition of the data: a feature matrix and its binary labels.
// Components never mutate a Split; subsets share the underlying rows.
type Split struct {
	X [][]float64
	Y []int
}

// Len returns the number of rows.
func (s Split) Len() int { return len(s.Y) }

// Prefix returns the first n rows.
func (s Split) Prefix(n int) Split {
	return Split{X: s.X[:n], Y: s.Y[:n]}
}

// Take returns the rows at idx, in idx order.
func (s Split) Take(idx []int) Split {
	out := Split{X: make([][]float64, len(idx)), Y: make([]int, len(idx))}
	for i, j := range idx {
		out.X[i] = s.X[j]
		out.Y[i] = s.Y[j]
	}

	return out
}

// ClassCounts returns the number of rows labelled 0 and 1.
func (s Split) ClassCounts() [2]int {
	var counts [2]int
	for _, y := range s.Y {
		counts[y]++
	}

	return counts
}

// Dataset is the immutable train/test context threaded through every
// component. It is produced once by the data preparation collaborators
// (load, filter, split, scale) and only read afterwards.
type Dataset struct {
	train    Split
	test     Split
	features int
}

// NewDataset validates the input contract and copies the data.
//
// Rejected eagerly:
//   - empty train or test partition
//   - feature/label length mismatch
//   - labels outside {0, 1}
//   - rows of differing width, or non-finite feature values
//   - a train partition holding a single class
func NewDataset(trainX [][]float64, trainY []int, testX [][]float64, testY []int) (*Dataset, error) {
	if len(trainX) == 0 {
		return nil, invalidInput("train partition is empty")
	}
	features := len(trainX[0])
	if features == 0 {
		return nil, invalidInput("rows have no features")
	}

	train, err := copySplit("train", trainX, trainY, features)
	if err != nil {
		return nil, err
	}
	test, err := copySplit("test", testX, testY, features)
	if err != nil {
		return nil, err
	}

	counts := train.ClassCounts()
	if counts[0] == 0 || counts[1] == 0 {
		return nil, invalidInput("train partition holds a single class (counts %v)", counts)
	}

	return &Dataset{train: train, test: test, features: features}, nil
}

// Train returns the training partition.
func (d *Dataset) Train() Split { return d.train }

// Test returns the held-out partition.
func (d *Dataset) Test() Split { return d.test }

// Features returns the row width.
func (d *Dataset) Features() int { return d.features }

// validate checks the input contract of a split: as many labels as rows,
// labels in {0, 1}, every row features wide and finite.
func (s Split) validate(name string, features int) error {
	if len(s.X) == 0 {
		return invalidInput("%s partition is empty", name)
	}
	if len(s.X) != len(s.Y) {
		return invalidInput("%s partition has %d rows but %d labels", name, len(s.X), len(s.Y))
	}

	for i, row := range s.X {
		if len(row) != features {
			return invalidInput("%s row %d has %d features, want %d", name, i, len(row), features)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return invalidInput("%s row %d feature %d is not finite", name, i, j)
			}
		}
		if y := s.Y[i]; y != 0 && y != 1 {
			return invalidInput("%s row %d has non-binary label %d", name, i, y)
		}
	}

	return nil
}

func copySplit(name string, x [][]float64, y []int, features int) (Split, error) {
	in := Split{X: x, Y: y}
	if err := in.validate(name, features); err != nil {
		return Split{}, err
	}

	out := Split{X: make([][]float64, len(x)), Y: append([]int(nil), y...)}
	for i, row := range x {
		out.X[i] = append([]float64(nil), row...)
	}

	return out, nil
}
