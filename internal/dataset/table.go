// Package dataset prepares a hoselect.Dataset from a CSV file: load, drop
// out-of-range rows, split into stratified train and test partitions and
// standardise the features.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ErrInvalid is wrapped by every error caused by the file's content.
var ErrInvalid = errors.New("invalid dataset")

// Table is a labelled feature matrix.
type Table struct {
	Features []string
	X        [][]float64
	Y        []int
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Y) }

// LoadCSV reads a CSV file with a header row. labelColumn names the binary
// label; every other column is a numeric feature.
func LoadCSV(path, labelColumn string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset %s: %w", path, err)
	}
	defer f.Close()

	t, err := ReadCSV(f, labelColumn)
	if err != nil {
		return nil, fmt.Errorf("reading dataset %s: %w", path, err)
	}

	return t, nil
}

// ReadCSV is LoadCSV over a reader.
func ReadCSV(r io.Reader, labelColumn string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: no header row", ErrInvalid)
	}
	if err != nil {
		return nil, err
	}

	label := -1
	t := &Table{}
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == labelColumn {
			label = i
			continue
		}
		t.Features = append(t.Features, name)
	}
	if label < 0 {
		return nil, fmt.Errorf("%w: label column %q not in header %v", ErrInvalid, labelColumn, header)
	}
	if len(t.Features) == 0 {
		return nil, fmt.Errorf("%w: no feature columns", ErrInvalid)
	}

	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make([]float64, 0, len(t.Features))
		for i, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: line %d column %q: %q is not a finite number", ErrInvalid, line, header[i], field)
			}

			if i == label {
				if v != 0 && v != 1 {
					return nil, fmt.Errorf("%w: line %d: label %v is not 0 or 1", ErrInvalid, line, v)
				}
				t.Y = append(t.Y, int(v))

				continue
			}
			row = append(row, v)
		}
		t.X = append(t.X, row)
	}

	if t.Len() == 0 {
		return nil, fmt.Errorf("%w: no data rows", ErrInvalid)
	}

	return t, nil
}

// FilterStats summarises a FilterRange pass.
type FilterStats struct {
	Original int `json:"original"`
	Kept     int `json:"kept"`
	Removed  int `json:"removed"`
}

// RemovedPercent is the share of rows dropped, 0..100.
func (s FilterStats) RemovedPercent() float64 {
	if s.Original == 0 {
		return 0
	}

	return 100 * float64(s.Removed) / float64(s.Original)
}

// FilterRange returns a copy of t without the rows that have any feature
// outside [min, max]. Row order is kept.
func (t *Table) FilterRange(min, max float64) (*Table, FilterStats) {
	out := &Table{Features: t.Features}

	for i, row := range t.X {
		if inRange(row, min, max) {
			out.X = append(out.X, row)
			out.Y = append(out.Y, t.Y[i])
		}
	}

	return out, FilterStats{Original: t.Len(), Kept: out.Len(), Removed: t.Len() - out.Len()}
}

func inRange(row []float64, min, max float64) bool {
	for _, v := range row {
		if v < min || v > max {
			return false
		}
	}

	return true
}
