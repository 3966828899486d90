package hoselect

import "math/rand"

// Fold is one train/validation partition, as row indices into a Split.
// Both index lists are ascending.
type Fold struct {
	Train []int
	Test  []int
}

// StratifiedKFold partitions y into k folds preserving the class balance.
//
// How it works:
//   - Rows are grouped by label; the labels, sorted, are dealt round-robin
//     over the k folds to decide how many rows of each class a fold gets
//   - For each class (0 then 1) the resulting fold assignments are shuffled
//     with a generator seeded by seed and handed out to that class's rows in
//     row order
//
// The assignment is a pure function of (y, k, seed): the same seed always
// yields bit-identical fold membership, which is what makes scores from the
// Trial Runner and the Stability Analyzer comparable.
//
// Fails when a label is outside {0, 1}, k < 2, k exceeds the number of rows,
// or no class has at least k members.
func StratifiedKFold(y []int, k int, seed int64) ([]Fold, error) {
	if k < 2 {
		return nil, invalidInput("need at least 2 folds, got %d", k)
	}
	if k > len(y) {
		return nil, invalidInput("cannot split %d rows into %d folds", len(y), k)
	}

	var counts [2]int
	for row, label := range y {
		if label != 0 && label != 1 {
			return nil, invalidInput("row %d has non-binary label %d", row, label)
		}
		counts[label]++
	}
	if counts[0] < k && counts[1] < k {
		return nil, invalidInput("%d folds exceeds the members of every class %v", k, counts)
	}

	// allocation[f][c] = rows of class c in fold f. Dealing sorted labels
	// round-robin gives the first counts[0] positions to class 0.
	allocation := make([][2]int, k)
	for pos := 0; pos < len(y); pos++ {
		class := 1
		if pos < counts[0] {
			class = 0
		}
		allocation[pos%k][class]++
	}

	rng := rand.New(rand.NewSource(seed))
	testFold := make([]int, len(y))
	for class := 0; class < 2; class++ {
		assign := make([]int, 0, counts[class])
		for f := 0; f < k; f++ {
			for n := 0; n < allocation[f][class]; n++ {
				assign = append(assign, f)
			}
		}
		rng.Shuffle(len(assign), func(i, j int) { assign[i], assign[j] = assign[j], assign[i] })

		next := 0
		for row, label := range y {
			if label == class {
				testFold[row] = assign[next]
				next++
			}
		}
	}

	folds := make([]Fold, k)
	for row, f := range testFold {
		for g := range folds {
			if g == f {
				folds[g].Test = append(folds[g].Test, row)
			} else {
				folds[g].Train = append(folds[g].Train, row)
			}
		}
	}

	return folds, nil
}
