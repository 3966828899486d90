package dataset

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// TrainTestSplit partitions t into train and test sets of which test holds
// ceil(testSize * n) rows. Each class contributes to the test set in
// proportion to its frequency; leftover rows go to the classes with the
// largest remainders. The split and the order of rows within each partition
// are fixed by seed.
func TrainTestSplit(t *Table, testSize float64, seed int64) (train, test *Table, err error) {
	if !(testSize > 0 && testSize < 1) {
		return nil, nil, fmt.Errorf("%w: test size must be within (0, 1), got %g", ErrInvalid, testSize)
	}

	n := t.Len()
	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest < 2 || n-nTest < 2 {
		return nil, nil, fmt.Errorf("%w: %d rows cannot be split with test size %g", ErrInvalid, n, testSize)
	}

	var byClass [2][]int
	for i, y := range t.Y {
		byClass[y] = append(byClass[y], i)
	}
	if len(byClass[0]) < 2 || len(byClass[1]) < 2 {
		return nil, nil, fmt.Errorf("%w: each class needs at least 2 rows to stratify, got %d and %d",
			ErrInvalid, len(byClass[0]), len(byClass[1]))
	}

	alloc := allocate([2]int{len(byClass[0]), len(byClass[1])}, nTest)

	rng := rand.New(rand.NewSource(seed))

	var trainIdx, testIdx []int
	for c, rows := range byClass {
		rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		testIdx = append(testIdx, rows[:alloc[c]]...)
		trainIdx = append(trainIdx, rows[alloc[c]:]...)
	}

	rng.Shuffle(len(trainIdx), func(i, j int) { trainIdx[i], trainIdx[j] = trainIdx[j], trainIdx[i] })
	rng.Shuffle(len(testIdx), func(i, j int) { testIdx[i], testIdx[j] = testIdx[j], testIdx[i] })

	return t.take(trainIdx), t.take(testIdx), nil
}

// allocate splits total across classes proportionally to counts with the
// largest remainder method. Ties go to the lower class label.
func allocate(counts [2]int, total int) [2]int {
	n := counts[0] + counts[1]

	var (
		alloc     [2]int
		remainder [2]float64
		assigned  int
	)
	for c, k := range counts {
		exact := float64(total) * float64(k) / float64(n)
		alloc[c] = int(math.Floor(exact))
		remainder[c] = exact - float64(alloc[c])
		assigned += alloc[c]
	}

	order := []int{0, 1}
	sort.SliceStable(order, func(i, j int) bool { return remainder[order[i]] > remainder[order[j]] })
	for i := 0; assigned < total; i++ {
		alloc[order[i%2]]++
		assigned++
	}

	return alloc
}

func (t *Table) take(idx []int) *Table {
	out := &Table{Features: t.Features, X: make([][]float64, len(idx)), Y: make([]int, len(idx))}
	for i, j := range idx {
		out.X[i] = t.X[j]
		out.Y[i] = t.Y[j]
	}

	return out
}
