package hoselect

import (
	"fmt"
	"sync"
)

type job func() error

// runPool executes jobs with at most workers running concurrently. The
// returned errors are index-aligned with jobs; a panicking job reports the
// panic as its error.
func runPool(workers int, jobs []job) []error {
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	errs := make([]error, len(jobs))
	sem := make(chan struct{}, workers)

	for i, j := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, j job) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("panic: %v", r)
				}
			}()
			errs[i] = j()
		}(i, j)
	}
	wg.Wait()

	return errs
}
