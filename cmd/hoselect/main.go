// Command hoselect searches GLVQ hyperparameters on a CSV dataset, selects a
// stable configuration and reports its held-out performance.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/thalesfsp/hoselect"
	"github.com/thalesfsp/hoselect/internal/config"
	"github.com/thalesfsp/hoselect/internal/dataset"
	"github.com/thalesfsp/hoselect/internal/schema"
)

// Exit codes.
const (
	exitFailure = 1
	exitInvalid = 2
)

type cliError struct {
	code int
	err  error
}

func (e cliError) Error() string { return e.err.Error() }

func (e cliError) Unwrap() error { return e.err }

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "hoselect:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode is exitInvalid for anything wrong with the user's input and
// exitFailure otherwise.
func exitCode(err error) int {
	var ce cliError
	if errors.As(err, &ce) {
		return ce.code
	}

	for _, target := range []error{
		config.ErrInvalid,
		schema.ErrInvalid,
		dataset.ErrInvalid,
		hoselect.ErrInvalidInput,
		hoselect.ErrInvalidConfiguration,
		hoselect.ErrUnknownMetric,
	} {
		if errors.Is(err, target) {
			return exitInvalid
		}
	}

	return exitFailure
}
