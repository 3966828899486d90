package dataset

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/thalesfsp/hoselect"
	"github.com/thalesfsp/hoselect/internal/logging"
)

// Options drive Prepare.
type Options struct {
	LabelColumn string

	// Filter, when set, drops rows with any feature outside [Min, Max].
	Filter *Bounds

	TestSize  float64
	SplitSeed int64

	// Scale standardises both partitions with a scaler fitted on train.
	Scale bool
}

// Bounds is an inclusive value range.
type Bounds struct {
	Min, Max float64
}

// Summary describes what Prepare did.
type Summary struct {
	Features []string     `json:"features"`
	Filter   *FilterStats `json:"filter,omitempty"`
	Train    int          `json:"train"`
	Test     int          `json:"test"`
}

// Prepare loads path and turns it into a hoselect.Dataset: filter, split,
// then scale.
func Prepare(path string, opts Options, logger *zap.Logger) (*hoselect.Dataset, Summary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	table, err := LoadCSV(path, opts.LabelColumn)
	if err != nil {
		return nil, Summary{}, err
	}

	summary := Summary{Features: table.Features}

	logger.Info("dataset loaded",
		zap.String("path", path),
		zap.Int(logging.SamplesKey, table.Len()),
		zap.Int(logging.FeaturesKey, len(table.Features)),
	)

	if opts.Filter != nil {
		var stats FilterStats
		table, stats = table.FilterRange(opts.Filter.Min, opts.Filter.Max)
		summary.Filter = &stats

		logger.Info("rows outside range removed",
			zap.Float64("range.min", opts.Filter.Min),
			zap.Float64("range.max", opts.Filter.Max),
			zap.Int(logging.SamplesKey, stats.Kept),
			zap.Int(logging.RemovedKey, stats.Removed),
			zap.Float64("data.removed_percent", stats.RemovedPercent()),
		)
	}

	train, test, err := TrainTestSplit(table, opts.TestSize, opts.SplitSeed)
	if err != nil {
		return nil, Summary{}, err
	}

	trainX, testX := train.X, test.X
	if opts.Scale {
		scaler, err := FitScaler(train.X)
		if err != nil {
			return nil, Summary{}, err
		}
		if trainX, err = scaler.Transform(train.X); err != nil {
			return nil, Summary{}, err
		}
		if testX, err = scaler.Transform(test.X); err != nil {
			return nil, Summary{}, err
		}
	}

	ds, err := hoselect.NewDataset(trainX, train.Y, testX, test.Y)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	summary.Train, summary.Test = train.Len(), test.Len()

	logger.Info("dataset split",
		zap.Int(logging.TrainKey, summary.Train),
		zap.Int(logging.TestKey, summary.Test),
		zap.Bool("data.scaled", opts.Scale),
	)

	return ds, summary, nil
}
