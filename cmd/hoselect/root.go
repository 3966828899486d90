package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thalesfsp/hoselect"
	"github.com/thalesfsp/hoselect/internal/checkpoint"
	"github.com/thalesfsp/hoselect/internal/config"
	"github.com/thalesfsp/hoselect/internal/dataset"
	"github.com/thalesfsp/hoselect/internal/logging"
	"github.com/thalesfsp/hoselect/lvq"
)

// modelFamily tags every log line of the CLI.
const modelFamily = "glvq"

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "hoselect",
		Short:         "Stability-aware hyperparameter selection for GLVQ classifiers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "hoselect.yaml", "config file path")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, console); overrides the config file")

	root.AddCommand(newRunCommand())
	root.AddCommand(newSearchCommand())
	root.AddCommand(newScreenCommand())
	root.AddCommand(newReportCommand())
	root.AddCommand(newSpaceCommand())
	root.AddCommand(newCheckpointsCommand())

	return root
}

// env is what every pipeline command starts from.
type env struct {
	cfg     *config.Config
	logger  *zap.Logger
	data    *hoselect.Dataset
	summary dataset.Summary
	space   *hoselect.SearchSpace
	lib     hoselect.Config
}

// loadConfig reads the config file and builds the logger it describes.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	level, format := cfg.Log.Level, cfg.Log.Format
	if logLevel != "" {
		level = logLevel
	}
	if logFormat != "" {
		format = logFormat
	}

	logger, err := logging.New(level, format)
	if err != nil {
		return nil, nil, cliError{code: exitInvalid, err: err}
	}

	return cfg, logger.With(zap.String(logging.ModelFamilyKey, modelFamily)), nil
}

// setup loads the config and the dataset and builds the search space.
func setup() (*env, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	opts := dataset.Options{
		LabelColumn: cfg.Data.LabelColumn,
		TestSize:    cfg.Data.TestSize,
		SplitSeed:   cfg.Data.SplitSeed,
		Scale:       cfg.Data.Scale,
	}
	if f := cfg.Data.Filter; f != nil {
		opts.Filter = &dataset.Bounds{Min: f.Min, Max: f.Max}
	}

	data, summary, err := dataset.Prepare(cfg.Data.Path, opts, logger)
	if err != nil {
		return nil, err
	}

	space, err := cfg.SearchSpace()
	if err != nil {
		return nil, err
	}

	lib := cfg.Library()
	lib.Logger = logger

	return &env{cfg: cfg, logger: logger, data: data, summary: summary, space: space, lib: lib}, nil
}

// openCheckpoint opens the configured checkpoint database and returns the
// key of this search. A nil store means checkpointing is off.
func (e *env) openCheckpoint() (*checkpoint.Store, string, error) {
	if e.cfg.Output.CheckpointDB == "" {
		return nil, "", nil
	}

	key, err := e.cfg.SearchKey()
	if err != nil {
		return nil, "", fmt.Errorf("search key: %w", err)
	}

	store, err := checkpoint.Open(e.cfg.Output.CheckpointDB)
	if err != nil {
		return nil, "", fmt.Errorf("checkpoint %s: %w", e.cfg.Output.CheckpointDB, err)
	}

	e.logger.Info("checkpointing search",
		zap.String("checkpoint.path", e.cfg.Output.CheckpointDB),
		zap.String("checkpoint.key", key),
		zap.String(logging.RunIDKey, store.RunID()),
	)

	return store, key, nil
}

// watchProgress logs progress updates at debug level until the returned
// stop function is called.
func (e *env) watchProgress() (stop func()) {
	ch := make(chan hoselect.ProgressUpdate, 64)
	done := make(chan struct{})

	e.lib.ProgressChan = ch

	go func() {
		defer close(done)
		for u := range ch {
			e.logger.Debug("progress",
				zap.String(logging.PhaseKey, string(u.Phase)),
				zap.Int(logging.TrialKey, u.Trial),
				zap.Int("progress.current", u.CurrentIteration),
				zap.Int("progress.total", u.TotalIterations),
				zap.Stringer(logging.ConfigKey, u.CurrentParams),
				zap.Float64(logging.MeanKey, u.LastScore),
			)
		}
	}()

	return func() {
		close(ch)
		<-done
	}
}

// commandContext is cancelled on SIGINT or SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

var factory hoselect.EstimatorFactory = lvq.Factory
