package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thalesfsp/hoselect"
	"github.com/thalesfsp/hoselect/internal/logging"
	"github.com/thalesfsp/hoselect/internal/report"
	"github.com/thalesfsp/hoselect/internal/result"
)

type runOptions struct {
	trials int
	pool   string
	format string
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Search, select a stable configuration and evaluate it",
		Long: `Runs the full pipeline: builds a candidate pool (randomized search trials
or exhaustive screening), re-evaluates it on fixed folds, selects the best
stable configuration and evaluates it with a learning curve on the held-out
test set. Artifacts are written to a new directory under output.results_dir.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, opts)
		},
	}
	cmd.Flags().IntVar(&opts.trials, "trials", 0, "override search.trials")
	cmd.Flags().StringVar(&opts.pool, "pool", "", "override search.pool_source (search, screen)")
	cmd.Flags().StringVar(&opts.format, "format", report.FormatTable, "summary format (table, markdown, json)")

	return cmd
}

func runPipeline(cmd *cobra.Command, opts *runOptions) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	if opts.trials > 0 {
		e.cfg.Search.Trials = opts.trials
		e.lib.Trials = opts.trials
	}
	if opts.pool != "" {
		e.cfg.Search.PoolSource = opts.pool
		e.lib.PoolSource = hoselect.PoolSource(opts.pool)
	}

	meta := result.Meta{
		RunID:      result.NewRunID(),
		StartedAt:  time.Now().UTC(),
		ConfigPath: cfgFile,
		Metric:     e.lib.Metric,
		Folds:      e.lib.Folds,
		Seed:       e.lib.Seed,
		PoolSource: string(e.lib.PoolSource),
		Dataset:    e.summary,
	}

	e.logger = e.logger.With(zap.String(logging.RunIDKey, meta.RunID))
	e.lib.Logger = e.logger

	ctx, cancel := commandContext(cmd)
	defer cancel()

	stop := e.watchProgress()

	pipeline, err := hoselect.NewPipeline(e.data, factory, e.space, e.lib)
	if err != nil {
		stop()
		return err
	}

	if e.lib.PoolSource == hoselect.PoolFromSearch {
		store, key, err := e.openCheckpoint()
		if err != nil {
			stop()
			return err
		}
		if store != nil {
			defer store.Close()
			pipeline.WithCheckpoint(store, key)
			meta.SearchKey = key
		}
	}

	res, err := pipeline.Run(ctx)
	stop()
	if err != nil {
		return err
	}
	meta.FinishedAt = time.Now().UTC()

	runDir, err := result.CreateRunDir(e.cfg.Output.ResultsDir)
	if err != nil {
		return err
	}
	if err := result.Write(runDir, meta, &res); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}

	e.logger.Info("run completed",
		zap.String("run.dir", runDir),
		zap.Stringer(logging.ConfigKey, res.Selected()),
		zap.Duration(logging.ElapsedKey, meta.FinishedAt.Sub(meta.StartedAt)),
	)

	bundle, err := result.Read(runDir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.format != report.FormatJSON {
		fmt.Fprintf(out, "Run directory: %s\n\n", runDir)
	}

	return report.Generate([]*result.Bundle{bundle}, opts.format, out)
}
