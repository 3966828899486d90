package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/thalesfsp/hoselect/internal/config"
	"github.com/thalesfsp/hoselect/internal/report"
	"github.com/thalesfsp/hoselect/internal/result"
)

func newReportCommand() *cobra.Command {
	var (
		format string
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "report [run-dir]",
		Short: "Summarise stored runs",
		Long: `Summarises the run in run-dir, or the latest run of output.results_dir
when none is given. With --all every run under output.results_dir is listed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dir string
			switch {
			case len(args) > 0:
				dir = args[0]
			default:
				cfg, err := config.Load(cfgFile)
				if err != nil {
					return err
				}
				dir = cfg.Output.ResultsDir
				if !all {
					dir = filepath.Join(dir, result.LatestLink)
				}
			}

			resolved, err := filepath.EvalSymlinks(dir)
			if err != nil {
				return fmt.Errorf("resolving run dir: %w", err)
			}

			runs, err := result.Collect(resolved)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				return fmt.Errorf("no runs found in %s", resolved)
			}

			return report.Generate(runs, format, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&format, "format", report.FormatTable, "output format (table, markdown, json)")
	cmd.Flags().BoolVar(&all, "all", false, "report every run of the results directory")

	return cmd
}
