package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/thalesfsp/hoselect"
)

type searchOptions struct {
	trials int
	json   bool
}

func newSearchCommand() *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run the randomized search trials only",
		Long: `Runs search.trials randomized search trials and prints the best
configuration of each trial with how often every hyperparameter value was
chosen. Progress is checkpointed when output.checkpoint_db is set, and an
interrupted search resumes from its last completed trial.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSearch(cmd, opts)
		},
	}
	cmd.Flags().IntVar(&opts.trials, "trials", 0, "override search.trials")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the result as JSON")

	return cmd
}

func runSearch(cmd *cobra.Command, opts *searchOptions) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	if opts.trials > 0 {
		e.cfg.Search.Trials = opts.trials
		e.lib.Trials = opts.trials
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	stop := e.watchProgress()
	defer stop()

	runner, err := hoselect.NewTrialRunner(e.data, factory, e.space, e.lib)
	if err != nil {
		return err
	}

	searcher := hoselect.NewSearcher(runner)

	store, key, err := e.openCheckpoint()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		searcher.WithCheckpoint(store, key)
	}

	res, err := searcher.Run(ctx)
	if err != nil {
		return err
	}

	freq := hoselect.ParamFrequencies(res.BestConfigs())

	out := cmd.OutOrStdout()
	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return enc.Encode(struct {
			hoselect.SearchResult
			Frequencies map[string][]hoselect.ValueCount `json:"frequencies"`
		}{res, freq})
	}

	if err := writeTrials(out, res); err != nil {
		return err
	}
	fmt.Fprintln(out)

	return writeFrequencies(out, freq)
}

func writeTrials(w io.Writer, res hoselect.SearchResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TRIAL\tSEED\tSCORE\tEVALUATED\tFAILED\tBEST CONFIGURATION")
	fmt.Fprintln(tw, strings.Repeat("-", 100))
	for _, t := range res.Trials {
		fmt.Fprintf(tw, "%d\t%d\t%.4f\t%d\t%d\t%s\n", t.Trial, t.Seed, t.Score, t.Evaluated, len(t.Failures), t.Config)
	}
	fmt.Fprintf(tw, "\n%d trials (%d resumed) in %s\n", len(res.Trials), res.Resumed, res.Elapsed.Round(time.Millisecond))

	return tw.Flush()
}

func writeFrequencies(w io.Writer, freq map[string][]hoselect.ValueCount) error {
	names := make([]string, 0, len(freq))
	for name := range freq {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "HYPERPARAMETER\tVALUE\tCOUNT")
	for _, name := range names {
		for _, vc := range freq[name] {
			fmt.Fprintf(tw, "%s\t%v\t%d\n", name, vc.Value, vc.Count)
		}
	}

	return tw.Flush()
}
