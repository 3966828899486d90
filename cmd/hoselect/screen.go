package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/thalesfsp/hoselect"
)

type screenOptions struct {
	top  int
	json bool
}

func newScreenCommand() *cobra.Command {
	opts := &screenOptions{}

	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Cross-validate every configuration of the search space",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScreen(cmd, opts)
		},
	}
	cmd.Flags().IntVar(&opts.top, "top", 0, "override search.top_k")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the result as JSON")

	return cmd
}

func runScreen(cmd *cobra.Command, opts *screenOptions) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	if opts.top > 0 {
		e.lib.TopK = opts.top
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	stop := e.watchProgress()
	defer stop()

	screener, err := hoselect.NewScreener(e.data, factory, e.space, e.lib)
	if err != nil {
		return err
	}

	res, err := screener.Run(ctx)
	if err != nil {
		return err
	}

	top := res.Succeeded
	if len(top) > e.lib.TopK {
		top = top[:e.lib.TopK]
	}

	out := cmd.OutOrStdout()
	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return enc.Encode(struct {
			Top    []hoselect.ScoredConfig `json:"top"`
			Failed []hoselect.Failure      `json:"failed,omitempty"`
		}{top, res.Failed})
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tMEAN\tSTD\tCONFIGURATION")
	fmt.Fprintln(tw, strings.Repeat("-", 100))
	for i, c := range top {
		fmt.Fprintf(tw, "%d\t%.4f\t%.4f\t%s\n", i+1, c.Mean, c.Scores.Std(), c.Config)
	}
	fmt.Fprintf(tw, "\n%d of %d configurations succeeded\n", len(res.Succeeded), len(res.Succeeded)+len(res.Failed))

	return tw.Flush()
}
