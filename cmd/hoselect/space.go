package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/thalesfsp/hoselect/lvq"
)

func newSpaceCommand() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "space",
		Short: "Validate and describe the search space",
		Long: `Checks the config file and every configuration of its search space
against the GLVQ hyperparameter rules, then prints the dimensions and the
grid size. No data is loaded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			space, err := cfg.SearchSpace()
			if err != nil {
				return err
			}

			grid := space.Grid()
			for _, c := range grid {
				if _, err := lvq.ParseParams(c); err != nil {
					return fmt.Errorf("configuration %s: %w", c, err)
				}
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "HYPERPARAMETER\tVALUES")
			for _, d := range space.Dimensions() {
				fmt.Fprintf(tw, "%s\t%v\n", d.Name, d.Values)
			}
			fmt.Fprintf(tw, "\n%d configurations; each trial evaluates %d\n", space.Size(), min(cfg.Search.Iterations, space.Size()))
			if err := tw.Flush(); err != nil {
				return err
			}

			if list {
				fmt.Fprintln(out)
				for i, c := range grid {
					fmt.Fprintf(out, "%d\t%s\n", i, c)
				}
			}

			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "print every configuration of the grid")

	return cmd
}
