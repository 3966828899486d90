package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/thalesfsp/hoselect/internal/checkpoint"
	"github.com/thalesfsp/hoselect/internal/config"
)

func newCheckpointsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoints",
		Short: "Inspect saved search progress",
	}
	cmd.AddCommand(newCheckpointsListCommand())
	cmd.AddCommand(newCheckpointsRemoveCommand())

	return cmd
}

// openStore opens the checkpoint database named by the config file.
func openStore() (*checkpoint.Store, *config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Output.CheckpointDB == "" {
		return nil, nil, cliError{code: exitInvalid, err: fmt.Errorf("output.checkpoint_db is not set in %s", cfgFile)}
	}

	store, err := checkpoint.Open(cfg.Output.CheckpointDB)
	if err != nil {
		return nil, nil, err
	}

	return store, cfg, nil
}

func newCheckpointsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, cfg, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			current, err := cfg.SearchKey()
			if err != nil {
				return err
			}

			searches, err := store.List(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tTRIALS\tELAPSED\tUPDATED\tCURRENT")
			fmt.Fprintln(tw, strings.Repeat("-", 100))
			for _, s := range searches {
				mark := ""
				if s.Key == current {
					mark = "*"
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n",
					s.Key, s.Trials, s.Elapsed.Round(time.Millisecond), s.UpdatedAt.Format(time.RFC3339), mark)
			}

			return tw.Flush()
		},
	}
}

func newCheckpointsRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm [key]",
		Short: "Delete a saved search; the current config's search by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			key := ""
			if len(args) > 0 {
				key = args[0]
			} else if key, err = cfg.SearchKey(); err != nil {
				return err
			}

			if err := store.Delete(cmd.Context(), key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", key)

			return nil
		},
	}
}
