package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pario-ai/briefbench/pkg/history"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past benchmark sweeps",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List benchmark sweeps",
		RunE: func(cmd *cobra.Command, args []string) error {
			hs, err := history.New(a.cfg.History.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = hs.Close() }()

			sweeps, err := hs.ListSweeps(cmd.Context())
			if err != nil {
				return err
			}
			if len(sweeps) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No benchmark sweeps found.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SWEEP ID\tHOST\tSTARTED\tTARGET\tRUNS\tRECORDS\tREPORT")
			for _, s := range sweeps {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					s.ID, s.Host, s.StartedAt.Format("2006-01-02T15:04:05"), s.TargetLength, s.Runs, s.RecordCount, s.ReportPath)
			}
			return w.Flush()
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <sweep-id>",
		Short: "Show per-model results of a sweep",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hs, err := history.New(a.cfg.History.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = hs.Close() }()

			sums, err := hs.Summary(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(sums) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs found for sweep.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tURL\tRUNS\tSUCCESSFUL\tAVG TIME\tLENGTH MATCH")
			for _, s := range sums {
				avg := "-"
				if s.Successful > 0 {
					avg = fmt.Sprintf("%.2fs", s.MeanSeconds)
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%d/%d\n",
					s.Model, s.URL, s.Runs, s.Successful, avg, s.LengthMatch, s.Runs)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(listCmd, showCmd)
	return cmd
}
