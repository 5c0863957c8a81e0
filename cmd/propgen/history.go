package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pario-ai/propgen/pkg/history"
)

const timeLayout = "2006-01-02T15:04:05"

func newHistoryCmd(g *globalFlags) *cobra.Command {
	var (
		task  string
		limit int
		runID string
		prune time.Duration
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded task runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g.configPath)
			if err != nil {
				return err
			}
			if cfg.History.DBPath == "" {
				return fmt.Errorf("history is disabled (history.db_path is empty)")
			}

			h, err := history.New(cfg.History.DBPath)
			if err != nil {
				return err
			}
			defer h.Close()

			ctx := context.Background()

			if prune > 0 {
				n, err := h.Prune(ctx, time.Now().Add(-prune))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d run(s).\n", n)
				return nil
			}

			// Run detail view
			if runID != "" {
				run, err := h.GetRun(ctx, runID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Run %s (%s): %s, %d succeeded, %d failed, %d skipped of %d\n",
					run.ID, run.Task, run.Status, run.Succeeded, run.Failed, run.Skipped, run.Total)
				if run.Error != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Error: %s\n", run.Error)
				}
				items, err := h.Items(ctx, runID)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "HOTEL ID\tSTATUS\tATTEMPTS\tCACHED\tLATENCY\tERROR")
				for _, it := range items {
					fmt.Fprintf(w, "%d\t%s\t%d\t%t\t%dms\t%s\n",
						it.HotelID, it.Status, it.Attempts, it.Cached, it.LatencyMs, it.Error)
				}
				return w.Flush()
			}

			runs, err := h.ListRuns(ctx, task, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RUN ID\tTASK\tSTATUS\tSTARTED\tDURATION\tTOTAL\tOK\tFAILED\tSKIPPED")
			for _, r := range runs {
				dur := "-"
				if !r.FinishedAt.IsZero() {
					dur = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
					r.ID, r.Task, r.Status, r.StartedAt.Local().Format(timeLayout), dur,
					r.Total, r.Succeeded, r.Failed, r.Skipped)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&task, "task", "", "filter by task")
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "show per-hotel outcomes for a run")
	cmd.Flags().DurationVar(&prune, "prune", 0, "delete runs older than this age, e.g. 720h")
	return cmd
}
