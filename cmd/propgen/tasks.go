package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pario-ai/propgen/pkg/tasks"
)

func newTasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List built-in generation tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TASK\tTABLE\tRESET\tSTEPS\tDESCRIPTION")
			for _, t := range tasks.All() {
				steps := make([]string, len(t.Steps))
				for i, s := range t.Steps {
					steps[i] = s.Name
				}
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n",
					t.Name, t.Table.Name, t.Reset, strings.Join(steps, ","), t.Description)
			}
			return w.Flush()
		},
	}
}
