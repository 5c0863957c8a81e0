package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pario-ai/propgen/pkg/source"
)

func newHotelsCmd(g *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "hotels",
		Short: "Print hotel records from the source database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g.configPath)
			if err != nil {
				return err
			}
			ctx := context.Background()

			src, err := source.Open(ctx, cfg.Source)
			if err != nil {
				return err
			}
			defer func() { _ = src.Close() }()

			hotels, err := src.Fetch(ctx, limit)
			if err != nil {
				return err
			}
			if len(hotels) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No hotels found.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tHOTEL ID\tTITLE\tLOCATION\tPRICE\tRATING\tROOM TYPE")
			for _, h := range hotels {
				f := h.Fields()
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					h.ID, orDash(f["hotel_id"]), orDash(f["property_title"]), orDash(f["location"]),
					orDash(f["price"]), orDash(f["rating"]), orDash(f["room_type"]))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d hotel(s)\n", len(hotels))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "print only the first N hotels")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
