package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cachepkg "github.com/pario-ai/propgen/pkg/cache/sqlite"
	"github.com/pario-ai/propgen/pkg/history"
	"github.com/pario-ai/propgen/pkg/pipeline"
	"github.com/pario-ai/propgen/pkg/source"
	"github.com/pario-ai/propgen/pkg/store"
	"github.com/pario-ai/propgen/pkg/tasks"
)

func newRunCmd(g *globalFlags) *cobra.Command {
	var (
		reset      bool
		batchSize  int
		batchDelay time.Duration
		limit      int
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "run <task>",
		Short: "Run a generation task over every hotel",
		Long: `Fetches hotels from the source database, renders the task's prompts for
each one, generates text with the configured provider and upserts the
results into the destination table keyed by hotel id.

Run "propgen tasks" to list the available tasks.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("batch-size") {
				cfg.Batch.Size = batchSize
			}
			if cmd.Flags().Changed("batch-delay") {
				cfg.Batch.Delay = batchDelay
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			task, err := tasks.Resolve(args[0], cfg)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("reset") {
				t := *task
				t.Reset = reset
				task = &t
			}

			logger, err := newLogger(cfg.Log, g.verbose)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			src, err := source.Open(ctx, cfg.Source)
			if err != nil {
				return err
			}
			defer func() { _ = src.Close() }()

			hotels, err := src.Fetch(ctx, limit)
			if err != nil {
				return err
			}
			logger.Info("fetched hotels", zap.Int("count", len(hotels)), zap.String("table", cfg.Source.Table))

			pcfg := pipeline.Config{
				BatchSize:  cfg.Batch.Size,
				BatchDelay: cfg.Batch.Delay,
				ItemDelay:  cfg.Batch.ItemDelay,
				TopP:       cfg.Generation.TopP,
				TopK:       cfg.Generation.TopK,
				Model:      cfg.Provider.Type + "/" + cfg.Provider.Model,
			}
			opts := []pipeline.Option{pipeline.WithLogger(logger.Named("pipeline"))}

			if dryRun {
				o := pipeline.New(task, nil, nil, pcfg, append(opts, pipeline.WithDryRun(cmd.OutOrStdout()))...)
				_, err := o.Run(ctx, hotels)
				return err
			}

			dest, err := store.Open(cfg.Destination)
			if err != nil {
				return err
			}
			defer func() { _ = dest.Close() }()

			client, err := newClient(ctx, cfg, logger)
			if err != nil {
				return err
			}

			if cfg.Cache.Enabled {
				c, err := cachepkg.New(cfg.Cache.DBPath, cfg.Cache.TTL, nil)
				if err != nil {
					return fmt.Errorf("init cache: %w", err)
				}
				defer func() { _ = c.Close() }()
				opts = append(opts, pipeline.WithCache(c))
			}
			if cfg.History.DBPath != "" {
				h, err := history.New(cfg.History.DBPath)
				if err != nil {
					return fmt.Errorf("init history: %w", err)
				}
				defer func() { _ = h.Close() }()
				opts = append(opts, pipeline.WithRecorder(h))
			}

			rep, err := pipeline.New(task, client, dest, pcfg, opts...).Run(ctx, hotels)
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s: %d total, %d succeeded, %d failed, %d skipped, %d cached, %d batch(es)\n",
				task.Name, rep.Total, rep.Succeeded, rep.Failed, rep.Skipped, rep.Cached, rep.Batches)
			if rep.RunID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Run ID: %s\n", rep.RunID)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "empty the destination table before generating (overrides the task default)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "hotels per batch")
	cmd.Flags().DurationVar(&batchDelay, "batch-delay", 0, "pause between batches")
	cmd.Flags().IntVar(&limit, "limit", 0, "process only the first N hotels")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print rendered prompts without calling the provider or writing results")
	return cmd
}
