package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pario-ai/propgen/pkg/models"
)

func newGenerateCmd(g *globalFlags) *cobra.Command {
	var (
		prompt      string
		maxTokens   int
		temperature float64
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate text for a single prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			if prompt == "" {
				return errors.New("--prompt is required")
			}
			if temperature < 0 || temperature > 1 {
				return fmt.Errorf("--temperature %v outside [0,1]", temperature)
			}

			cfg, err := loadConfig(g.configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Log, g.verbose)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client, err := newClient(ctx, cfg, logger)
			if err != nil {
				return err
			}
			res, err := client.Do(ctx, models.GenerationRequest{
				Prompt:          prompt,
				MaxOutputTokens: maxTokens,
				Temperature:     temperature,
				TopP:            cfg.Generation.TopP,
				TopK:            cfg.Generation.TopK,
			})
			if err != nil {
				return err
			}
			logger.Debug("generated", zap.Int("attempts", res.Attempts))
			fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			return nil
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "prompt text")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 256, "maximum output tokens")
	cmd.Flags().Float64Var(&temperature, "temperature", 0.7, "sampling temperature in [0,1]")
	return cmd
}
