package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pario-ai/propgen/pkg/config"
	"github.com/pario-ai/propgen/pkg/generation"
	"github.com/pario-ai/propgen/pkg/provider"
)

const defaultConfigFile = "propgen.yaml"

// loadConfig reads path, or propgen.yaml when path is empty and the file
// exists, or falls back to defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat config: %w", err)
		}
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds a zap logger from cfg. verbose forces debug level.
func newLogger(cfg config.LogConfig, verbose bool) (*zap.Logger, error) {
	var zc zap.Config
	if strings.EqualFold(cfg.Format, "json") {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level := zapcore.InfoLevel
	if cfg.Level != "" {
		l, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level = l
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// newPolicy maps configuration onto the generation retry policy.
func newPolicy(cfg *config.Config) generation.Policy {
	g := cfg.Generation
	return generation.Policy{
		MaxAttempts:    g.MaxAttempts,
		BaseDelay:      g.BaseDelay,
		RetryJitterMin: g.RetryJitterMin,
		RetryJitterMax: g.RetryJitterMax,
		SmoothingMin:   g.SmoothingMin,
		SmoothingMax:   g.SmoothingMax,
		MaxRequests:    cfg.RateLimit.MaxRequests,
		Window:         cfg.RateLimit.Window,
	}
}

// newClient builds the configured provider backend wrapped in a paced,
// retrying generation client.
func newClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*generation.Client, error) {
	backend, err := provider.New(ctx, cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("init provider: %w", err)
	}
	return generation.New(backend, newPolicy(cfg),
		generation.WithLogger(logger.Named("generation")),
	), nil
}
