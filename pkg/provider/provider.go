// Package provider adapts remote text-generation APIs to generation.Backend.
// Each adapter classifies provider throttling once so callers never inspect
// error text.
package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pario-ai/propgen/pkg/config"
	"github.com/pario-ai/propgen/pkg/generation"
)

// New returns the backend for cfg.Type. An empty type selects gemini.
func New(ctx context.Context, cfg config.ProviderConfig) (generation.Backend, error) {
	typ := cfg.Type
	if typ == "" {
		typ = "gemini"
	}
	if cfg.Name == "" {
		cfg.Name = typ
	}

	var (
		b   generation.Backend
		err error
	)
	switch typ {
	case "gemini":
		b, err = NewGemini(ctx, cfg)
	case "openai":
		b, err = NewOpenAI(cfg, http.DefaultClient)
	case "anthropic":
		b, err = NewAnthropic(cfg, http.DefaultClient)
	case "ollama":
		b, err = NewOllama(cfg, http.DefaultClient)
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}
