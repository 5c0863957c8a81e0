package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pario-ai/propgen/pkg/config"
	"github.com/pario-ai/propgen/pkg/models"
)

// Ollama calls a local Ollama /api/generate endpoint without streaming.
type Ollama struct {
	name   string
	url    string
	model  string
	client *http.Client
}

// NewOllama creates an Ollama backend. URL defaults to localhost:11434.
func NewOllama(cfg config.ProviderConfig, client *http.Client) (*Ollama, error) {
	if cfg.Model == "" {
		return nil, errors.New("ollama: model is required")
	}
	u := cfg.URL
	if u == "" {
		u = "http://localhost:11434"
	}
	return &Ollama{name: nameOr(cfg.Name, "ollama"), url: u, model: cfg.Model, client: client}, nil
}

// Generate implements generation.Backend.
func (o *Ollama) Generate(ctx context.Context, req models.GenerationRequest) (string, error) {
	in := models.OllamaRequest{
		Model:  o.model,
		Prompt: req.Prompt,
		Options: models.OllamaOptions{
			Temperature: req.Temperature,
			TopP:        req.TopP,
			TopK:        req.TopK,
			NumPredict:  req.MaxOutputTokens,
		},
	}

	var out models.OllamaResponse
	if err := postJSON(ctx, o.client, o.name, o.url, "/api/generate", nil, in, &out); err != nil {
		return "", err
	}
	text := strings.TrimSpace(out.Response)
	if text == "" {
		return "", emptyResponse(o.name)
	}
	return text, nil
}
