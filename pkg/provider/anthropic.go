package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pario-ai/propgen/pkg/config"
	"github.com/pario-ai/propgen/pkg/models"
)

const anthropicVersion = "2023-06-01"

// Anthropic calls the Anthropic /v1/messages endpoint.
type Anthropic struct {
	name   string
	url    string
	apiKey string
	model  string
	client *http.Client
}

// NewAnthropic creates an Anthropic backend. URL defaults to api.anthropic.com.
func NewAnthropic(cfg config.ProviderConfig, client *http.Client) (*Anthropic, error) {
	if cfg.Model == "" {
		return nil, errors.New("anthropic: model is required")
	}
	u := cfg.URL
	if u == "" {
		u = "https://api.anthropic.com"
	}
	return &Anthropic{name: nameOr(cfg.Name, "anthropic"), url: u, apiKey: cfg.APIKey, model: cfg.Model, client: client}, nil
}

// Generate implements generation.Backend.
func (a *Anthropic) Generate(ctx context.Context, req models.GenerationRequest) (string, error) {
	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	temp := req.Temperature
	in := models.AnthropicRequest{
		Model:       a.model,
		Messages:    []models.ChatMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   maxTokens,
		Temperature: &temp,
		TopP:        floatPtr(req.TopP),
		TopK:        intPtr(req.TopK),
	}
	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}

	var out models.AnthropicResponse
	if err := postJSON(ctx, a.client, a.name, a.url, "/v1/messages", headers, in, &out); err != nil {
		return "", err
	}
	var b strings.Builder
	for _, c := range out.Content {
		if c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", emptyResponse(a.name)
	}
	return text, nil
}
