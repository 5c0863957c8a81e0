package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pario-ai/propgen/pkg/config"
	"github.com/pario-ai/propgen/pkg/models"
)

// OpenAI calls an OpenAI-compatible /v1/chat/completions endpoint.
type OpenAI struct {
	name   string
	url    string
	apiKey string
	model  string
	client *http.Client
}

// NewOpenAI creates an OpenAI backend. URL defaults to api.openai.com.
func NewOpenAI(cfg config.ProviderConfig, client *http.Client) (*OpenAI, error) {
	if cfg.Model == "" {
		return nil, errors.New("openai: model is required")
	}
	u := cfg.URL
	if u == "" {
		u = "https://api.openai.com"
	}
	return &OpenAI{name: nameOr(cfg.Name, "openai"), url: u, apiKey: cfg.APIKey, model: cfg.Model, client: client}, nil
}

// Generate implements generation.Backend. TopK is not supported by the API
// and is ignored.
func (o *OpenAI) Generate(ctx context.Context, req models.GenerationRequest) (string, error) {
	temp := req.Temperature
	in := models.ChatCompletionRequest{
		Model:       o.model,
		Messages:    []models.ChatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: &temp,
		TopP:        floatPtr(req.TopP),
		MaxTokens:   intPtr(req.MaxOutputTokens),
	}
	headers := map[string]string{}
	if o.apiKey != "" {
		headers["Authorization"] = "Bearer " + o.apiKey
	}

	var out models.ChatCompletionResponse
	if err := postJSON(ctx, o.client, o.name, o.url, "/v1/chat/completions", headers, in, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", emptyResponse(o.name)
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", emptyResponse(o.name)
	}
	return text, nil
}

func nameOr(name, def string) string {
	if name == "" {
		return def
	}
	return name
}
