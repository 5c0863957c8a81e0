package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/pario-ai/propgen/pkg/config"
	"github.com/pario-ai/propgen/pkg/generation"
	"github.com/pario-ai/propgen/pkg/models"
)

// Gemini generates text through the Google GenAI SDK.
type Gemini struct {
	name   string
	model  string
	client *genai.Client
}

// NewGemini creates a Gemini backend. A non-empty URL overrides the API
// base URL.
func NewGemini(ctx context.Context, cfg config.ProviderConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash-exp"
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.URL != "" {
		cc.HTTPOptions.BaseURL = cfg.URL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Gemini{name: nameOr(cfg.Name, "gemini"), model: model, client: client}, nil
}

// Generate implements generation.Backend.
func (g *Gemini) Generate(ctx context.Context, req models.GenerationRequest) (string, error) {
	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(req.MaxOutputTokens),
	}
	if req.TopP > 0 {
		gc.TopP = genai.Ptr(float32(req.TopP))
	}
	if req.TopK > 0 {
		gc.TopK = genai.Ptr(float32(req.TopK))
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), gc)
	if err != nil {
		return "", classifyGemini(g.name, err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", emptyResponse(g.name)
	}
	return text, nil
}

// classifyGemini maps SDK errors to a failure kind. Quota exhaustion is
// reported as HTTP 429 with status RESOURCE_EXHAUSTED.
func classifyGemini(name string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		kind := generation.KindOther
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED" {
			kind = generation.KindRateLimited
		}
		return generation.NewProviderError(name, kind, apiErr.Code, err)
	}
	return generation.NewProviderError(name, generation.KindOther, 0, err)
}
