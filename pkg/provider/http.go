package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pario-ai/propgen/pkg/generation"
)

const maxErrorBody = 512

// upstreamResult holds the response from a single upstream call.
type upstreamResult struct {
	statusCode int
	body       []byte
}

// doUpstreamRequest sends a JSON POST to providerURL+path.
func doUpstreamRequest(ctx context.Context, client *http.Client, providerURL, path string, headers map[string]string, body []byte) (*upstreamResult, error) {
	target, err := url.Parse(providerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid provider URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(target.String(), "/")+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &upstreamResult{statusCode: resp.StatusCode, body: respBody}, nil
}

// classifyStatus maps an HTTP status to a failure kind.
func classifyStatus(status int) generation.Kind {
	if status == http.StatusTooManyRequests {
		return generation.KindRateLimited
	}
	return generation.KindOther
}

// postJSON marshals in, posts it and decodes a 2xx response into out.
// Failures come back as *generation.ProviderError.
func postJSON(ctx context.Context, client *http.Client, name, baseURL, path string, headers map[string]string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return generation.NewProviderError(name, generation.KindOther, 0, fmt.Errorf("marshal request: %w", err))
	}

	res, err := doUpstreamRequest(ctx, client, baseURL, path, headers, body)
	if err != nil {
		return generation.NewProviderError(name, generation.KindOther, 0, err)
	}
	if res.statusCode < 200 || res.statusCode > 299 {
		return generation.NewProviderError(name, classifyStatus(res.statusCode), res.statusCode,
			errors.New(truncate(strings.TrimSpace(string(res.body)), maxErrorBody)))
	}
	if err := json.Unmarshal(res.body, out); err != nil {
		return generation.NewProviderError(name, generation.KindOther, res.statusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func emptyResponse(name string) error {
	return generation.NewProviderError(name, generation.KindOther, 0, errors.New("empty response"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func floatPtr(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}

func intPtr(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
