package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// modelPrice is per-million-token USD pricing.
type modelPrice struct {
	Input  float64
	Output float64
}

// pricing covers the cloud models the default config names. Unknown models
// simply report zero cost.
var pricing = map[string]modelPrice{
	"gpt-4.1":      {Input: 2.00, Output: 8.00},
	"gpt-4.1-mini": {Input: 0.40, Output: 1.60},
	"gpt-4o":       {Input: 2.50, Output: 10.00},
	"gpt-4o-mini":  {Input: 0.15, Output: 0.60},
	"o4-mini":      {Input: 1.10, Output: 4.40},
}

func priceFor(model string, promptTokens, completionTokens int) float64 {
	p, ok := pricing[model]
	if !ok {
		// Try the base name for dated snapshots like gpt-4.1-2025-04-14.
		for prefix, cand := range pricing {
			if strings.HasPrefix(model, prefix+"-") {
				p, ok = cand, true
				break
			}
		}
	}
	if !ok {
		return 0
	}
	return (float64(promptTokens)*p.Input + float64(completionTokens)*p.Output) / 1e6
}

// HTTPBackend talks to one OpenAI-compatible /chat/completions endpoint.
type HTTPBackend struct {
	name    string
	baseURL string
	apiKey  string
	priced  bool
	client  *http.Client
}

// NewCloudBackend returns a backend for a hosted API. Token usage is priced.
func NewCloudBackend(baseURL, apiKey string) *HTTPBackend {
	return newHTTPBackend("cloud", baseURL, apiKey, true)
}

// NewLocalBackend returns a backend for a self-hosted server (ollama,
// llama.cpp, vllm). No API key, no cost accounting.
func NewLocalBackend(baseURL string) *HTTPBackend {
	return newHTTPBackend("local", baseURL, "", false)
}

func newHTTPBackend(name, baseURL, apiKey string, priced bool) *HTTPBackend {
	return &HTTPBackend{
		name:    name,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		priced:  priced,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

func (b *HTTPBackend) Name() string { return b.name }

// StatusError is a non-2xx reply from the completion endpoint.
type StatusError struct {
	Backend    string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s backend: status %d: %s", e.Backend, e.StatusCode, e.Message)
}

// Complete sends a chat completion request and returns the first choice.
func (b *HTTPBackend) Complete(ctx context.Context, req Request) (*Response, error) {
	messages := []map[string]any{}
	if req.System != "" {
		messages = append(messages, map[string]any{"role": "system", "content": req.System})
	}
	messages = append(messages, map[string]any{"role": "user", "content": req.Prompt})

	body := map[string]any{
		"model":    req.Model,
		"messages": messages,
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	httpResp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s backend: %w", b.name, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s backend: read response: %w", b.name, err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, &StatusError{Backend: b.name, StatusCode: httpResp.StatusCode, Message: apiErrorMessage(raw)}
	}

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%s backend: parse response: %w", b.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s backend: response has no choices", b.name)
	}

	out := &Response{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	if b.priced {
		out.Cost = priceFor(req.Model, out.PromptTokens, out.CompletionTokens)
	}
	return out, nil
}

// apiErrorMessage digs the human message out of an OpenAI-style error body,
// falling back to the raw body.
func apiErrorMessage(raw []byte) string {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
