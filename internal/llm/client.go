package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"catalyst/internal/config"
	"catalyst/internal/logging"
	"catalyst/internal/metrics"
)

// Client routes requests to the configured model per role and retries
// transient failures with linear backoff (BaseDelay × attempt).
type Client struct {
	backend   Backend
	models    map[Role]string
	maxTokens int
	attempts  int
	baseDelay time.Duration
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewClient wires the fallback chain described by cfg.LLM.Order. Validate
// must have accepted cfg first.
func NewClient(cfg *config.Config) (*Client, error) {
	var backends []Backend
	for _, name := range cfg.LLM.Order {
		switch name {
		case "cloud":
			backends = append(backends, NewCloudBackend(cfg.LLM.CloudBaseURL, cfg.CloudAPIKey))
		case "local":
			backends = append(backends, NewLocalBackend(cfg.LLM.LocalBaseURL))
		default:
			return nil, fmt.Errorf("unknown backend %q", name)
		}
	}
	chain, err := NewChain(backends...)
	if err != nil {
		return nil, err
	}
	return NewClientWithBackend(chain, cfg), nil
}

// NewClientWithBackend builds a client over an explicit backend. Tests use
// this to substitute fakes.
func NewClientWithBackend(b Backend, cfg *config.Config) *Client {
	return &Client{
		backend: b,
		models: map[Role]string{
			RoleResearch:  cfg.LLM.ResearchModel,
			RoleReasoning: cfg.LLM.ReasoningModel,
			RoleSynthesis: cfg.LLM.SynthesisModel,
		},
		maxTokens: cfg.LLM.MaxOutputTokens,
		attempts:  cfg.Retry.Attempts,
		baseDelay: cfg.Retry.BaseDelay,
		metrics:   metrics.New(),
		logger:    logging.New("llm"),
	}
}

// Complete runs one completion for role, retrying failed attempts. Context
// cancellation and deadline expiry are terminal, not retried.
func (c *Client) Complete(ctx context.Context, role Role, system, prompt string) (*Response, error) {
	model, ok := c.models[role]
	if !ok || model == "" {
		return nil, fmt.Errorf("no model configured for role %q", role)
	}
	req := Request{Model: model, System: system, Prompt: prompt, MaxTokens: c.maxTokens}

	attempts := c.attempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := c.backend.Complete(ctx, req)
		if err == nil {
			c.metrics.LLMCallsTotal.WithLabelValues(string(role)).Inc()
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt < attempts {
			delay := c.baseDelay * time.Duration(attempt)
			c.logger.Warn("completion failed, retrying", "role", role, "model", model, "attempt", attempt, "delay", delay, "error", err)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, fmt.Errorf("%s completion: %w", role, ctx.Err())
			}
		}
	}
	return nil, fmt.Errorf("%s completion after %d attempts: %w", role, attempts, lastErr)
}
