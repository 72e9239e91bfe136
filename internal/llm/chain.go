package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"catalyst/internal/logging"
)

// Chain tries each backend in order until one succeeds. Fallback order is
// explicit configuration, never inferred.
type Chain struct {
	backends []Backend
	logger   *slog.Logger
}

// NewChain builds a fallback chain. At least one backend is required.
func NewChain(backends ...Backend) (*Chain, error) {
	if len(backends) == 0 {
		return nil, errors.New("llm chain needs at least one backend")
	}
	return &Chain{backends: backends, logger: logging.New("llm")}, nil
}

// Name returns the ordered backend names, e.g. "cloud>local".
func (c *Chain) Name() string {
	name := c.backends[0].Name()
	for _, b := range c.backends[1:] {
		name += ">" + b.Name()
	}
	return name
}

// Complete tries backends in order. A canceled or expired context stops the
// chain immediately; other failures fall through to the next backend. The
// returned error joins every backend failure when all of them fail.
func (c *Chain) Complete(ctx context.Context, req Request) (*Response, error) {
	var failures []error
	for _, b := range c.backends {
		resp, err := b.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s backend: %w", b.Name(), ctx.Err())
		}
		c.logger.Warn("backend failed, trying next", "backend", b.Name(), "model", req.Model, "error", err)
		failures = append(failures, fmt.Errorf("%s: %w", b.Name(), err))
	}
	return nil, fmt.Errorf("all backends failed: %w", errors.Join(failures...))
}
