// Package llm talks to OpenAI-compatible chat completion endpoints. A Backend
// is one endpoint; a Chain tries backends in configured order; a Client wraps
// a Backend with role-based model selection and bounded retries.
package llm

import "context"

// Role selects which configured model handles a request.
type Role string

const (
	// RoleResearch gathers background information about a project.
	RoleResearch Role = "research"
	// RoleReasoning runs the per-question scoring analysis.
	RoleReasoning Role = "reasoning"
	// RoleSynthesis writes the executive summary.
	RoleSynthesis Role = "synthesis"
)

// Request is a normalized chat completion request.
type Request struct {
	Model     string
	System    string
	Prompt    string
	MaxTokens int
}

// Response is a normalized chat completion result.
type Response struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	// Cost is the request price in USD. Zero for local backends and for
	// models with no pricing entry.
	Cost float64
}

// Backend is a single chat completion endpoint.
type Backend interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}
