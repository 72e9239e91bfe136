// Package research produces the single per-project research narrative that
// every downstream question evaluation builds on.
package research

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"catalyst/internal/catalog"
	"catalyst/internal/llm"
	"catalyst/internal/logging"
	"catalyst/internal/store"
)

// Completer is the LLM surface the agent needs.
type Completer interface {
	Complete(ctx context.Context, role llm.Role, system, prompt string) (*llm.Response, error)
}

// Agent runs the general research call for a project. A failed call degrades
// to a minimal summary built from catalog data; the result is persisted
// either way so the pipeline always has text to analyze.
type Agent struct {
	llm     Completer
	store   store.Store
	timeout time.Duration
	logger  *slog.Logger
}

// NewAgent wires a research agent with the per-call timeout.
func NewAgent(completer Completer, st store.Store, timeout time.Duration) *Agent {
	return &Agent{
		llm:     completer,
		store:   st,
		timeout: timeout,
		logger:  logging.New("research"),
	}
}

// Run researches project using the catalog detail as prompt context, persists
// the outcome, and returns it. Run never returns an error: research failure
// yields a Research row with Success=false and fallback text.
func (a *Agent) Run(ctx context.Context, project string, detail *catalog.Detail) *store.Research {
	slug := ""
	if detail != nil {
		slug = detail.Slug
	}
	r := &store.Research{Project: project, Slug: slug}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.llm.Complete(callCtx, llm.RoleResearch, "", prompt(project, detail.ContextBlock()))
	if err != nil {
		a.logger.Warn("research failed, using catalog fallback", "project", project, "error", err)
		r.Text = detail.FallbackSummary(project)
		r.Success = false
		r.Error = err.Error()
	} else {
		r.Text = resp.Text
		r.Success = true
		r.Cost = resp.Cost
	}

	if err := a.store.SaveResearch(r); err != nil {
		a.logger.Warn("failed to persist research", "project", project, "error", err)
	}
	return r
}

// prompt builds the general research prompt from the catalog context block.
func prompt(project, contextBlock string) string {
	return fmt.Sprintf(`Research the project "%s" for hackathon partnership evaluation using the "1+1=3" discovery methodology.

KNOWN PROJECT INFORMATION FROM THE CATALOG:
%s

Your research should focus on identifying hackathon co-creation partners that can unlock developer potential
and create exponential value during hackathons and developer events.

Key Research Areas:
1. Core technology and unique capabilities that complement the host ecosystem's strengths
2. Developer tools, SDKs, and integration resources for hackathon participants
3. Target developer audience and technical complexity for rapid prototyping
4. Previous blockchain integrations or Web3 hackathon participation examples
5. Technical integration patterns with blockchain/Web3 (APIs, SDKs, libraries)
6. Ease of developer onboarding and learning curve for hackathon timeframes
7. Documentation quality and availability of tutorials and sample code
8. Community engagement with developers (Discord, forums, GitHub activity)
9. Track record of supporting developer events, hackathons, or educational initiatives
10. Hackathon support history, including mentors, bounties, and hands-on participation

RED FLAGS to identify and report:
- Complex enterprise-only solutions that don't fit hackathon timeframes
- Poor developer experience or lack of self-service onboarding
- "Logo on a slide" partnerships with no technical substance
- Technologies that compete directly with the host ecosystem's core capabilities
- Lack of developer-facing resources or community engagement

Focus on factual, verifiable information. Provide links to documentation, GitHub repos,
blog posts, and other official sources wherever possible.`, project, contextBlock)
}
