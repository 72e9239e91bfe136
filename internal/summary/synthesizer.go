// Package summary synthesizes the final partnership narrative from the
// research text and the six scored questions. The numeric verdict is computed
// before synthesis and survives even when prose generation fails.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"catalyst/internal/llm"
	"catalyst/internal/logging"
	"catalyst/internal/question"
	"catalyst/internal/scoring"
)

// Completer is the LLM surface the synthesizer needs.
type Completer interface {
	Complete(ctx context.Context, role llm.Role, system, prompt string) (*llm.Response, error)
}

// Outcome carries the synthesized narrative alongside the numeric verdict.
// Success refers to prose generation only; TotalScore and Tier are always
// valid.
type Outcome struct {
	Narrative      string
	TotalScore     int
	Tier           scoring.Tier
	Recommendation string
	Cost           float64
	Success        bool
	Error          string
}

// Synthesizer runs the final synthesis call.
type Synthesizer struct {
	llm     Completer
	timeout time.Duration
	logger  *slog.Logger
}

// NewSynthesizer wires a synthesizer with the per-call timeout.
func NewSynthesizer(completer Completer, timeout time.Duration) *Synthesizer {
	return &Synthesizer{llm: completer, timeout: timeout, logger: logging.New("summary")}
}

// Synthesize aggregates the scores and asks the synthesis model for the final
// narrative. On failure the narrative is rebuilt from the scores alone.
func (s *Synthesizer) Synthesize(ctx context.Context, project, generalResearch string, results []question.Result) Outcome {
	total, tier := scoring.Aggregate(results)
	out := Outcome{
		TotalScore:     total,
		Tier:           tier,
		Recommendation: scoring.Recommendation(tier),
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.llm.Complete(callCtx, llm.RoleSynthesis, "", synthesisPrompt(project, generalResearch, results))
	if err != nil {
		s.logger.Warn("synthesis failed, using numeric fallback", "project", project, "error", err)
		out.Narrative = fallbackNarrative(project, total, out.Recommendation, results)
		out.Error = err.Error()
		return out
	}
	out.Narrative = resp.Text
	out.Cost = resp.Cost
	out.Success = true
	return out
}

// analysisSummary lays out the research plus each question's analysis for the
// synthesis prompt, with long sections truncated.
func analysisSummary(generalResearch string, results []question.Result) string {
	var parts []string
	if generalResearch != "" {
		text := generalResearch
		if len(text) > 1000 {
			text = text[:1000] + "..."
		}
		parts = append(parts, "GENERAL RESEARCH:\n"+text)
	}
	parts = append(parts, "\nQUESTION-SPECIFIC ANALYSES:")
	for _, r := range results {
		analysis := r.Analysis
		if len(analysis) > 300 {
			analysis = analysis[:300] + "..."
		}
		parts = append(parts, fmt.Sprintf("\n%s: %+d (%s)", r.Question, r.Score, r.Confidence))
		parts = append(parts, "Analysis: "+analysis)
	}
	return strings.Join(parts, "\n")
}

func synthesisPrompt(project, generalResearch string, results []question.Result) string {
	return fmt.Sprintf(`You are the partnership scout's final decision engine. Your role is to synthesize all research and analysis into a definitive hackathon catalyst recommendation.

PROJECT: %s

COMPLETE ANALYSIS SUMMARY:
%s

SCORING BREAKDOWN:
%s

SYNTHESIS INSTRUCTIONS:

1. **Calculate Total Score**: Sum all individual question scores for final score
2. **Apply Framework Thresholds**:
   - Score >= 4: strong candidate; explore MoU/co-marketing
   - Score 0-3: mixed; negotiate scope
   - Score < 0: decline or redesign the collaboration

3. **Format as Partnership Brief**:

   PARTNERSHIP ASSESSMENT: %s

   FINAL SCORE: [X]/6
   RECOMMENDATION: [Threshold-based recommendation]

   KEY FINDINGS:
   - [Most compelling partnership strength]
   - [Primary concern or limitation]
   - [Integration/collaboration feasibility]

   NEXT STEPS:
   - [Specific actionable recommendation]
   - [Risk mitigation if needed]

   HACKATHON CATALYST POTENTIAL: [High/Medium/Low] - [Brief justification]

Synthesize with authority and precision. This recommendation will drive partnership decisions.`,
		project, analysisSummary(generalResearch, results), scoring.Breakdown(results), project)
}

// fallbackNarrative renders the verdict from the numbers alone.
func fallbackNarrative(project string, total int, recommendation string, results []question.Result) string {
	return fmt.Sprintf(`PARTNERSHIP ASSESSMENT: %s

FINAL SCORE: %+d/6
RECOMMENDATION: %s

(Narrative synthesis unavailable; assessment derived from scores.)

%s`, project, total, recommendation, scoring.Breakdown(results))
}
