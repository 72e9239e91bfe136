// Package question evaluates one diagnostic question against a project using
// a two-phase workflow: a research call to gather question-specific evidence,
// then a reasoning call to score it. Both phases cache by a project-isolated
// key so one project's analysis can never leak into another's.
package question

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"catalyst/internal/config"
	"catalyst/internal/llm"
	"catalyst/internal/logging"
	"catalyst/internal/metrics"
	"catalyst/internal/store"
)

// Completer is the LLM surface the evaluator needs.
type Completer interface {
	Complete(ctx context.Context, role llm.Role, system, prompt string) (*llm.Response, error)
}

// Result is the structured outcome for one diagnostic question. Failures are
// expressed as degraded values here, never as a raised error: score 0,
// confidence Error, success=false.
type Result struct {
	QuestionID int        `json:"question_id"`
	Question   string     `json:"question"`
	Key        string     `json:"question_key"`
	Analysis   string     `json:"analysis"`
	Score      int        `json:"score"`
	Confidence Confidence `json:"confidence"`
	Success    bool       `json:"success"`
	Error      string     `json:"error,omitempty"`
	Cost       float64    `json:"cost"`
	// Cached marks an analysis served from the verdict cache.
	Cached bool `json:"cached,omitempty"`
	// ParseDegraded marks results whose SCORE/CONFIDENCE structure was
	// missing and defaults were substituted.
	ParseDegraded bool `json:"parse_degraded,omitempty"`
}

// Failed builds the degraded result for spec with the given narrative and error.
func Failed(spec config.QuestionSpec, analysis, errMsg string) Result {
	return Result{
		QuestionID: spec.ID,
		Question:   spec.Question,
		Key:        spec.Key,
		Analysis:   analysis,
		Score:      0,
		Confidence: ConfidenceError,
		Success:    false,
		Error:      errMsg,
	}
}

// Options bounds the evaluator's calls.
type Options struct {
	Freshness          time.Duration
	ResearchTimeout    time.Duration // phase 1
	AnalysisTimeout    time.Duration // phase 2
	MaxResearchContext int
	MaxAnalysisContext int
}

// Evaluator runs the two-phase evaluation for single questions.
type Evaluator struct {
	llm      Completer
	store    store.Store
	guidance string
	opts     Options
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewEvaluator wires an evaluator. guidance is the static framework text
// embedded in every analysis prompt.
func NewEvaluator(completer Completer, st store.Store, guidance string, opts Options) *Evaluator {
	return &Evaluator{
		llm:      completer,
		store:    st,
		guidance: guidance,
		opts:     opts,
		metrics:  metrics.New(),
		logger:   logging.New("question"),
	}
}

// phaseResult is the cached payload for the research phase.
type phaseResult struct {
	Content string  `json:"content"`
	Cost    float64 `json:"cost"`
	Success bool    `json:"success"`
	Error   string  `json:"error,omitempty"`
}

// Evaluate runs both phases for one question. It always returns a usable
// Result; upstream failures surface as degraded values.
func (e *Evaluator) Evaluate(ctx context.Context, project string, spec config.QuestionSpec, generalResearch string) Result {
	research := e.questionResearch(ctx, project, spec, generalResearch)
	if !research.Success {
		r := Failed(spec, research.Content, research.Error)
		r.Cost = research.Cost
		return r
	}
	result := e.questionAnalysis(ctx, project, spec, generalResearch, research.Content)
	result.Cost += research.Cost
	return result
}

// questionResearch is phase 1: gather question-specific evidence. Failed
// calls are cached too, so a flapping upstream is not hammered on re-runs.
func (e *Evaluator) questionResearch(ctx context.Context, project string, spec config.QuestionSpec, generalResearch string) phaseResult {
	key := store.Key(fmt.Sprintf("research_q%d", spec.ID), project, spec.Question)
	if blob, ok := e.store.LookupBlob(key, e.opts.Freshness); ok {
		var cached phaseResult
		if err := json.Unmarshal(blob, &cached); err == nil {
			e.logger.Debug("research cache hit", "project", project, "question_id", spec.ID)
			e.metrics.CacheHitsTotal.WithLabelValues("research").Inc()
			return cached
		}
	}
	e.metrics.CacheMissesTotal.WithLabelValues("research").Inc()

	prompt := researchPrompt(spec, truncate(generalResearch, e.opts.MaxResearchContext))
	callCtx, cancel := context.WithTimeout(ctx, e.opts.ResearchTimeout)
	defer cancel()

	resp, err := e.llm.Complete(callCtx, llm.RoleResearch, "", prompt)
	var result phaseResult
	if err != nil {
		e.logger.Warn("question research failed", "project", project, "question_id", spec.ID, "error", err)
		result = phaseResult{
			Content: "Research failed for question: " + spec.Question,
			Success: false,
			Error:   err.Error(),
		}
	} else {
		result = phaseResult{Content: resp.Text, Cost: resp.Cost, Success: true}
	}
	if blob, err := json.Marshal(result); err == nil {
		e.store.StoreBlob(key, project, spec.ID, "research", blob)
	}
	return result
}

// questionAnalysis is phase 2: score the gathered evidence with the
// reasoning model and parse the structured output.
func (e *Evaluator) questionAnalysis(ctx context.Context, project string, spec config.QuestionSpec, generalResearch, questionResearch string) Result {
	key := store.Key(fmt.Sprintf("analysis_q%d", spec.ID), project, spec.Question)
	if blob, ok := e.store.LookupBlob(key, e.opts.Freshness); ok {
		var cached Result
		if err := json.Unmarshal(blob, &cached); err == nil {
			e.logger.Debug("analysis cache hit", "project", project, "question_id", spec.ID)
			e.metrics.CacheHitsTotal.WithLabelValues("analysis").Inc()
			cached.Cached = true
			return cached
		}
	}
	e.metrics.CacheMissesTotal.WithLabelValues("analysis").Inc()

	analysisContext := buildAnalysisContext(generalResearch, questionResearch, e.opts.MaxAnalysisContext)
	prompt := analysisPrompt(spec, analysisContext, e.guidance)
	callCtx, cancel := context.WithTimeout(ctx, e.opts.AnalysisTimeout)
	defer cancel()

	resp, err := e.llm.Complete(callCtx, llm.RoleReasoning, "", prompt)
	if err != nil {
		e.logger.Warn("question analysis failed", "project", project, "question_id", spec.ID, "error", err)
		return Failed(spec, "Analysis failed: "+err.Error(), err.Error())
	}

	parsed := ParseAnalysis(resp.Text)
	if parsed.Degraded {
		e.logger.Warn("analysis response missing structure, defaults substituted",
			"project", project, "question_id", spec.ID)
	}
	result := Result{
		QuestionID:    spec.ID,
		Question:      spec.Question,
		Key:           spec.Key,
		Analysis:      parsed.Analysis,
		Score:         parsed.Score,
		Confidence:    parsed.Confidence,
		Success:       true,
		Cost:          resp.Cost,
		ParseDegraded: parsed.Degraded,
	}
	if blob, err := json.Marshal(result); err == nil {
		e.store.StoreBlob(key, project, spec.ID, "analysis", blob)
	}
	return result
}

// truncate bounds s to max characters, marking the cut.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "\n... [context truncated]"
}

// buildAnalysisContext layers the question-specific research over the general
// research, bounded to max characters.
func buildAnalysisContext(generalResearch, questionResearch string, max int) string {
	var parts []string
	if questionResearch != "" {
		parts = append(parts, "QUESTION-SPECIFIC RESEARCH:\n"+questionResearch)
	}
	if generalResearch != "" {
		parts = append(parts, "GENERAL CONTEXT:\n"+generalResearch)
	}
	return truncate(strings.Join(parts, "\n\n"), max)
}
