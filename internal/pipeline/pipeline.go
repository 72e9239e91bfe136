// Package pipeline orchestrates the per-project analysis pass: research once,
// fan out over the six diagnostic questions, aggregate, synthesize, persist.
// Collaborators are injected as interfaces so tests can substitute fakes.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"catalyst/internal/catalog"
	"catalyst/internal/config"
	"catalyst/internal/logging"
	"catalyst/internal/metrics"
	"catalyst/internal/question"
	"catalyst/internal/store"
	"catalyst/internal/summary"
)

// State is a project's position in the pipeline.
type State string

const (
	StatePending       State = "PENDING"
	StateResearched    State = "RESEARCHED"
	StateQuestionsDone State = "QUESTIONS_DONE"
	StateSummarized    State = "SUMMARIZED"
	StatePersisted     State = "PERSISTED"
	StateSkipped       State = "SKIPPED"
	StateFailed        State = "FAILED"
)

// Researcher produces the per-project research narrative. It never fails;
// degraded research carries fallback text.
type Researcher interface {
	Run(ctx context.Context, project string, detail *catalog.Detail) *store.Research
}

// Evaluator scores one diagnostic question. It never fails; degraded results
// carry score 0 and an Error confidence.
type Evaluator interface {
	Evaluate(ctx context.Context, project string, spec config.QuestionSpec, generalResearch string) question.Result
}

// Synthesizer produces the final narrative and numeric verdict.
type Synthesizer interface {
	Synthesize(ctx context.Context, project, generalResearch string, results []question.Result) summary.Outcome
}

// CatalogSource supplies project listings and details. May be nil when
// analyzing ad-hoc project names.
type CatalogSource interface {
	ListSlugs(ctx context.Context, limit int) ([]string, error)
	GetProject(ctx context.Context, slug string) (*catalog.Detail, error)
}

// Project identifies one analysis target.
type Project struct {
	Name string
	Slug string
}

// Options control a pipeline pass.
type Options struct {
	Freshness       time.Duration
	QuestionTimeout time.Duration // per fan-out task

	ForceRefresh  bool
	ResearchOnly  bool
	QuestionsOnly bool
}

// RunResult is the outcome of one project's pass.
type RunResult struct {
	Project  string
	State    State
	Research *store.Research
	Results  []question.Result
	Verdict  *store.Verdict
	Cost     float64
	Err      error
}

// Orchestrator drives the state machine for single projects and batches.
type Orchestrator struct {
	store       store.Store
	catalog     CatalogSource
	researcher  Researcher
	evaluator   Evaluator
	synthesizer Synthesizer
	opts        Options
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// New wires an orchestrator. catalogSrc may be nil.
func New(st store.Store, catalogSrc CatalogSource, r Researcher, e Evaluator, s Synthesizer, opts Options) *Orchestrator {
	return &Orchestrator{
		store:       st,
		catalog:     catalogSrc,
		researcher:  r,
		evaluator:   e,
		synthesizer: s,
		opts:        opts,
		metrics:     metrics.New(),
		logger:      logging.New("pipeline"),
	}
}

// AnalyzeProject runs the full state machine for one project. Stage failures
// degrade rather than abort; the returned error covers persistence failures
// only.
func (o *Orchestrator) AnalyzeProject(ctx context.Context, p Project) *RunResult {
	res := &RunResult{Project: p.Name, State: StatePending}

	if !o.opts.ForceRefresh {
		fresh, err := o.store.FreshVerdictExists(p.Name, o.opts.Freshness)
		if err != nil {
			o.logger.Warn("freshness check failed, analyzing anyway", "project", p.Name, "error", err)
		} else if fresh {
			o.logger.Info("fresh verdict exists, skipping", "project", p.Name)
			res.State = StateSkipped
			o.metrics.ProjectsTotal.WithLabelValues("skipped").Inc()
			return res
		}
	}

	detail := o.fetchDetail(ctx, p)

	start := time.Now()
	res.Research = o.researcher.Run(ctx, p.Name, detail)
	res.Cost += res.Research.Cost
	res.State = StateResearched
	o.metrics.StageDuration.WithLabelValues("research").Observe(time.Since(start).Seconds())
	if o.opts.ResearchOnly {
		return res
	}

	start = time.Now()
	res.Results = o.runQuestions(ctx, p.Name, res.Research.Text)
	for i := range res.Results {
		res.Cost += res.Results[i].Cost
		o.persistQuestion(p.Name, &res.Results[i])
	}
	res.State = StateQuestionsDone
	o.metrics.StageDuration.WithLabelValues("questions").Observe(time.Since(start).Seconds())
	if o.opts.QuestionsOnly {
		return res
	}

	start = time.Now()
	out := o.synthesizer.Synthesize(ctx, p.Name, res.Research.Text, res.Results)
	res.Cost += out.Cost
	res.State = StateSummarized
	o.metrics.StageDuration.WithLabelValues("summary").Observe(time.Since(start).Seconds())
	o.metrics.CostUSDTotal.Add(res.Cost)

	verdict := &store.Verdict{
		Project:        p.Name,
		Slug:           p.Slug,
		Summary:        out.Narrative,
		TotalScore:     out.TotalScore,
		Recommendation: out.Recommendation,
		Success:        out.Success,
		Error:          out.Error,
	}
	if err := o.store.SaveVerdict(verdict); err != nil {
		res.State = StateFailed
		res.Err = fmt.Errorf("persist verdict for %s: %w", p.Name, err)
		o.metrics.ProjectsTotal.WithLabelValues("failed").Inc()
		return res
	}
	res.Verdict = verdict
	res.State = StatePersisted
	o.metrics.ProjectsTotal.WithLabelValues("persisted").Inc()
	o.logger.Info("project persisted",
		"project", p.Name, "total_score", out.TotalScore, "tier", out.Tier, "cost_usd", res.Cost)
	return res
}

// fetchDetail pulls catalog data for the prompt context. Catalog trouble is
// never fatal; research degrades to a cold prompt.
func (o *Orchestrator) fetchDetail(ctx context.Context, p Project) *catalog.Detail {
	if o.catalog == nil || p.Slug == "" {
		return nil
	}
	detail, err := o.catalog.GetProject(ctx, p.Slug)
	if err != nil {
		o.logger.Warn("catalog fetch failed, proceeding without enrichment", "project", p.Name, "error", err)
		return nil
	}
	return detail
}

func (o *Orchestrator) persistQuestion(project string, r *question.Result) {
	row := &store.QuestionRow{
		Project:    project,
		QuestionID: r.QuestionID,
		Key:        r.Key,
		Analysis:   r.Analysis,
		Score:      r.Score,
		Confidence: string(r.Confidence),
		Success:    r.Success,
		Error:      r.Error,
		Cost:       r.Cost,
	}
	if err := o.store.SaveQuestionRow(row); err != nil {
		o.logger.Warn("failed to persist question result", "project", project, "question_id", r.QuestionID, "error", err)
	}
}
