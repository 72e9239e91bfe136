package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"catalyst/internal/catalog"
	"catalyst/internal/config"
	"catalyst/internal/question"
	"catalyst/internal/scoring"
	"catalyst/internal/store"
	"catalyst/internal/summary"
)

type fakeResearcher struct {
	calls int32
	text  string
	panic bool
}

func (f *fakeResearcher) Run(_ context.Context, project string, _ *catalog.Detail) *store.Research {
	atomic.AddInt32(&f.calls, 1)
	if f.panic {
		panic("research exploded")
	}
	return &store.Research{Project: project, Text: f.text, Success: true}
}

// fakeEvaluator scores every question +1/High unless overridden per id.
type fakeEvaluator struct {
	calls    int32
	failIDs  map[int]bool
	panicIDs map[int]bool
	blockIDs map[int]bool
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, project string, spec config.QuestionSpec, _ string) question.Result {
	atomic.AddInt32(&f.calls, 1)
	if f.panicIDs[spec.ID] {
		panic(fmt.Sprintf("evaluator %d exploded", spec.ID))
	}
	if f.blockIDs[spec.ID] {
		<-ctx.Done()
		return question.Failed(spec, "late", ctx.Err().Error())
	}
	if f.failIDs[spec.ID] {
		return question.Failed(spec, "Analysis failed: upstream down", "upstream down")
	}
	return question.Result{
		QuestionID: spec.ID,
		Question:   spec.Question,
		Key:        spec.Key,
		Analysis:   "looks good",
		Score:      1,
		Confidence: question.ConfidenceHigh,
		Success:    true,
		Cost:       0.01,
	}
}

type fakeSynthesizer struct {
	calls int32
	fail  bool
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, project, _ string, results []question.Result) summary.Outcome {
	atomic.AddInt32(&f.calls, 1)
	total, tier := scoring.Aggregate(results)
	out := summary.Outcome{
		TotalScore:     total,
		Tier:           tier,
		Recommendation: scoring.Recommendation(tier),
	}
	if f.fail {
		out.Narrative = fmt.Sprintf("FINAL SCORE: %+d/6 (fallback)", total)
		out.Error = "synthesis down"
		return out
	}
	out.Narrative = "PARTNERSHIP ASSESSMENT: " + project
	out.Success = true
	return out
}

type env struct {
	store       *store.SqlStore
	researcher  *fakeResearcher
	evaluator   *fakeEvaluator
	synthesizer *fakeSynthesizer
}

func newEnv(t *testing.T, opts Options) (*Orchestrator, *env) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "catalyst.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if opts.Freshness == 0 {
		opts.Freshness = 24 * time.Hour
	}
	if opts.QuestionTimeout == 0 {
		opts.QuestionTimeout = time.Second
	}
	e := &env{
		store:       st,
		researcher:  &fakeResearcher{text: "Acme provides X"},
		evaluator:   &fakeEvaluator{},
		synthesizer: &fakeSynthesizer{},
	}
	return New(st, nil, e.researcher, e.evaluator, e.synthesizer, opts), e
}

func TestAnalyzeProject_EndToEnd(t *testing.T) {
	o, e := newEnv(t, Options{})

	res := o.AnalyzeProject(context.Background(), Project{Name: "Acme", Slug: "acme"})
	if res.State != StatePersisted {
		t.Fatalf("state = %s, want PERSISTED (err: %v)", res.State, res.Err)
	}
	if len(res.Results) != config.QuestionCount {
		t.Fatalf("results = %d, want %d", len(res.Results), config.QuestionCount)
	}
	for i, r := range res.Results {
		if r.QuestionID != i+1 {
			t.Fatalf("results not sorted: position %d has q%d", i, r.QuestionID)
		}
		if r.Score != 1 || r.Confidence != question.ConfidenceHigh {
			t.Fatalf("q%d = %d/%s", r.QuestionID, r.Score, r.Confidence)
		}
	}
	if res.Verdict.TotalScore != 6 {
		t.Fatalf("total = %d, want 6", res.Verdict.TotalScore)
	}
	if !strings.HasPrefix(res.Verdict.Recommendation, "Green-light partnership") {
		t.Fatalf("recommendation = %q", res.Verdict.Recommendation)
	}

	// Everything is persisted.
	rows, err := e.store.ListQuestionRows("Acme")
	if err != nil {
		t.Fatalf("list question rows: %v", err)
	}
	if len(rows) != config.QuestionCount {
		t.Fatalf("persisted rows = %d", len(rows))
	}
	v, err := e.store.GetVerdict("Acme")
	if err != nil || v == nil {
		t.Fatalf("verdict not persisted: %v", err)
	}
	if v.TotalScore != 6 {
		t.Fatalf("persisted total = %d", v.TotalScore)
	}
}

func TestAnalyzeProject_SkipsFreshVerdict(t *testing.T) {
	o, e := newEnv(t, Options{})

	if err := e.store.SaveVerdict(&store.Verdict{Project: "Acme", TotalScore: 3, Success: true}); err != nil {
		t.Fatalf("seed verdict: %v", err)
	}

	res := o.AnalyzeProject(context.Background(), Project{Name: "Acme"})
	if res.State != StateSkipped {
		t.Fatalf("state = %s, want SKIPPED", res.State)
	}
	if e.researcher.calls != 0 || e.evaluator.calls != 0 || e.synthesizer.calls != 0 {
		t.Fatalf("collaborators invoked on skip: %d/%d/%d",
			e.researcher.calls, e.evaluator.calls, e.synthesizer.calls)
	}
}

func TestAnalyzeProject_ForceRefreshBypassesSkip(t *testing.T) {
	o, e := newEnv(t, Options{ForceRefresh: true})

	if err := e.store.SaveVerdict(&store.Verdict{Project: "Acme", TotalScore: 3, Success: true}); err != nil {
		t.Fatalf("seed verdict: %v", err)
	}

	res := o.AnalyzeProject(context.Background(), Project{Name: "Acme"})
	if res.State != StatePersisted {
		t.Fatalf("state = %s, want PERSISTED", res.State)
	}
	if e.researcher.calls != 1 {
		t.Fatal("research not re-run under force refresh")
	}
}

func TestAnalyzeProject_ResearchOnly(t *testing.T) {
	o, e := newEnv(t, Options{ResearchOnly: true})

	res := o.AnalyzeProject(context.Background(), Project{Name: "Acme"})
	if res.State != StateResearched {
		t.Fatalf("state = %s, want RESEARCHED", res.State)
	}
	if e.evaluator.calls != 0 || e.synthesizer.calls != 0 {
		t.Fatal("later stages ran in research-only mode")
	}
	if res.Research == nil || res.Research.Text != "Acme provides X" {
		t.Fatalf("research = %+v", res.Research)
	}
}

func TestAnalyzeProject_QuestionsOnly(t *testing.T) {
	o, e := newEnv(t, Options{QuestionsOnly: true})

	res := o.AnalyzeProject(context.Background(), Project{Name: "Acme"})
	if res.State != StateQuestionsDone {
		t.Fatalf("state = %s, want QUESTIONS_DONE", res.State)
	}
	if e.synthesizer.calls != 0 {
		t.Fatal("synthesis ran in questions-only mode")
	}
	rows, err := e.store.ListQuestionRows("Acme")
	if err != nil {
		t.Fatalf("list rows: %v", err)
	}
	if len(rows) != config.QuestionCount {
		t.Fatalf("rows = %d", len(rows))
	}
}

func TestRunQuestions_OneFailureDoesNotContaminateSiblings(t *testing.T) {
	o, e := newEnv(t, Options{})
	e.evaluator.failIDs = map[int]bool{3: true}

	res := o.AnalyzeProject(context.Background(), Project{Name: "Acme"})
	if res.State != StatePersisted {
		t.Fatalf("state = %s", res.State)
	}
	if len(res.Results) != 6 {
		t.Fatalf("results = %d, want 6", len(res.Results))
	}
	for _, r := range res.Results {
		if r.QuestionID == 3 {
			if r.Success || r.Score != 0 || r.Confidence != question.ConfidenceError {
				t.Fatalf("q3 not degraded: %+v", r)
			}
			continue
		}
		if !r.Success || r.Score != 1 {
			t.Fatalf("sibling q%d contaminated: %+v", r.QuestionID, r)
		}
	}
	if res.Verdict.TotalScore != 5 {
		t.Fatalf("total = %d, want 5", res.Verdict.TotalScore)
	}
}

func TestRunQuestions_TimeoutInjectsSyntheticResult(t *testing.T) {
	o, e := newEnv(t, Options{QuestionTimeout: 50 * time.Millisecond})
	e.evaluator.blockIDs = map[int]bool{2: true}

	res := o.AnalyzeProject(context.Background(), Project{Name: "Acme"})
	if len(res.Results) != 6 {
		t.Fatalf("results = %d, want 6", len(res.Results))
	}
	q2 := res.Results[1]
	if q2.QuestionID != 2 || q2.Success {
		t.Fatalf("q2 = %+v", q2)
	}
	if q2.Error != "Timeout" && !strings.Contains(q2.Error, "deadline") {
		t.Fatalf("q2 error = %q, want timeout marker", q2.Error)
	}
	if q2.Score != 0 {
		t.Fatalf("q2 score = %d", q2.Score)
	}
}

func TestRunQuestions_PanicContained(t *testing.T) {
	o, e := newEnv(t, Options{})
	e.evaluator.panicIDs = map[int]bool{5: true}

	res := o.AnalyzeProject(context.Background(), Project{Name: "Acme"})
	if res.State != StatePersisted {
		t.Fatalf("state = %s", res.State)
	}
	q5 := res.Results[4]
	if q5.Success || !strings.HasPrefix(q5.Error, "panic:") {
		t.Fatalf("q5 = %+v", q5)
	}
	for _, r := range res.Results {
		if r.QuestionID != 5 && !r.Success {
			t.Fatalf("sibling q%d affected by panic: %+v", r.QuestionID, r)
		}
	}
}

func TestAnalyzeProject_SynthesisFailureKeepsNumericVerdict(t *testing.T) {
	o, e := newEnv(t, Options{})
	e.synthesizer.fail = true

	res := o.AnalyzeProject(context.Background(), Project{Name: "Acme"})
	if res.State != StatePersisted {
		t.Fatalf("state = %s", res.State)
	}
	if res.Verdict.Success {
		t.Fatal("verdict success should reflect synthesis failure")
	}
	if res.Verdict.TotalScore != 6 {
		t.Fatalf("numeric verdict lost: %d", res.Verdict.TotalScore)
	}
	if !strings.Contains(res.Verdict.Summary, "fallback") {
		t.Fatalf("summary = %q", res.Verdict.Summary)
	}
}

func TestAnalyzeProject_RerunIsIdempotent(t *testing.T) {
	o, e := newEnv(t, Options{})

	first := o.AnalyzeProject(context.Background(), Project{Name: "Acme"})
	if first.State != StatePersisted {
		t.Fatalf("first state = %s", first.State)
	}
	calls := e.evaluator.calls

	second := o.AnalyzeProject(context.Background(), Project{Name: "Acme"})
	if second.State != StateSkipped {
		t.Fatalf("second state = %s, want SKIPPED", second.State)
	}
	if e.evaluator.calls != calls {
		t.Fatal("re-run triggered new evaluations")
	}

	verdicts, err := e.store.ListVerdicts()
	if err != nil {
		t.Fatalf("list verdicts: %v", err)
	}
	if len(verdicts) != 1 {
		t.Fatalf("verdicts = %d, want 1", len(verdicts))
	}
}

func TestRunBatch_ResultsAlignedAndFailuresIsolated(t *testing.T) {
	o, e := newEnv(t, Options{})
	_ = e

	projects := []Project{{Name: "A"}, {Name: "B"}, {Name: "C"}, {Name: "D"}, {Name: "E"}}
	results := o.RunBatch(context.Background(), projects, BatchOptions{
		Size:           2,
		ProjectTimeout: 5 * time.Second,
	})
	if len(results) != len(projects) {
		t.Fatalf("results = %d, want %d", len(results), len(projects))
	}
	for i, r := range results {
		if r == nil {
			t.Fatalf("missing result at %d", i)
		}
		if r.Project != projects[i].Name {
			t.Fatalf("result %d is %q, want %q", i, r.Project, projects[i].Name)
		}
		if r.State != StatePersisted {
			t.Fatalf("%s state = %s", r.Project, r.State)
		}
	}
}

func TestRunBatch_PanicYieldsFailedEntry(t *testing.T) {
	o, e := newEnv(t, Options{})
	e.researcher.panic = true

	results := o.RunBatch(context.Background(), []Project{{Name: "Boom"}}, BatchOptions{Size: 1})
	if len(results) != 1 {
		t.Fatalf("results = %d", len(results))
	}
	if results[0].State != StateFailed {
		t.Fatalf("state = %s, want FAILED", results[0].State)
	}
	if results[0].Err == nil || !strings.Contains(results[0].Err.Error(), "panicked") {
		t.Fatalf("err = %v", results[0].Err)
	}
}

func TestRunBatch_ProjectTimeoutFails(t *testing.T) {
	o, e := newEnv(t, Options{QuestionTimeout: 10 * time.Second})
	e.evaluator.blockIDs = map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true}

	results := o.RunBatch(context.Background(), []Project{{Name: "Slow"}}, BatchOptions{
		Size:           1,
		ProjectTimeout: 100 * time.Millisecond,
	})
	r := results[0]
	// Every question degraded under the project deadline; the numeric verdict
	// still persists.
	if r.State != StatePersisted {
		t.Fatalf("state = %s", r.State)
	}
	for _, q := range r.Results {
		if q.Success {
			t.Fatalf("q%d succeeded past the deadline", q.QuestionID)
		}
	}
	if r.Verdict.TotalScore != 0 {
		t.Fatalf("total = %d, want 0", r.Verdict.TotalScore)
	}
}
