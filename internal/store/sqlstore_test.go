package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func openTestStore(t *testing.T) *SqlStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "catalyst.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBlobCache_HitWithinWindow(t *testing.T) {
	s := openTestStore(t)
	key := Key("research_q1", "Acme", "gap question")
	s.StoreBlob(key, "Acme", 1, "research", []byte("research text"))

	got, ok := s.LookupBlob(key, 24*time.Hour)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(got) != "research text" {
		t.Fatalf("payload = %q, want %q", got, "research text")
	}
}

func TestBlobCache_MissWhenExpired(t *testing.T) {
	s := openTestStore(t)
	key := Key("research_q1", "Acme", "gap question")
	s.StoreBlob(key, "Acme", 1, "research", []byte("stale"))

	// Age the entry past the freshness window.
	old := time.Now().UTC().Add(-25 * time.Hour).Format(time.RFC3339)
	if _, err := s.db.Exec("UPDATE question_cache SET created_at = ?", old); err != nil {
		t.Fatalf("age entry: %v", err)
	}

	if _, ok := s.LookupBlob(key, 24*time.Hour); ok {
		t.Fatal("expected miss for 25h-old entry with 24h window")
	}

	recent := time.Now().UTC().Add(-23 * time.Hour).Format(time.RFC3339)
	if _, err := s.db.Exec("UPDATE question_cache SET created_at = ?", recent); err != nil {
		t.Fatalf("refresh entry: %v", err)
	}
	if _, ok := s.LookupBlob(key, 24*time.Hour); !ok {
		t.Fatal("expected hit for 23h-old entry with 24h window")
	}
}

func TestBlobCache_MissForUnknownKey(t *testing.T) {
	s := openTestStore(t)
	if _, ok := s.LookupBlob(Key("research_q1", "Nobody", "q"), time.Hour); ok {
		t.Fatal("expected miss for unknown key")
	}
}

func TestResearch_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	in := &Research{
		Project: "Acme",
		Slug:    "acme",
		Text:    "general research",
		Success: true,
		Cost:    0.0123,
	}
	if err := s.SaveResearch(in); err != nil {
		t.Fatalf("save research: %v", err)
	}
	got, err := s.GetResearch("Acme")
	if err != nil {
		t.Fatalf("get research: %v", err)
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Fatalf("research mismatch (-want +got):\n%s", diff)
	}

	missing, err := s.GetResearch("Globex")
	if err != nil {
		t.Fatalf("get missing research: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing project, got %+v", missing)
	}
}

func TestResearch_FailedRunPersists(t *testing.T) {
	s := openTestStore(t)
	in := &Research{
		Project: "Acme",
		Slug:    "acme",
		Text:    "Limited research available for Acme.",
		Success: false,
		Error:   "backend timeout",
	}
	if err := s.SaveResearch(in); err != nil {
		t.Fatalf("save failed research: %v", err)
	}
	got, err := s.GetResearch("Acme")
	if err != nil {
		t.Fatalf("get research: %v", err)
	}
	if got.Success {
		t.Fatal("expected success=false to survive round trip")
	}
	if got.Error != "backend timeout" {
		t.Fatalf("error = %q, want %q", got.Error, "backend timeout")
	}
}

func TestQuestionRows_OrderedByID(t *testing.T) {
	s := openTestStore(t)
	for _, id := range []int{4, 1, 6} {
		q := &QuestionRow{
			Project:    "Acme",
			QuestionID: id,
			Key:        "k",
			Analysis:   "a",
			Score:      1,
			Confidence: "High",
			Success:    true,
		}
		if err := s.SaveQuestionRow(q); err != nil {
			t.Fatalf("save question %d: %v", id, err)
		}
	}
	rows, err := s.ListQuestionRows("Acme")
	if err != nil {
		t.Fatalf("list question rows: %v", err)
	}
	var ids []int
	for _, q := range rows {
		ids = append(ids, q.QuestionID)
	}
	if diff := cmp.Diff([]int{1, 4, 6}, ids); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestQuestionRow_UpsertReplaces(t *testing.T) {
	s := openTestStore(t)
	first := &QuestionRow{Project: "Acme", QuestionID: 2, Score: -1, Confidence: "Low", Success: true}
	if err := s.SaveQuestionRow(first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	second := &QuestionRow{Project: "Acme", QuestionID: 2, Score: 1, Confidence: "High", Success: true}
	if err := s.SaveQuestionRow(second); err != nil {
		t.Fatalf("save second: %v", err)
	}
	rows, err := s.ListQuestionRows("Acme")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row after upsert, got %d", len(rows))
	}
	if rows[0].Score != 1 || rows[0].Confidence != "High" {
		t.Fatalf("upsert did not replace: %+v", rows[0])
	}
}

func TestVerdict_UpsertAndFreshness(t *testing.T) {
	s := openTestStore(t)
	v := &Verdict{
		Project:        "Acme",
		Slug:           "acme",
		Summary:        "first pass",
		TotalScore:     2,
		Recommendation: "mixed",
		Success:        true,
	}
	if err := s.SaveVerdict(v); err != nil {
		t.Fatalf("save verdict: %v", err)
	}

	fresh, err := s.FreshVerdictExists("Acme", 24*time.Hour)
	if err != nil {
		t.Fatalf("freshness check: %v", err)
	}
	if !fresh {
		t.Fatal("just-written verdict should be fresh")
	}

	fresh, err = s.FreshVerdictExists("Globex", 24*time.Hour)
	if err != nil {
		t.Fatalf("freshness check: %v", err)
	}
	if fresh {
		t.Fatal("missing verdict reported fresh")
	}

	// Re-run replaces, never duplicates.
	v2 := &Verdict{Project: "Acme", Slug: "acme", Summary: "second pass", TotalScore: 5, Success: true}
	if err := s.SaveVerdict(v2); err != nil {
		t.Fatalf("save second verdict: %v", err)
	}
	all, err := s.ListVerdicts()
	if err != nil {
		t.Fatalf("list verdicts: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 verdict, got %d", len(all))
	}
	if all[0].Summary != "second pass" || all[0].TotalScore != 5 {
		t.Fatalf("upsert did not replace: %+v", all[0])
	}

	// An aged verdict is stale.
	old := time.Now().UTC().Add(-25 * time.Hour).Format(time.RFC3339)
	if _, err := s.db.Exec("UPDATE verdicts SET updated_at = ?", old); err != nil {
		t.Fatalf("age verdict: %v", err)
	}
	fresh, err = s.FreshVerdictExists("Acme", 24*time.Hour)
	if err != nil {
		t.Fatalf("freshness check: %v", err)
	}
	if fresh {
		t.Fatal("25h-old verdict reported fresh against 24h window")
	}
}

func TestListVerdicts_BestScoreFirst(t *testing.T) {
	s := openTestStore(t)
	for name, score := range map[string]int{"Low": -2, "High": 6, "Mid": 3} {
		if err := s.SaveVerdict(&Verdict{Project: name, TotalScore: score, Success: true}); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}
	all, err := s.ListVerdicts()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var names []string
	for _, v := range all {
		names = append(names, v.Project)
	}
	if diff := cmp.Diff([]string{"High", "Mid", "Low"}, names); diff != "" {
		t.Fatalf("ordering mismatch (-want +got):\n%s", diff)
	}
}

func TestClearProjects(t *testing.T) {
	s := openTestStore(t)
	if err := s.SaveResearch(&Research{Project: "Acme", Success: true}); err != nil {
		t.Fatalf("save research: %v", err)
	}
	if err := s.SaveVerdict(&Verdict{Project: "Acme", Success: true}); err != nil {
		t.Fatalf("save verdict: %v", err)
	}
	s.StoreBlob(Key("research_q1", "Acme", "q"), "Acme", 1, "research", []byte("x"))

	notFound, err := s.ClearProjects([]string{"Acme", "Ghost"})
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if diff := cmp.Diff([]string{"Ghost"}, notFound); diff != "" {
		t.Fatalf("not-found mismatch (-want +got):\n%s", diff)
	}
	if r, _ := s.GetResearch("Acme"); r != nil {
		t.Fatal("research survived clear")
	}
	if _, ok := s.LookupBlob(Key("research_q1", "Acme", "q"), time.Hour); ok {
		t.Fatal("cache blob survived clear")
	}
}

func TestExportProject(t *testing.T) {
	s := openTestStore(t)
	if err := s.SaveResearch(&Research{Project: "Acme", Text: "r", Success: true}); err != nil {
		t.Fatalf("save research: %v", err)
	}
	if err := s.SaveQuestionRow(&QuestionRow{Project: "Acme", QuestionID: 1, Score: 1, Confidence: "High", Success: true}); err != nil {
		t.Fatalf("save question: %v", err)
	}
	if err := s.SaveVerdict(&Verdict{Project: "Acme", TotalScore: 1, Success: true}); err != nil {
		t.Fatalf("save verdict: %v", err)
	}

	exp, err := s.ExportProject("Acme")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if exp.Research == nil || exp.Verdict == nil || len(exp.Questions) != 1 {
		t.Fatalf("incomplete export: %+v", exp)
	}

	// A project with no data exports empty sections, not an error.
	empty, err := s.ExportProject("Ghost")
	if err != nil {
		t.Fatalf("export empty: %v", err)
	}
	want := &Export{Project: "Ghost"}
	if diff := cmp.Diff(want, empty, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("empty export mismatch (-want +got):\n%s", diff)
	}
}

func TestGetStats(t *testing.T) {
	s := openTestStore(t)
	if err := s.SaveResearch(&Research{Project: "Acme", Success: true}); err != nil {
		t.Fatalf("save research: %v", err)
	}
	s.StoreBlob("k1", "Acme", 1, "research", []byte("x"))
	s.StoreBlob("k2", "Acme", 1, "analysis", []byte("y"))

	st, err := s.GetStats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := &Stats{Projects: 1, CacheBlobs: 2}
	if diff := cmp.Diff(want, st); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}
}
