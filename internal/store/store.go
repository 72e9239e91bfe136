package store

import "time"

// DefaultDBPath is where the CLI keeps the analysis database.
const DefaultDBPath = ".catalyst/catalyst.db"

// Research is the per-project general research artifact. It is persisted
// keyed by project name whether or not the upstream call succeeded; a failed
// call still carries fallback text so downstream stages have something to
// analyze.
type Research struct {
	Project   string  `json:"project_name"`
	Slug      string  `json:"slug"`
	Text      string  `json:"research_data"`
	Success   bool    `json:"success"`
	Error     string  `json:"error,omitempty"`
	Cost      float64 `json:"cost"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// QuestionRow is the latest structured result for one diagnostic question of
// one project, kept for export and the serve surface. Upserted by
// (project, question_id); history is not retained.
type QuestionRow struct {
	Project    string  `json:"project_name"`
	QuestionID int     `json:"question_id"`
	Key        string  `json:"question_key"`
	Analysis   string  `json:"analysis"`
	Score      int     `json:"score"`
	Confidence string  `json:"confidence"`
	Success    bool    `json:"success"`
	Error      string  `json:"error,omitempty"`
	Cost       float64 `json:"cost"`
	CreatedAt  string  `json:"created_at"`
}

// Verdict is the final per-project outcome. Upsert replaces any prior verdict.
type Verdict struct {
	Project        string `json:"project_name"`
	Slug           string `json:"slug"`
	Summary        string `json:"summary"`
	TotalScore     int    `json:"total_score"`
	Recommendation string `json:"recommendation"`
	Success        bool   `json:"success"`
	Error          string `json:"error,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// Store is what the pipeline needs from persistence. *SqlStore is the only
// production implementation; tests may substitute fakes for fault injection.
type Store interface {
	// Blob cache (per-question research/analysis phases).
	LookupBlob(key string, window time.Duration) ([]byte, bool)
	StoreBlob(key, project string, questionID int, kind string, blob []byte)

	SaveResearch(r *Research) error
	GetResearch(project string) (*Research, error)

	SaveQuestionRow(q *QuestionRow) error
	ListQuestionRows(project string) ([]*QuestionRow, error)

	SaveVerdict(v *Verdict) error
	GetVerdict(project string) (*Verdict, error)
	ListVerdicts() ([]*Verdict, error)
	FreshVerdictExists(project string, window time.Duration) (bool, error)

	Close() error
}
