package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"catalyst/internal/logging"
)

// nowUTC returns the current UTC time as an ISO 8601 string.
func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// pragmas applied at open. WAL allows concurrent readers during writes; the
// rest mirror the busy multi-writer tuning the analysis pipeline needs.
var pragmas = []string{
	"PRAGMA journal_mode=WAL;",
	"PRAGMA synchronous=NORMAL;",
	"PRAGMA cache_size=10000;",
	"PRAGMA temp_store=memory;",
}

const schema = `
CREATE TABLE IF NOT EXISTS project_research (
	project_name TEXT PRIMARY KEY,
	slug         TEXT,
	research_data TEXT,
	success      INTEGER,
	error        TEXT,
	cost         REAL,
	created_at   TEXT,
	updated_at   TEXT
);

CREATE TABLE IF NOT EXISTS question_cache (
	cache_key    TEXT PRIMARY KEY,
	project_name TEXT,
	question_id  INTEGER,
	kind         TEXT,
	payload      TEXT,
	created_at   TEXT
);

CREATE TABLE IF NOT EXISTS question_results (
	project_name TEXT,
	question_id  INTEGER,
	question_key TEXT,
	analysis     TEXT,
	score        INTEGER,
	confidence   TEXT,
	success      INTEGER,
	error        TEXT,
	cost         REAL,
	created_at   TEXT,
	PRIMARY KEY (project_name, question_id)
);

CREATE TABLE IF NOT EXISTS verdicts (
	project_name   TEXT PRIMARY KEY,
	slug           TEXT,
	summary        TEXT,
	total_score    INTEGER,
	recommendation TEXT,
	success        INTEGER,
	error          TEXT,
	created_at     TEXT,
	updated_at     TEXT
);
`

// RetryPolicy bounds the busy-retry loop on writes. Delay grows as
// BaseDelay × attempt number.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
}

// DefaultRetry matches the reference constants.
var DefaultRetry = RetryPolicy{Attempts: 3, BaseDelay: 100 * time.Millisecond}

// SqlStore implements Store with SQLite.
type SqlStore struct {
	db     *sql.DB
	retry  RetryPolicy
	logger *slog.Logger
}

// Open opens or creates the database at path, applies pragmas and creates the
// schema. The parent directory is created if missing.
func Open(path string) (*SqlStore, error) {
	return OpenWithRetry(path, DefaultRetry)
}

// OpenWithRetry is Open with an explicit write-retry policy.
func OpenWithRetry(path string, retry RetryPolicy) (*SqlStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if retry.Attempts < 1 {
		retry.Attempts = 1
	}
	return &SqlStore{db: db, retry: retry, logger: logging.New("store")}, nil
}

// Close closes the database connection.
func (s *SqlStore) Close() error { return s.db.Close() }

// isBusy reports whether err is a transient SQLITE_BUSY/LOCKED condition.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// execRetry runs a write statement, retrying busy errors with backoff
// (BaseDelay × attempt). Non-busy errors return immediately.
func (s *SqlStore) execRetry(query string, args ...any) error {
	var err error
	for attempt := 1; attempt <= s.retry.Attempts; attempt++ {
		_, err = s.db.Exec(query, args...)
		if err == nil || !isBusy(err) {
			return err
		}
		time.Sleep(s.retry.BaseDelay * time.Duration(attempt))
	}
	return err
}

// LookupBlob returns the cached payload for key if it was written within
// window. Expired or absent entries are misses; lookup errors are misses too
// (the cache is an optimization, never a system of record).
func (s *SqlStore) LookupBlob(key string, window time.Duration) ([]byte, bool) {
	var payload, createdAt string
	err := s.db.QueryRow(
		"SELECT payload, created_at FROM question_cache WHERE cache_key = ?", key,
	).Scan(&payload, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("cache lookup failed", "error", err)
		return nil, false
	}
	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil || time.Since(ts) > window {
		return nil, false
	}
	return []byte(payload), true
}

// StoreBlob upserts a cache entry. Busy conditions are retried with backoff;
// if retries are exhausted the write is dropped with a warning, since a lost
// cache write only costs a future miss.
func (s *SqlStore) StoreBlob(key, project string, questionID int, kind string, blob []byte) {
	err := s.execRetry(
		`INSERT OR REPLACE INTO question_cache(cache_key, project_name, question_id, kind, payload, created_at)
		 VALUES(?, ?, ?, ?, ?, ?)`,
		key, project, questionID, kind, string(blob), nowUTC(),
	)
	if err != nil {
		s.logger.Warn("cache write dropped", "project", project, "question_id", questionID, "kind", kind, "error", err)
	}
}

// SaveResearch upserts the general research row for a project.
func (s *SqlStore) SaveResearch(r *Research) error {
	if r == nil {
		return errors.New("research is nil")
	}
	now := nowUTC()
	if r.CreatedAt == "" {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	err := s.execRetry(
		`INSERT OR REPLACE INTO project_research(project_name, slug, research_data, success, error, cost, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Project, r.Slug, r.Text, boolInt(r.Success), r.Error, r.Cost, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save research: %w", err)
	}
	return nil
}

// GetResearch returns the research row for project, or nil if absent.
func (s *SqlStore) GetResearch(project string) (*Research, error) {
	var r Research
	var errMsg sql.NullString
	var success int
	err := s.db.QueryRow(
		`SELECT project_name, slug, research_data, success, error, cost, created_at, updated_at
		 FROM project_research WHERE project_name = ?`, project,
	).Scan(&r.Project, &r.Slug, &r.Text, &success, &errMsg, &r.Cost, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get research: %w", err)
	}
	r.Success = success == 1
	r.Error = nullStr(errMsg)
	return &r, nil
}

// SaveQuestionRow upserts the structured result for one project question.
func (s *SqlStore) SaveQuestionRow(q *QuestionRow) error {
	if q == nil {
		return errors.New("question row is nil")
	}
	if q.CreatedAt == "" {
		q.CreatedAt = nowUTC()
	}
	err := s.execRetry(
		`INSERT OR REPLACE INTO question_results(project_name, question_id, question_key, analysis, score, confidence, success, error, cost, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.Project, q.QuestionID, q.Key, q.Analysis, q.Score, q.Confidence, boolInt(q.Success), q.Error, q.Cost, q.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save question row: %w", err)
	}
	return nil
}

// ListQuestionRows returns the stored question results for project ordered by
// question id.
func (s *SqlStore) ListQuestionRows(project string) ([]*QuestionRow, error) {
	rows, err := s.db.Query(
		`SELECT project_name, question_id, question_key, analysis, score, confidence, success, error, cost, created_at
		 FROM question_results WHERE project_name = ? ORDER BY question_id`, project,
	)
	if err != nil {
		return nil, fmt.Errorf("list question rows: %w", err)
	}
	defer rows.Close()
	var list []*QuestionRow
	for rows.Next() {
		var q QuestionRow
		var errMsg sql.NullString
		var success int
		if err := rows.Scan(&q.Project, &q.QuestionID, &q.Key, &q.Analysis, &q.Score, &q.Confidence, &success, &errMsg, &q.Cost, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan question row: %w", err)
		}
		q.Success = success == 1
		q.Error = nullStr(errMsg)
		list = append(list, &q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list question rows: %w", err)
	}
	return list, nil
}

// SaveVerdict upserts the final verdict for a project. No history is kept.
func (s *SqlStore) SaveVerdict(v *Verdict) error {
	if v == nil {
		return errors.New("verdict is nil")
	}
	now := nowUTC()
	if v.CreatedAt == "" {
		v.CreatedAt = now
	}
	v.UpdatedAt = now
	err := s.execRetry(
		`INSERT OR REPLACE INTO verdicts(project_name, slug, summary, total_score, recommendation, success, error, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.Project, v.Slug, v.Summary, v.TotalScore, v.Recommendation, boolInt(v.Success), v.Error, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save verdict: %w", err)
	}
	return nil
}

// GetVerdict returns the verdict for project, or nil if absent.
func (s *SqlStore) GetVerdict(project string) (*Verdict, error) {
	var v Verdict
	var errMsg sql.NullString
	var success int
	err := s.db.QueryRow(
		`SELECT project_name, slug, summary, total_score, recommendation, success, error, created_at, updated_at
		 FROM verdicts WHERE project_name = ?`, project,
	).Scan(&v.Project, &v.Slug, &v.Summary, &v.TotalScore, &v.Recommendation, &success, &errMsg, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get verdict: %w", err)
	}
	v.Success = success == 1
	v.Error = nullStr(errMsg)
	return &v, nil
}

// ListVerdicts returns all verdicts, best score first.
func (s *SqlStore) ListVerdicts() ([]*Verdict, error) {
	rows, err := s.db.Query(
		`SELECT project_name, slug, summary, total_score, recommendation, success, error, created_at, updated_at
		 FROM verdicts ORDER BY total_score DESC, updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list verdicts: %w", err)
	}
	defer rows.Close()
	var list []*Verdict
	for rows.Next() {
		var v Verdict
		var errMsg sql.NullString
		var success int
		if err := rows.Scan(&v.Project, &v.Slug, &v.Summary, &v.TotalScore, &v.Recommendation, &success, &errMsg, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		v.Success = success == 1
		v.Error = nullStr(errMsg)
		list = append(list, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list verdicts: %w", err)
	}
	return list, nil
}

// FreshVerdictExists reports whether a verdict for project was updated within
// window. Used by the pipeline's skip check.
func (s *SqlStore) FreshVerdictExists(project string, window time.Duration) (bool, error) {
	var updatedAt string
	err := s.db.QueryRow(
		"SELECT updated_at FROM verdicts WHERE project_name = ?", project,
	).Scan(&updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check verdict freshness: %w", err)
	}
	ts, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return false, nil
	}
	return time.Since(ts) <= window, nil
}

// ClearProjects removes the named projects from every table. Returns the
// names that were not present.
func (s *SqlStore) ClearProjects(names []string) ([]string, error) {
	var notFound []string
	for _, name := range names {
		var n int
		if err := s.db.QueryRow(
			"SELECT COUNT(*) FROM project_research WHERE project_name = ?", name,
		).Scan(&n); err != nil {
			return nil, fmt.Errorf("check project %s: %w", name, err)
		}
		var v int
		if err := s.db.QueryRow(
			"SELECT COUNT(*) FROM verdicts WHERE project_name = ?", name,
		).Scan(&v); err != nil {
			return nil, fmt.Errorf("check project %s: %w", name, err)
		}
		if n == 0 && v == 0 {
			notFound = append(notFound, name)
			continue
		}
		for _, table := range []string{"project_research", "question_cache", "question_results", "verdicts"} {
			if err := s.execRetry("DELETE FROM "+table+" WHERE project_name = ?", name); err != nil {
				return nil, fmt.Errorf("clear %s from %s: %w", name, table, err)
			}
		}
	}
	return notFound, nil
}

// ClearAll wipes every table.
func (s *SqlStore) ClearAll() error {
	for _, table := range []string{"project_research", "question_cache", "question_results", "verdicts"} {
		if err := s.execRetry("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
