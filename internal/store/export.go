package store

// Export is the full dump of one project's analysis state, shaped for the
// export command and the serve surface.
type Export struct {
	Project   string         `json:"project_name"`
	Research  *Research      `json:"research,omitempty"`
	Questions []*QuestionRow `json:"questions,omitempty"`
	Verdict   *Verdict       `json:"verdict,omitempty"`
}

// Stats summarizes the database contents for the status command.
type Stats struct {
	Projects    int `json:"projects"`
	Verdicts    int `json:"verdicts"`
	CacheBlobs  int `json:"cache_blobs"`
	QuestionRes int `json:"question_results"`
}

// ExportProject collects everything stored for project. Missing sections stay
// nil rather than erroring so partial runs export cleanly.
func (s *SqlStore) ExportProject(project string) (*Export, error) {
	research, err := s.GetResearch(project)
	if err != nil {
		return nil, err
	}
	questions, err := s.ListQuestionRows(project)
	if err != nil {
		return nil, err
	}
	verdict, err := s.GetVerdict(project)
	if err != nil {
		return nil, err
	}
	return &Export{
		Project:   project,
		Research:  research,
		Questions: questions,
		Verdict:   verdict,
	}, nil
}

// Projects returns the distinct project names present in any table, sorted.
func (s *SqlStore) Projects() ([]string, error) {
	rows, err := s.db.Query(`
		SELECT project_name FROM project_research
		UNION
		SELECT project_name FROM verdicts
		ORDER BY project_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// GetStats counts rows per table.
func (s *SqlStore) GetStats() (*Stats, error) {
	var st Stats
	counts := []struct {
		query string
		dst   *int
	}{
		{"SELECT COUNT(*) FROM project_research", &st.Projects},
		{"SELECT COUNT(*) FROM verdicts", &st.Verdicts},
		{"SELECT COUNT(*) FROM question_cache", &st.CacheBlobs},
		{"SELECT COUNT(*) FROM question_results", &st.QuestionRes},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(c.query).Scan(c.dst); err != nil {
			return nil, err
		}
	}
	return &st, nil
}
