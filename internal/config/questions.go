package config

// QuestionSpec is one of the six fixed diagnostic questions. The set is static
// configuration: all six must be evaluated for a project's score to mean
// anything, so the list is compiled in rather than loaded from disk.
type QuestionSpec struct {
	ID          int    `json:"id"`
	Key         string `json:"key"`
	Question    string `json:"question"`
	Description string `json:"description"`
	SearchFocus string `json:"search_focus"`
}

var diagnosticQuestions = [6]QuestionSpec{
	{
		ID:          1,
		Key:         "gap_filler",
		Question:    "Gap-Filler?",
		Description: "Does the partner fill a technology gap the ecosystem lacks?",
		SearchFocus: "technical capabilities, infrastructure, services the ecosystem doesn't provide natively",
	},
	{
		ID:          2,
		Key:         "new_proof_points",
		Question:    "New Proof-Points?",
		Description: "Does it enable new use cases/demos?",
		SearchFocus: "use cases, applications, demos, innovative implementations",
	},
	{
		ID:          3,
		Key:         "clear_story",
		Question:    "One-Sentence Story?",
		Description: "Is there a clear value proposition?",
		SearchFocus: "value proposition, messaging, developer experience, integration benefits",
	},
	{
		ID:          4,
		Key:         "developer_friendly",
		Question:    "Developer-Friendly?",
		Description: "Easy integration and learning curve?",
		SearchFocus: "documentation, APIs, SDKs, developer tools, integration guides, tutorials",
	},
	{
		ID:          5,
		Key:         "aligned_incentives",
		Question:    "Aligned Incentives?",
		Description: "Mutual benefit and non-competitive?",
		SearchFocus: "business model, partnerships, competition analysis, ecosystem positioning",
	},
	{
		ID:          6,
		Key:         "ecosystem_fit",
		Question:    "Ecosystem Fit?",
		Description: "Does it match the ecosystem's target audience?",
		SearchFocus: "target audience, developer community, overlapping use cases",
	},
}

// Questions returns the six diagnostic questions ordered by ID.
// Callers get a copy; the underlying set is never mutated at runtime.
func Questions() []QuestionSpec {
	qs := make([]QuestionSpec, len(diagnosticQuestions))
	copy(qs, diagnosticQuestions[:])
	return qs
}

// QuestionCount is the size of the fixed diagnostic set.
const QuestionCount = len(diagnosticQuestions)
