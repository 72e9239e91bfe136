package question

import (
	"fmt"

	"catalyst/internal/config"
)

// researchPrompt asks the research model for question-specific evidence.
func researchPrompt(spec config.QuestionSpec, context string) string {
	return fmt.Sprintf(`You are researching specific aspects of a potential hackathon partner for the host ecosystem.

QUESTION FOCUS: %s
DESCRIPTION: %s
SEARCH TARGETS: %s

EXISTING CONTEXT:
%s

RESEARCH MISSION:
Conduct targeted research to answer: "%s"

Focus your search on:
- %s
- Specific evidence that would help answer this question
- Technical details, documentation, or examples relevant to this question
- Community feedback or developer experiences related to this aspect

Provide comprehensive information that will enable detailed analysis of this specific question.
`, spec.Question, spec.Description, spec.SearchFocus, context, spec.Question, spec.SearchFocus)
}

// analysisPrompt asks the reasoning model for a structured SCORE/CONFIDENCE
// verdict over the gathered evidence plus static framework guidance.
func analysisPrompt(spec config.QuestionSpec, context, guidance string) string {
	return fmt.Sprintf(`You are a partnership scout analyzing hackathon catalyst potential.

DIAGNOSTIC QUESTION: %s
DESCRIPTION: %s

COMPREHENSIVE CONTEXT:
%s

%s

ANALYSIS REQUIREMENTS:

1. **Evaluate the Evidence**: Based on all available information, analyze how well this project addresses: "%s"

2. **Apply Scoring Framework**: Use the +1/0/-1 scoring system:
   - +1: Strong positive evidence, clear benefit to ecosystem developers
   - 0: Neutral or mixed evidence, unclear benefit
   - -1: Negative evidence, potential friction or competition

3. **Assess Confidence**: Rate your confidence in this assessment:
   - High: Strong evidence and clear reasoning
   - Medium: Good evidence but some uncertainty
   - Low: Limited evidence or high uncertainty

4. **Provide Structured Output**:

ANALYSIS: [Detailed analysis of evidence and reasoning, 2-3 paragraphs]

SCORE: [+1, 0, or -1]

CONFIDENCE: [High, Medium, or Low]

Focus on hackathon catalyst potential and developer experience. Be specific about evidence and reasoning.`,
		spec.Question, spec.Description, context, guidance, spec.Question)
}
