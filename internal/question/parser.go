package question

import (
	"strings"
)

// Confidence is the evaluator's self-assessed certainty. "Error" marks
// degraded results substituted for failed evaluations.
type Confidence string

const (
	ConfidenceLow    Confidence = "Low"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceHigh   Confidence = "High"
	ConfidenceError  Confidence = "Error"
)

// rawFallbackLimit bounds how much of an unstructured response is kept as the
// substitute narrative.
const rawFallbackLimit = 500

// Parsed is the structured reading of a free-text analysis response.
type Parsed struct {
	Analysis   string
	Score      int
	Confidence Confidence
	// Degraded is set when the response was missing or violated the
	// SCORE/CONFIDENCE structure and defaults were substituted.
	Degraded bool
}

// ParseAnalysis extracts SCORE, CONFIDENCE and narrative from a model
// response using line-prefix matching. Unparseable scores default to 0 and
// unparseable confidence to Medium, with Degraded set so callers can log it.
// An empty narrative is replaced with a truncated copy of the raw response
// and confidence forced to Low; a wholly empty result is never returned.
func ParseAnalysis(raw string) Parsed {
	p := Parsed{Score: 0, Confidence: ConfidenceMedium}
	scoreSeen := false
	confidenceSeen := false
	var narrative []string

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "SCORE:"):
			scoreText := strings.TrimSpace(line[len("SCORE:"):])
			switch {
			case strings.Contains(scoreText, "+1"):
				p.Score = 1
			case strings.Contains(scoreText, "-1"):
				p.Score = -1
			case scoreText == "0":
				p.Score = 0
			default:
				p.Score = 0
				p.Degraded = true
			}
			scoreSeen = true
		case strings.HasPrefix(upper, "CONFIDENCE:"):
			confText := strings.ToUpper(strings.TrimSpace(line[len("CONFIDENCE:"):]))
			switch {
			case strings.Contains(confText, "HIGH"):
				p.Confidence = ConfidenceHigh
			case strings.Contains(confText, "LOW"):
				p.Confidence = ConfidenceLow
			case strings.Contains(confText, "MEDIUM"):
				p.Confidence = ConfidenceMedium
			default:
				p.Confidence = ConfidenceMedium
				p.Degraded = true
			}
			confidenceSeen = true
		case strings.HasPrefix(upper, "ANALYSIS:"):
			if rest := strings.TrimSpace(line[len("ANALYSIS:"):]); rest != "" {
				narrative = append(narrative, rest)
			}
		case line != "":
			narrative = append(narrative, line)
		}
	}

	if !scoreSeen || !confidenceSeen {
		p.Degraded = true
	}
	p.Analysis = strings.TrimSpace(strings.Join(narrative, "\n"))
	if p.Analysis == "" {
		trimmed := strings.TrimSpace(raw)
		if len(trimmed) > rawFallbackLimit {
			trimmed = trimmed[:rawFallbackLimit] + "..."
		}
		p.Analysis = "Unstructured response: " + trimmed
		p.Confidence = ConfidenceLow
		p.Degraded = true
	}
	return p
}
