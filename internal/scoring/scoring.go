// Package scoring turns six question scores into a total and a
// recommendation tier. Pure functions, no collaborators.
package scoring

import (
	"fmt"
	"sort"

	"catalyst/internal/question"
)

// Tier is one of the three fixed recommendation categories.
type Tier string

const (
	TierStrongCandidate Tier = "strong candidate"
	TierMixedFit        Tier = "mixed fit"
	TierDecline         Tier = "decline"
)

// Fixed score thresholds. The strong-candidate bound is inclusive.
const (
	strongCandidateMin = 4
	mixedFitMin        = 0
)

// recommendations are the human-readable verdict lines per tier.
var recommendations = map[Tier]string{
	TierStrongCandidate: "Green-light partnership. Strong candidate for strategic collaboration.",
	TierMixedFit:        "Solid mid-tier fit. Worth pursuing, but may require integration polish or focused support.",
	TierDecline:         "Likely misaligned. Proceed with caution or decline, as it may create friction.",
}

// Aggregate sums the question scores and derives the tier: total >= 4 is a
// strong candidate, 0..3 a mixed fit, below 0 a decline.
func Aggregate(results []question.Result) (total int, tier Tier) {
	for _, r := range results {
		total += r.Score
	}
	return total, TierFor(total)
}

// TierFor maps a total score to its recommendation tier.
func TierFor(total int) Tier {
	switch {
	case total >= strongCandidateMin:
		return TierStrongCandidate
	case total >= mixedFitMin:
		return TierMixedFit
	default:
		return TierDecline
	}
}

// Recommendation returns the verdict line for a tier.
func Recommendation(tier Tier) string {
	return recommendations[tier]
}

// Sort orders results by question id in place. The fan-out coordinator calls
// this before aggregation so verdicts always list criteria 1 through 6.
func Sort(results []question.Result) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].QuestionID < results[j].QuestionID
	})
}

// Breakdown renders the per-question score lines plus the total, used in the
// synthesis prompt and the fallback narrative.
func Breakdown(results []question.Result) string {
	out := ""
	total := 0
	for _, r := range results {
		out += fmt.Sprintf("%s: %+d (%s)\n", r.Question, r.Score, r.Confidence)
		total += r.Score
	}
	out += fmt.Sprintf("\nTOTAL SCORE: %+d/6", total)
	return out
}
