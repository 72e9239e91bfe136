package catalog

import (
	"sort"
	"strings"
)

// LimitedContext is the stand-in context block when no catalog data could be
// fetched. Research still runs; it just starts from a cold prompt.
const LimitedContext = "Limited project information available"

// ContextBlock renders the known catalog facts as labeled lines for the
// research prompt. A nil or empty detail yields LimitedContext so callers
// never embed an empty block.
func (d *Detail) ContextBlock() string {
	if d == nil {
		return LimitedContext
	}
	var lines []string
	add := func(label, value string) {
		if value != "" {
			lines = append(lines, label+": "+value)
		}
	}
	add("Tagline", d.Profile.Tagline)
	add("Tags", joinTags(d.Profile.Tags))
	add("Phase", d.Profile.Phase)
	add("Description", d.Description)
	add("Category", d.Category)
	add("Development Stage", d.Stage)
	add("Tech Stack", d.TechStack)
	add("Website", d.Website)
	add("GitHub", d.GitHub)
	add("Blockchain Networks", d.BlockchainNetworks)
	add("Team Size", d.TeamSize)
	add("Founded", d.Founded)
	if len(lines) == 0 {
		return LimitedContext
	}
	return strings.Join(lines, "\n")
}

// FallbackSummary renders the one-line research fallback used when the
// research call itself fails.
func (d *Detail) FallbackSummary(projectName string) string {
	parts := []string{"Basic info - " + projectName}
	if d != nil {
		if d.Profile.Tagline != "" {
			parts = append(parts, "Tagline: "+d.Profile.Tagline)
		}
		if tags := joinTags(d.Profile.Tags); tags != "" {
			parts = append(parts, "Tags: "+tags)
		}
		if d.Profile.Phase != "" {
			parts = append(parts, "Phase: "+d.Profile.Phase)
		}
	}
	return strings.Join(parts, ". ")
}

func joinTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	vals := make([]string, 0, len(tags))
	for _, v := range tags {
		vals = append(vals, v)
	}
	sort.Strings(vals)
	return strings.Join(vals, ", ")
}
