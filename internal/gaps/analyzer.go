package gaps

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Azee177/jianli/internal/commonality"
)

// DefaultThreshold is the coverage ratio at which a dimension counts as covered.
const DefaultThreshold = 0.3

const minTokenRunes = 3

// Analyzer tests each dimension against resume text by keyword overlap.
// Threshold is used as given when it lies in [0, 1], so 0 treats every
// dimension as covered. Values outside that range fall back to
// DefaultThreshold.
type Analyzer struct {
	Threshold float64
}

func (a Analyzer) threshold() float64 {
	if a.Threshold >= 0 && a.Threshold <= 1 {
		return a.Threshold
	}
	return DefaultThreshold
}

// Coverage returns the share of description tokens found in resume, and
// whether that share reaches the threshold. A description with no
// qualifying tokens is covered. Tokens match as case-insensitive substrings
// of the resume: "REDIS" in a resume counts for "Redis" in a posting, while
// punctuation stays part of the token.
func (a Analyzer) Coverage(resume, description string) (float64, bool) {
	tokens := Tokens(description)
	if len(tokens) == 0 {
		return 1, true
	}
	lower := strings.ToLower(resume)
	hits := 0
	for _, tok := range tokens {
		if strings.Contains(lower, strings.ToLower(tok)) {
			hits++
		}
	}
	ratio := float64(hits) / float64(len(tokens))
	return ratio, ratio >= a.threshold()
}

// Analyze returns a gap item for every uncovered dimension, in dimension order.
func (a Analyzer) Analyze(resume string, dims []commonality.Dimension) []Item {
	items := []Item{}
	for _, d := range dims {
		ratio, covered := a.Coverage(resume, d.Description)
		if covered {
			continue
		}
		items = append(items, Item{
			DimensionID:   d.ID,
			Dimension:     d.Title,
			CurrentLevel:  "not reflected or insufficiently reflected in resume",
			RequiredLevel: d.Description,
			Description:   fmt.Sprintf("add or strengthen content about '%s'", d.Title),
			Severity:      SeverityFor(d.Importance),
			Coverage:      ratio,
		})
	}
	return items
}

// Tokens splits on whitespace and keeps tokens of at least three runes.
func Tokens(s string) []string {
	var out []string
	for _, f := range strings.Fields(s) {
		if utf8.RuneCountInString(f) >= minTokenRunes {
			out = append(out, f)
		}
	}
	return out
}

// SeverityFor maps importance to severity: above 0.9 high, above 0.7 medium.
func SeverityFor(importance float64) Severity {
	switch {
	case importance > 0.9:
		return SeverityHigh
	case importance > 0.7:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Priority ranks suggestions from 5 (high) down to 1 (low).
func (s Severity) Priority() int {
	switch s {
	case SeverityHigh:
		return 5
	case SeverityMedium:
		return 3
	default:
		return 1
	}
}

// Suggest derives one improvement suggestion per gap item.
func Suggest(items []Item) []Suggestion {
	out := make([]Suggestion, 0, len(items))
	for i, it := range items {
		out = append(out, Suggestion{
			ID:            fmt.Sprintf("sug-%d", i+1),
			TargetSection: "experience",
			Type:          "add",
			SuggestedText: "Suggested addition: " + it.RequiredLevel,
			Reason:        "Closes gap: " + it.Description,
			Priority:      it.Severity.Priority(),
		})
	}
	return out
}
