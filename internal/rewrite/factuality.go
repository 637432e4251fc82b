package rewrite

import (
	"regexp"
	"sort"
	"strings"
)

const (
	maxNewWords   = 20
	maxNewNumbers = 5
)

var numberPattern = regexp.MustCompile(`\d+`)

// ValidateFactuality compares whitespace tokens and digit runs of optimized
// against original. It never blocks a rewrite; it only flags it.
func ValidateFactuality(original, optimized string) Factuality {
	newWords := difference(strings.Fields(optimized), strings.Fields(original))
	newNumbers := difference(numberPattern.FindAllString(optimized, -1), numberPattern.FindAllString(original, -1))

	f := Factuality{
		IsSafe:        len(newWords) < maxNewWords && len(newNumbers) < maxNewNumbers,
		NewWordsCount: len(newWords),
		NewNumbers:    newNumbers,
		Warnings:      []string{},
	}
	if f.IsSafe {
		f.RiskLevel = RiskLow
		return f
	}
	f.RiskLevel = RiskHigh
	f.Warnings = append(f.Warnings, "a large amount of new content was added; verify every claim is true")
	if len(newNumbers) >= maxNewNumbers {
		f.Warnings = append(f.Warnings, "new figures were introduced; confirm they are real")
	}
	return f
}

// difference returns the distinct members of a not in b, sorted.
func difference(a, b []string) []string {
	exclude := make(map[string]struct{}, len(b))
	for _, s := range b {
		exclude[s] = struct{}{}
	}
	seen := map[string]struct{}{}
	out := []string{}
	for _, s := range a {
		if _, ok := exclude[s]; ok {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
