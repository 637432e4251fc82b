package requirements

import (
	"regexp"
	"strings"
	"unicode"
)

var sectionStartKeywords = []string{
	"requirements",
	"qualifications",
	"what you'll need",
	"what you need",
	"what we're looking for",
	"who you are",
	"must have",
	"任职要求",
	"岗位要求",
	"任职资格",
	"职位要求",
	"能力要求",
}

var sectionEndKeywords = []string{
	"responsibilities",
	"what you'll do",
	"about us",
	"about the team",
	"benefits",
	"perks",
	"how to apply",
	"岗位职责",
	"工作职责",
	"职位描述",
	"福利待遇",
	"公司介绍",
}

// listMarker matches "1.", "2、", "(3)", "4)" and bullet glyphs. A bare leading
// number such as "3-5 years" is content, not a marker.
var listMarker = regexp.MustCompile(`^(?:[(（]?\d{1,2}[.、)）:：]|[-•*·●▪])\s*`)

// Extract returns the requirement lines of one posting in document order.
// Lines count only inside a requirements section and only when they start
// with a list marker.
func Extract(text string) []Requirement {
	var out []Requirement
	inSection := false
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if !startsWithMarker(line) {
			switch {
			case isHeading(line, sectionStartKeywords):
				inSection = true
			case isHeading(line, sectionEndKeywords):
				inSection = false
			}
			continue
		}
		if !inSection {
			continue
		}
		cleaned := strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if cleaned == "" {
			continue
		}
		out = append(out, Requirement{Text: cleaned, Category: Categorize(cleaned)})
	}
	return out
}

// Texts returns the text of each requirement.
func Texts(reqs []Requirement) []string {
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.Text)
	}
	return out
}

func isHeading(line string, keywords []string) bool {
	lower := strings.ToLower(line)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func startsWithMarker(line string) bool {
	r := []rune(line)[0]
	switch {
	case unicode.IsDigit(r):
		return true
	case strings.ContainsRune("-•*·●▪(（", r):
		return true
	}
	return false
}
