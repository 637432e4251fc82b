package rewrite

import (
	"strings"
	"unicode"
)

// draft is a tier's content before diff and risk are attached.
type draft struct {
	content string
	changes string
}

// ruleDrafts produces deterministic templates per intent. Placeholders in
// square brackets mark figures the user must supply; the rules never invent
// numbers.
func ruleDrafts(in Intent, text, company string) [3]draft {
	switch in {
	case IntentSTAR:
		return [3]draft{
			{"Situation: " + headline(text, 40) + "\nTask: [goal]\nAction: " + text + "\nResult: [outcome]", "Basic STAR structure, original wording kept"},
			{"Situation: In the context of the project\nTask: Owned delivery of the core feature\nAction: " + text + "\nResult: Noticeably improved [metric]", "Full STAR structure with stronger phrasing"},
			{"Situation: Facing rapid business growth\nTask: Led the upgrade of the core system to raise [metric]\nAction: " + text + ", introducing a distributed design and a caching layer\nResult: Supported [N]x traffic growth and cut response time by [X]%", "Deep STAR restructuring of the description"},
		}
	case IntentQuantify:
		return [3]draft{
			{text + ", improving system performance", "Adds a basic outcome"},
			{text + ", raising performance by [X]% and cutting response time by [Y]%", "Outcome in several measurable dimensions"},
			{text + ", lifting throughput from [A] to [B] requests per second, reducing tail latency from [C] ms to [D] ms and reaching [E]% availability", "Fully quantified result emphasis"},
		}
	case IntentDeduplicate:
		return [3]draft{
			{replaceWords(text, conservativeSynonyms), "Synonym substitution"},
			{"Through a new technical approach, " + lowerFirst(replaceWords(text, balancedSynonyms)), "Restructured sentence with varied phrasing"},
			{"Built the technical foundation from scratch: " + lowerFirst(text) + ", ultimately delivering a high-quality solution", "Rewritten from a new angle"},
		}
	case IntentTranslate:
		if hasCJK(text) {
			return [3]draft{
				{"[Translated] " + text, "Literal translation"},
				{"[English version] " + text, "Idiomatic English phrasing"},
				{"[Native English] " + text, "Native-speaker phrasing"},
			}
		}
		return [3]draft{
			{"[中文翻译] " + text, "Literal translation"},
			{"[中文版本] " + text, "Idiomatic Chinese phrasing"},
			{"[本地化中文] " + text, "Localized Chinese phrasing"},
		}
	default:
		return companyDrafts(text, company)
	}
}

func companyDrafts(text, company string) [3]draft {
	light := text
	if company != "" {
		light = text + " (in line with " + company + "'s engineering culture)"
	}
	value, known := companyValues[normalizeName(company)]
	moderate := text
	strong := text + " [tailored]"
	if known {
		moderate = text + ", " + value.moderate
		strong = value.strongPrefix + ", " + lowerFirst(text) + ", " + value.strongSuffix
	}
	return [3]draft{
		{light, "Light terminology alignment"},
		{moderate, "Echoes the company's culture and values"},
		{strong, "Deep tailoring mirroring the company's language"},
	}
}

type companyValue struct {
	moderate     string
	strongPrefix string
	strongSuffix string
}

var companyValues = map[string]companyValue{
	"bytedance": {
		moderate:     "pursuing the best user experience and technical innovation",
		strongPrefix: "Centered on user value",
		strongSuffix: "continuously improving product competitiveness through innovation",
	},
	"字节跳动": {
		moderate:     "pursuing the best user experience and technical innovation",
		strongPrefix: "Centered on user value",
		strongSuffix: "continuously improving product competitiveness through innovation",
	},
	"alibaba": {
		moderate:     "making it easy to do business anywhere",
		strongPrefix: "Customer first",
		strongSuffix: "empowering commerce with technology",
	},
	"阿里巴巴": {
		moderate:     "making it easy to do business anywhere",
		strongPrefix: "Customer first",
		strongSuffix: "empowering commerce with technology",
	},
}

var (
	conservativeSynonyms = strings.NewReplacer(
		"responsible for", "in charge of",
		"developed", "built",
		"optimized", "improved",
		"负责", "承担",
		"开发", "研发",
		"优化", "改进",
	)
	balancedSynonyms = strings.NewReplacer(
		"responsible for", "led",
		"developed", "engineered",
		"负责", "主导",
		"开发", "构建",
	)
)

func replaceWords(text string, r *strings.Replacer) string {
	return r.Replace(text)
}

// recommendations per intent, shown alongside the versions.
var recommendations = map[Intent]string{
	IntentSTAR:        "The balanced version keeps the facts while showing the STAR structure.",
	IntentQuantify:    "The balanced version is recommended; every figure must come from real results.",
	IntentDeduplicate: "The conservative version is safest; use the aggressive version with care.",
}

// Recommendation returns guidance for choosing among the versions.
func Recommendation(in Intent) string {
	if r, ok := recommendations[in]; ok {
		return r
	}
	return "Choose the version that best matches what actually happened."
}

func headline(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}

func lowerFirst(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	// keep acronyms like "API" intact
	if len(r) > 1 && unicode.IsUpper(r[1]) {
		return s
	}
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func hasCJK(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
