package rewrite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Azee177/jianli/internal/llm"
	"github.com/Azee177/jianli/internal/shared/metrics"
	"github.com/Azee177/jianli/internal/shared/telemetry"
)

const maxTextRunes = 5000

// Generator names recorded on results.
const (
	GeneratorLLM   = "llm"
	GeneratorRules = "rules"
)

// Engine produces three graded rewrites of a span. With a configured
// client it asks the model first and falls back to rule templates.
type Engine struct {
	Client llm.Client
}

// Generated is an unsaved rewrite.
type Generated struct {
	Intent         Intent     `json:"intent"`
	Versions       []Version  `json:"versions"`
	Factuality     Factuality `json:"factuality"`
	Recommendation string     `json:"recommendation"`
	Generator      string     `json:"generator"`
}

type modelVersion struct {
	Content string `json:"content" jsonschema:"description=Rewritten text"`
	Changes string `json:"changes" jsonschema:"description=One sentence describing what changed"`
}

type modelVersions struct {
	Conservative modelVersion `json:"conservative"`
	Balanced     modelVersion `json:"balanced"`
	Aggressive   modelVersion `json:"aggressive"`
}

const rewriteSystem = `You rewrite one span of a resume. Produce three versions:
conservative (minimal structural change), balanced (clearer structure and stronger phrasing),
aggressive (full rewrite that may add clauses). Never invent employers, titles or numbers;
write placeholders such as [X]% where a figure is needed. Answer in the language of the input
unless the intent is translate.`

var intentInstructions = map[Intent]string{
	IntentSTAR:         "Restructure the span using the STAR method (Situation, Task, Action, Result).",
	IntentQuantify:     "Make the outcomes measurable.",
	IntentDeduplicate:  "Rephrase to avoid repetitive wording while keeping the meaning.",
	IntentTranslate:    "Translate between Chinese and English.",
	IntentCompanyStyle: "Adapt wording to the culture and vocabulary of the target company.",
}

// Rewrite validates req and returns exactly three versions in tier order.
func (e Engine) Rewrite(ctx context.Context, req Request) (Generated, error) {
	in, err := ParseIntent(req.Intent)
	if err != nil {
		return Generated{}, err
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return Generated{}, fmt.Errorf("%w: text is required", ErrValidation)
	}
	if utf8.RuneCountInString(text) > maxTextRunes {
		return Generated{}, fmt.Errorf("%w: text exceeds %d characters", ErrValidation, maxTextRunes)
	}
	company := strings.TrimSpace(req.Company)

	drafts, generator := e.drafts(ctx, in, text, company)
	versions := make([]Version, 0, len(tiers))
	for i, t := range tiers {
		versions = append(versions, Version{
			Name:      t.name,
			Content:   drafts[i].content,
			Changes:   drafts[i].changes,
			RiskLevel: t.risk,
			Diff: Diff{
				AddedWords:   len(strings.Fields(drafts[i].content)) - len(strings.Fields(text)),
				ModifiedRate: t.modifiedRate,
			},
		})
	}
	return Generated{
		Intent:         in,
		Versions:       versions,
		Factuality:     ValidateFactuality(text, versions[len(versions)-1].Content),
		Recommendation: Recommendation(in),
		Generator:      generator,
	}, nil
}

func (e Engine) drafts(ctx context.Context, in Intent, text, company string) ([3]draft, string) {
	if !llm.Enabled(e.Client) {
		return ruleDrafts(in, text, company), GeneratorRules
	}
	prompt := "Intent: " + intentInstructions[in] + "\n"
	if company != "" {
		prompt += "Target company: " + company + "\n"
	}
	prompt += "Span:\n" + text

	out, err := llm.CompleteStructured(ctx, e.Client, llm.Request{
		Name:        "rewrite_" + string(in),
		System:      rewriteSystem,
		Prompt:      prompt,
		Temperature: 0.7,
	}, validateVersions)
	if err != nil {
		if !errors.Is(err, llm.ErrNotConfigured) {
			metrics.IncLLMFallback("rewrite")
			telemetry.Warn("rewrite.fallback", map[string]any{"intent": string(in), "error": err.Error()})
		}
		return ruleDrafts(in, text, company), GeneratorRules
	}
	return [3]draft{
		{strings.TrimSpace(out.Conservative.Content), strings.TrimSpace(out.Conservative.Changes)},
		{strings.TrimSpace(out.Balanced.Content), strings.TrimSpace(out.Balanced.Changes)},
		{strings.TrimSpace(out.Aggressive.Content), strings.TrimSpace(out.Aggressive.Changes)},
	}, GeneratorLLM
}

func validateVersions(v modelVersions) error {
	for name, mv := range map[string]modelVersion{
		TierConservative: v.Conservative,
		TierBalanced:     v.Balanced,
		TierAggressive:   v.Aggressive,
	} {
		if strings.TrimSpace(mv.Content) == "" {
			return fmt.Errorf("%s version is empty", name)
		}
	}
	return nil
}
