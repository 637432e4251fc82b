package requirements

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Azee177/jianli/internal/llm"
	"github.com/Azee177/jianli/internal/shared/metrics"
	"github.com/Azee177/jianli/internal/shared/telemetry"
)

// Classifier assigns categories to requirement lines.
type Classifier interface {
	Classify(ctx context.Context, lines []string) []Requirement
}

// KeywordClassifier uses Categorize.
type KeywordClassifier struct{}

// Classify categorizes each line by keyword family.
func (KeywordClassifier) Classify(_ context.Context, lines []string) []Requirement {
	out := make([]Requirement, 0, len(lines))
	for _, l := range lines {
		out = append(out, Requirement{Text: l, Category: Categorize(l)})
	}
	return out
}

// LLMClassifier asks a model for categories and falls back to keywords for
// the whole batch when the call fails, and per line for labels outside the
// category set.
type LLMClassifier struct {
	Client llm.Client
}

type classification struct {
	Categories []string `json:"categories" jsonschema:"description=One category per input line in the same order"`
}

const classifySystem = `You label job requirement lines. For each numbered line output exactly one of: education, experience, technical-skill, soft-skill, other. Return {"categories": [...]} with one label per line in order.`

// Classify categorizes lines, one model call per batch.
func (c LLMClassifier) Classify(ctx context.Context, lines []string) []Requirement {
	if len(lines) == 0 {
		return nil
	}
	if !llm.Enabled(c.Client) {
		return KeywordClassifier{}.Classify(ctx, lines)
	}

	var prompt strings.Builder
	for i, l := range lines {
		fmt.Fprintf(&prompt, "%d. %s\n", i+1, l)
	}
	validate := func(out classification) error {
		if len(out.Categories) != len(lines) {
			return fmt.Errorf("got %d labels for %d lines", len(out.Categories), len(lines))
		}
		return nil
	}
	out, err := llm.CompleteStructured(ctx, c.Client, llm.Request{
		Name:   "classify_requirements",
		System: classifySystem,
		Prompt: prompt.String(),
	}, validate)
	if err != nil {
		if !errors.Is(err, llm.ErrNotConfigured) {
			metrics.IncLLMFallback("requirements")
			telemetry.Warn("requirements.classify_fallback", map[string]any{"lines": len(lines), "error": err.Error()})
		}
		return KeywordClassifier{}.Classify(ctx, lines)
	}

	reqs := make([]Requirement, 0, len(lines))
	for i, l := range lines {
		cat := Category(strings.ToLower(strings.TrimSpace(out.Categories[i])))
		if !cat.Valid() {
			cat = Categorize(l)
		}
		reqs = append(reqs, Requirement{Text: l, Category: cat})
	}
	return reqs
}

// Extractor pulls requirement lines out of a posting and categorizes them
// with Classifier, or with keywords when Classifier is nil.
type Extractor struct {
	Classifier Classifier
}

// Extract returns the categorized requirement lines of text.
func (e Extractor) Extract(ctx context.Context, text string) []Requirement {
	reqs := Extract(text)
	if e.Classifier == nil || len(reqs) == 0 {
		return reqs
	}
	return e.Classifier.Classify(ctx, Texts(reqs))
}
