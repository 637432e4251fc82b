package resumes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Azee177/jianli/internal/llm"
	"github.com/Azee177/jianli/internal/shared/metrics"
	"github.com/Azee177/jianli/internal/shared/telemetry"
)

const (
	ParserLLM   = "llm"
	ParserRules = "rules"
)

const parseSystem = `You split a resume into sections. Copy text verbatim; never add facts.
Section types: header, summary, education, experience, project, skills, awards.
Return {"blocks":[{"type","text"}],"contacts":{"name","email","phone","location","website"},"skills":[...],"language":"zh"|"en"|"unknown"}.`

// Parser turns resume text into sections with a model when one is
// configured, and with ParseRules otherwise or when the model output is
// unusable.
type Parser struct {
	Client llm.Client
}

// Parse returns the structure and which parser produced it.
func (p Parser) Parse(ctx context.Context, text string) (Parsed, string) {
	if !llm.Enabled(p.Client) {
		return ParseRules(text), ParserRules
	}
	out, err := llm.CompleteStructured(ctx, p.Client, llm.Request{
		Name:   "parse_resume",
		System: parseSystem,
		Prompt: text,
	}, validateParsed)
	if err != nil {
		if !errors.Is(err, llm.ErrNotConfigured) {
			metrics.IncLLMFallback("resume_parse")
			telemetry.Warn("resume.parse_fallback", map[string]any{"chars": len(text), "error": err.Error()})
		}
		return ParseRules(text), ParserRules
	}
	if out.Skills == nil {
		out.Skills = []string{}
	}
	return out, ParserLLM
}

func validateParsed(p Parsed) error {
	if len(p.Blocks) == 0 {
		return errors.New("no blocks")
	}
	for i, b := range p.Blocks {
		if !sectionTypes[b.Type] {
			return fmt.Errorf("block %d: unknown type %q", i, b.Type)
		}
		if strings.TrimSpace(b.Text) == "" {
			return fmt.Errorf("block %d: empty text", i)
		}
	}
	return nil
}
