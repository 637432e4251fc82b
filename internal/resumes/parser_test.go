package resumes

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Azee177/jianli/internal/llm"
)

const englishResume = `Jane Doe
jane@example.com | 13812345678 | https://jane.dev
Summary
Backend engineer who likes good tooling.
Experience
- Built payment services in Go and Python on Kubernetes
Education
B.S. Computer Science
Skills
Go, Redis, PostgreSQL, Node.js`

func TestParseRulesSplitsSections(t *testing.T) {
	p := ParseRules(englishResume)
	var types []string
	for _, b := range p.Blocks {
		types = append(types, b.Type)
	}
	if got := strings.Join(types, ","); got != "header,summary,experience,education,skills" {
		t.Fatalf("unexpected sections %s", got)
	}
	if !strings.Contains(p.Section(SectionExperience), "payment services") {
		t.Fatalf("experience block missing content: %q", p.Section(SectionExperience))
	}
	if p.Language != "en" {
		t.Fatalf("expected en, got %s", p.Language)
	}
}

func TestParseRulesContacts(t *testing.T) {
	c := ParseRules(englishResume).Contacts
	if c.Name != "Jane Doe" || c.Email != "jane@example.com" || c.Phone != "13812345678" || c.Website != "https://jane.dev" {
		t.Fatalf("unexpected contacts %+v", c)
	}
}

func TestParseRulesSkillsUseWholeTokens(t *testing.T) {
	skills := ParseRules(englishResume).Skills
	want := "Go,Kubernetes,Node.js,PostgreSQL,Python,Redis"
	if got := strings.Join(skills, ","); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if got := ParseRules("a good engineer").Skills; len(got) != 0 {
		t.Fatalf("Go must not match inside another word, got %v", got)
	}
}

func TestParseRulesChinese(t *testing.T) {
	p := ParseRules("张三\n北京\n工作经历\n负责数据分析平台\n技能\n机器学习")
	if p.Language != "zh" || p.Contacts.Location != "北京" {
		t.Fatalf("unexpected parse %+v", p)
	}
	if p.Section(SectionExperience) == "" || p.Section(SectionSkills) == "" {
		t.Fatalf("expected experience and skills blocks, got %+v", p.Blocks)
	}
	if got := strings.Join(p.Skills, ","); got != "数据分析,机器学习" {
		t.Fatalf("unexpected skills %s", got)
	}
}

func TestParseRulesEmpty(t *testing.T) {
	p := ParseRules("   ")
	if len(p.Blocks) != 0 || p.Language != "unknown" {
		t.Fatalf("unexpected parse %+v", p)
	}
}

type stubClient struct {
	text  string
	err   error
	calls int
}

func (s *stubClient) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	s.calls++
	return llm.Response{Text: s.text}, s.err
}

func TestParserUsesModelOutput(t *testing.T) {
	c := &stubClient{text: `{"blocks":[{"type":"experience","text":"Built things"}],"contacts":{"name":"Jane"},"skills":["Go"],"language":"en"}`}
	p, by := Parser{Client: c}.Parse(context.Background(), "Built things")
	if by != ParserLLM || p.Contacts.Name != "Jane" || p.Section(SectionExperience) != "Built things" {
		t.Fatalf("unexpected parse %s %+v", by, p)
	}
}

func TestParserFallsBackOnBadOutput(t *testing.T) {
	c := &stubClient{text: `{"blocks":[{"type":"hobbies","text":"chess"}],"contacts":{},"skills":[],"language":"en"}`}
	p, by := Parser{Client: c}.Parse(context.Background(), englishResume)
	if by != ParserRules || len(p.Blocks) != 5 {
		t.Fatalf("expected rule fallback, got %s %+v", by, p.Blocks)
	}
	if c.calls != 2 {
		t.Fatalf("expected one retry, got %d calls", c.calls)
	}

	c = &stubClient{err: errors.New("provider down")}
	if _, by := (Parser{Client: c}).Parse(context.Background(), englishResume); by != ParserRules {
		t.Fatalf("expected rule fallback on error, got %s", by)
	}
}

func TestParserWithoutClientUsesRules(t *testing.T) {
	if _, by := (Parser{Client: llm.PlaceholderClient{}}).Parse(context.Background(), englishResume); by != ParserRules {
		t.Fatalf("expected rules, got %s", by)
	}
}
