package resumes

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var sectionKeywords = []struct {
	section  string
	keywords []string
}{
	{SectionHeader, []string{"个人信息", "联系", "contact", "resume"}},
	{SectionSummary, []string{"简介", "概述", "summary", "profile"}},
	{SectionEducation, []string{"教育", "education", "学历"}},
	{SectionExperience, []string{"工作经历", "experience", "实习", "employment"}},
	{SectionProject, []string{"项目经历", "projects", "project"}},
	{SectionSkills, []string{"技能", "skills", "tech stack"}},
	{SectionAwards, []string{"荣誉", "奖项", "awards", "certificates"}},
}

var skillDictionary = []string{
	"Python", "Java", "C++", "Go", "TypeScript", "JavaScript", "React", "Vue", "Node.js",
	"SQL", "PostgreSQL", "MySQL", "Redis", "MongoDB", "Docker", "Kubernetes", "Kafka",
	"LangChain", "LLM", "Machine Learning", "深度学习", "机器学习", "产品经理", "项目管理", "数据分析",
}

var (
	emailRe    = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phoneRe    = regexp.MustCompile(`(?:\+?86[-\s]?)?1[3-9]\d{9}|\d{3,4}[-\s]\d{7,8}`)
	websiteRe  = regexp.MustCompile(`https?://\S+`)
	locationRe = regexp.MustCompile(`北京|上海|广州|深圳|杭州|成都|武汉|南京|天津|重庆|西安`)
	labelRe    = regexp.MustCompile(`.+[：:]\s*$`)
)

// ParseRules splits text into sections and pulls contacts and skills using
// keyword tables. It never fails; an empty text yields an empty Parsed.
func ParseRules(text string) Parsed {
	normalized := normalizeText(text)
	return Parsed{
		Blocks:   splitBlocks(normalized),
		Contacts: extractContacts(normalized),
		Skills:   extractSkills(normalized),
		Language: detectLanguage(normalized),
	}
}

func normalizeText(text string) string {
	r := strings.NewReplacer("\r\n", "\n", "\u00a0", " ", "\u2022", "-")
	return strings.TrimSpace(r.Replace(text))
}

func detectLanguage(text string) string {
	var han, latin int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			han++
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			latin++
		}
	}
	switch {
	case han == 0 && latin == 0:
		return "unknown"
	case han >= latin:
		return "zh"
	default:
		return "en"
	}
}

func splitBlocks(text string) []Block {
	if text == "" {
		return []Block{}
	}
	var blocks []Block
	var buf []string
	current := SectionHeader
	flush := func() {
		content := strings.TrimSpace(strings.Join(buf, "\n"))
		if content != "" {
			blocks = append(blocks, Block{Type: current, Text: content})
		}
		buf = buf[:0]
	}
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			buf = append(buf, "")
			continue
		}
		if detected := detectSection(line); detected != "" && detected != current {
			flush()
			current = detected
		}
		buf = append(buf, raw)
	}
	flush()
	if len(blocks) == 0 {
		return []Block{{Type: SectionSummary, Text: text}}
	}
	return blocks
}

func detectSection(line string) string {
	lower := strings.ToLower(line)
	for _, s := range sectionKeywords {
		for _, kw := range s.keywords {
			if strings.HasPrefix(lower, kw) {
				return s.section
			}
		}
	}
	if labelRe.MatchString(line) {
		return SectionSummary
	}
	return ""
}

func extractContacts(text string) Contacts {
	c := Contacts{
		Email:    emailRe.FindString(text),
		Phone:    phoneRe.FindString(text),
		Website:  websiteRe.FindString(text),
		Location: locationRe.FindString(text),
	}
	lines := strings.Split(text, "\n")
	for i := 0; i < len(lines) && i < 5; i++ {
		l := strings.TrimSpace(lines[i])
		if l == "" {
			continue
		}
		if len([]rune(l)) <= 15 && !strings.ContainsAny(l, "@：:") {
			c.Name = l
			break
		}
	}
	return c
}

// extractSkills matches the dictionary case-insensitively. Short ASCII
// skills must match a whole token so "Go" does not match "good".
func extractSkills(text string) []string {
	lower := strings.ToLower(text)
	tokens := map[string]bool{}
	for _, tok := range strings.FieldsFunc(lower, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '.' || r == '#')
	}) {
		tokens[strings.TrimRight(tok, ".")] = true
	}
	found := []string{}
	for _, skill := range skillDictionary {
		s := strings.ToLower(skill)
		if tokens[s] || (!singleASCIIWord(s) && strings.Contains(lower, s)) {
			found = append(found, skill)
		}
	}
	sort.Strings(found)
	return found
}

func singleASCIIWord(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII || r == ' ' {
			return false
		}
	}
	return true
}
