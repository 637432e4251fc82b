package requirements

import "strings"

var (
	educationWords = []string{"bachelor", "bachelors", "master", "masters", "phd", "doctorate", "degree", "diploma", "bsc", "msc"}
	educationCJK   = []string{"学历", "本科", "硕士", "博士", "学位", "专科"}

	experienceWords = []string{"year", "years", "yrs", "experience", "experienced"}
	experienceCJK   = []string{"年", "经验"}

	technologyTokens = []string{
		"python", "java", "go", "golang", "javascript", "typescript", "js", "node", "rust", "c++", "c#",
		"kotlin", "swift", "scala", "php", "ruby", "sql", "mysql", "postgresql", "postgres", "redis",
		"mongodb", "kafka", "rabbitmq", "elasticsearch", "docker", "kubernetes", "k8s", "linux", "aws",
		"gcp", "azure", "react", "vue", "angular", "spring", "django", "flask", "grpc", "graphql",
		"hadoop", "spark", "flink", "tensorflow", "pytorch", "git", "terraform",
	}

	softSkillWords = []string{
		"communication", "communicate", "collaboration", "collaborative", "teamwork", "team",
		"learning", "learner", "innovation", "innovative", "leadership", "interpersonal", "ownership",
	}
	softSkillCJK = []string{"沟通", "协作", "团队", "学习", "创新", "责任心"}
)

var technologySet = toSet(technologyTokens)

// Categorize assigns the first matching keyword family in priority order:
// education, experience, technical-skill, soft-skill, else other.
func Categorize(text string) Category {
	lower := strings.ToLower(text)
	tokens := toSet(asciiTokens(lower))

	switch {
	case anyToken(tokens, educationWords) || anySubstring(lower, educationCJK):
		return CategoryEducation
	case anyToken(tokens, experienceWords) || anySubstring(lower, experienceCJK):
		return CategoryExperience
	case anyInSet(tokens, technologySet):
		return CategoryTechnicalSkill
	case anyToken(tokens, softSkillWords) || anySubstring(lower, softSkillCJK):
		return CategorySoftSkill
	default:
		return CategoryOther
	}
}

// asciiTokens splits on anything that is not an ASCII letter, digit, '+' or '#'.
// CJK runs act as separators so "掌握Python/Java" yields python and java.
func asciiTokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '+', r == '#':
			return false
		}
		return true
	})
}

func toSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, it := range items {
		out[it] = struct{}{}
	}
	return out
}

func anyToken(tokens map[string]struct{}, words []string) bool {
	for _, w := range words {
		if _, ok := tokens[w]; ok {
			return true
		}
	}
	return false
}

func anyInSet(tokens, set map[string]struct{}) bool {
	for t := range tokens {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

func anySubstring(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
