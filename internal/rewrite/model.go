package rewrite

import (
	"fmt"
	"strings"
	"time"
)

// Intent selects the kind of rewrite.
type Intent string

const (
	IntentSTAR         Intent = "star-method"
	IntentQuantify     Intent = "quantify"
	IntentDeduplicate  Intent = "deduplicate"
	IntentTranslate    Intent = "translate"
	IntentCompanyStyle Intent = "company-style"
)

var intentAliases = map[string]Intent{
	"star-method":      IntentSTAR,
	"star":             IntentSTAR,
	"quantify":         IntentQuantify,
	"deduplicate":      IntentDeduplicate,
	"reduce_duplicate": IntentDeduplicate,
	"translate":        IntentTranslate,
	"company-style":    IntentCompanyStyle,
	"company_style":    IntentCompanyStyle,
}

// ParseIntent accepts the canonical names and their underscore spellings.
func ParseIntent(s string) (Intent, error) {
	if in, ok := intentAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return in, nil
	}
	return "", fmt.Errorf("%w: unknown intent %q", ErrValidation, s)
}

// Tier names, in increasing order of transformation.
const (
	TierConservative = "conservative"
	TierBalanced     = "balanced"
	TierAggressive   = "aggressive"
)

// Risk levels mirror the tiers.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

type tier struct {
	name         string
	risk         string
	modifiedRate float64
}

var tiers = [3]tier{
	{TierConservative, RiskLow, 0.3},
	{TierBalanced, RiskMedium, 0.6},
	{TierAggressive, RiskHigh, 0.9},
}

// Diff summarizes how far a version moved from the original.
type Diff struct {
	AddedWords   int     `json:"addedWords"`
	ModifiedRate float64 `json:"modifiedRate"`
}

// Version is one graded rewrite.
type Version struct {
	Name      string `json:"name"`
	Content   string `json:"content"`
	Changes   string `json:"changes"`
	RiskLevel string `json:"riskLevel"`
	Diff      Diff   `json:"diff"`
}

// Factuality flags content that may have been invented by a rewrite.
type Factuality struct {
	IsSafe        bool     `json:"isSafe"`
	RiskLevel     string   `json:"riskLevel"`
	NewWordsCount int      `json:"newWordsCount"`
	NewNumbers    []string `json:"newNumbers"`
	Warnings      []string `json:"warnings"`
}

// Request asks for a rewrite of one span.
type Request struct {
	Text    string `json:"text"`
	Intent  string `json:"intent"`
	Company string `json:"company,omitempty"`
}

// Result is a stored rewrite. Factuality is computed on the aggressive tier.
type Result struct {
	ID             string     `json:"id"`
	UserID         string     `json:"-"`
	Original       string     `json:"original"`
	Intent         Intent     `json:"intent"`
	Company        string     `json:"company,omitempty"`
	Versions       []Version  `json:"versions"`
	Factuality     Factuality `json:"factuality"`
	Recommendation string     `json:"recommendation"`
	Generator      string     `json:"generator"`
	CreatedAt      time.Time  `json:"createdAt"`
}
