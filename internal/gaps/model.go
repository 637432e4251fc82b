package gaps

import "time"

// Severity grades how much an uncovered dimension matters.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Item is a dimension found insufficiently reflected in the resume.
type Item struct {
	DimensionID   string   `json:"dimensionId"`
	Dimension     string   `json:"dimension"`
	CurrentLevel  string   `json:"currentLevel"`
	RequiredLevel string   `json:"requiredLevel"`
	Description   string   `json:"description"`
	Severity      Severity `json:"severity"`
	Coverage      float64  `json:"coverage"`
}

// Suggestion is an improvement derived from one gap item.
type Suggestion struct {
	ID            string `json:"id"`
	TargetSection string `json:"targetSection"`
	Type          string `json:"type"`
	SuggestedText string `json:"suggestedText"`
	Reason        string `json:"reason"`
	Priority      int    `json:"priority"`
}

// Analysis is a stored gap result.
type Analysis struct {
	ID                    string       `json:"id"`
	UserID                string       `json:"-"`
	CommonalityAnalysisID string       `json:"commonalityAnalysisId"`
	Items                 []Item       `json:"items"`
	Suggestions           []Suggestion `json:"suggestions"`
	CreatedAt             time.Time    `json:"createdAt"`
}
