package jds

import (
	"strings"
	"time"

	"github.com/Azee177/jianli/internal/requirements"
)

// Tag records whether an item came from the target company or a comparable one.
type Tag string

const (
	TagTargetCompany Tag = "target-company"
	TagComparable    Tag = "comparable"
)

// Item is one fetched job posting. Items are immutable once cached.
type Item struct {
	ID           string                     `json:"id"`
	UserID       string                     `json:"-"`
	Company      string                     `json:"company"`
	Title        string                     `json:"title"`
	Location     string                     `json:"location"`
	Text         string                     `json:"text"`
	URL          string                     `json:"url,omitempty"`
	Requirements []requirements.Requirement `json:"requirements"`
	Tag          Tag                        `json:"source"`
	SourceName   string                     `json:"sourceName"`
	FetchedAt    time.Time                  `json:"fetchedAt"`
}

// Posting is what a Source returns before requirements are extracted.
type Posting struct {
	Company  string `json:"company" yaml:"company"`
	Title    string `json:"title" yaml:"title"`
	Location string `json:"location" yaml:"location"`
	Text     string `json:"text" yaml:"text"`
	URL      string `json:"url" yaml:"url"`
}

// Query describes a collection request.
type Query struct {
	Title   string `json:"title"`
	Company string `json:"company,omitempty"`
	City    string `json:"city,omitempty"`
	Count   int    `json:"count,omitempty"`
}

// SearchFilter narrows cached items. Empty fields match everything.
type SearchFilter struct {
	Company string
	Title   string
	City    string
	Limit   int
}

func (f SearchFilter) matches(it Item) bool {
	return containsFold(it.Company, f.Company) &&
		containsFold(it.Title, f.Title) &&
		containsFold(it.Location, f.City)
}

func containsFold(s, sub string) bool {
	if sub == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(sub)))
}

// normalizeCompany folds case and whitespace for company comparisons.
func normalizeCompany(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
