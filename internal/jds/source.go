package jds

import (
	"context"
	"strings"
)

// Source fetches postings from one job board or company site.
type Source interface {
	Name() string
	FetchPostings(ctx context.Context, q Query, limit int) ([]Posting, error)
	// FetchPostingByURL returns ErrNotFound when the source does not know url.
	FetchPostingByURL(ctx context.Context, url string) (Posting, error)
}

// StaticSource serves a fixed posting list. Used by the catalogue and tests.
type StaticSource struct {
	SourceName string
	Postings   []Posting
	// Company, when set, restricts the source to one employer.
	Company string
}

func (s StaticSource) Name() string { return s.SourceName }

// FetchPostings returns postings whose title contains q.Title and, when given,
// whose company or location match.
func (s StaticSource) FetchPostings(ctx context.Context, q Query, limit int) ([]Posting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []Posting
	for _, p := range s.Postings {
		if limit > 0 && len(out) >= limit {
			break
		}
		if s.Company != "" && normalizeCompany(p.Company) != normalizeCompany(s.Company) {
			continue
		}
		if q.Company != "" && normalizeCompany(p.Company) != normalizeCompany(q.Company) {
			continue
		}
		if !titleMatches(p.Title, q.Title) || !containsFold(p.Location, q.City) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s StaticSource) FetchPostingByURL(ctx context.Context, url string) (Posting, error) {
	if err := ctx.Err(); err != nil {
		return Posting{}, err
	}
	for _, p := range s.Postings {
		if p.URL != "" && p.URL == url {
			return p, nil
		}
	}
	return Posting{}, ErrNotFound
}

// titleMatches accepts a posting when every word of the wanted title occurs in it.
func titleMatches(title, want string) bool {
	lower := strings.ToLower(title)
	for _, w := range strings.Fields(strings.ToLower(want)) {
		if !strings.Contains(lower, w) {
			return false
		}
	}
	return true
}
