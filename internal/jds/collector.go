package jds

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Azee177/jianli/internal/requirements"
	"github.com/Azee177/jianli/internal/shared/metrics"
	"github.com/Azee177/jianli/internal/shared/telemetry"
)

const (
	defaultCount = 10
	maxCount     = 50
)

// Collector gathers postings for a role from a target company's own site and
// from comparable boards, extracts requirements and caches each item.
type Collector struct {
	Direct    DirectSources
	Boards    []Source
	Extractor requirements.Extractor
	Repo      Repo
	// SourceTimeout bounds each source call.
	SourceTimeout time.Duration
	// TargetQuota is how many target-company postings to take first.
	TargetQuota int
	// DefaultCount applies when a query asks for no particular count.
	DefaultCount int

	Now   func() time.Time
	NewID func() string
}

// Collect returns up to q.Count items. Source failures are logged and skipped;
// fewer items than requested is a normal outcome.
func (c *Collector) Collect(ctx context.Context, userID string, q Query) ([]Item, error) {
	q.Title = strings.TrimSpace(q.Title)
	q.Company = strings.TrimSpace(q.Company)
	q.City = strings.TrimSpace(q.City)
	if q.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	n := q.Count
	if n <= 0 {
		n = c.DefaultCount
	}
	if n <= 0 {
		n = defaultCount
	}
	if n > maxCount {
		n = maxCount
	}

	var (
		items    []Item
		seen     = map[string]struct{}{}
		excluded []string
	)
	add := func(p Posting, tag Tag, source string) {
		if len(items) >= n {
			return
		}
		key := postingKey(p)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		items = append(items, c.newItem(ctx, userID, p, tag, source))
	}

	if q.Company != "" {
		if src, names, ok := c.Direct.Lookup(q.Company); ok {
			excluded = names
			quota := c.TargetQuota
			if quota <= 0 {
				quota = 1
			}
			if quota > n {
				quota = n
			}
			targetQuery := Query{Title: q.Title, City: q.City}
			postings, err := c.fetch(ctx, src, targetQuery, quota)
			if err == nil {
				for _, p := range postings {
					if p.Company == "" {
						p.Company = q.Company
					}
					add(p, TagTargetCompany, src.Name())
				}
			}
		} else {
			excluded = []string{q.Company}
		}
	}

	if remaining := n - len(items); remaining > 0 && len(c.Boards) > 0 {
		for _, batch := range c.fanOut(ctx, Query{Title: q.Title, City: q.City}, remaining+len(excluded)) {
			for _, p := range batch.postings {
				if isExcluded(p.Company, excluded) {
					continue
				}
				add(p, TagComparable, batch.source)
			}
		}
	}

	for _, it := range items {
		if err := c.Repo.Put(ctx, it); err != nil {
			telemetry.Warn("jds.cache_failed", map[string]any{"jd_id": it.ID, "error": err.Error()})
		}
	}
	telemetry.Info("jds.collected", map[string]any{
		"user_id":   userID,
		"title":     q.Title,
		"company":   q.Company,
		"requested": n,
		"collected": len(items),
	})
	return items, nil
}

// FetchByURL resolves one posting by url from any source, caches and returns it.
func (c *Collector) FetchByURL(ctx context.Context, userID, postingURL string) (Item, error) {
	postingURL = strings.TrimSpace(postingURL)
	if postingURL == "" {
		return Item{}, fmt.Errorf("%w: url is required", ErrValidation)
	}
	sources := make([]Source, 0, len(c.Direct)+len(c.Boards))
	seen := map[string]struct{}{}
	for _, e := range c.Direct {
		if _, ok := seen[e.source.Name()]; ok {
			continue
		}
		seen[e.source.Name()] = struct{}{}
		sources = append(sources, e.source)
	}
	sources = append(sources, c.Boards...)

	for _, src := range sources {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout())
		p, err := src.FetchPostingByURL(callCtx, postingURL)
		cancel()
		if err != nil {
			continue
		}
		tag := TagComparable
		if _, _, ok := c.Direct.Lookup(p.Company); ok {
			tag = TagTargetCompany
		}
		it := c.newItem(ctx, userID, p, tag, src.Name())
		if err := c.Repo.Put(ctx, it); err != nil {
			return Item{}, fmt.Errorf("cache posting: %w", err)
		}
		return it, nil
	}
	return Item{}, ErrNotFound
}

type sourceBatch struct {
	source   string
	postings []Posting
}

// fanOut queries every board concurrently and returns batches in board order.
func (c *Collector) fanOut(ctx context.Context, q Query, limit int) []sourceBatch {
	batches := make([]sourceBatch, len(c.Boards))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range c.Boards {
		g.Go(func() error {
			postings, err := c.fetch(gctx, src, q, limit)
			if err != nil {
				return nil
			}
			batches[i] = sourceBatch{source: src.Name(), postings: postings}
			return nil
		})
	}
	_ = g.Wait()
	return batches
}

func (c *Collector) fetch(ctx context.Context, src Source, q Query, limit int) ([]Posting, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()
	postings, err := src.FetchPostings(callCtx, q, limit)
	if err != nil {
		metrics.IncSourceFailure(src.Name())
		telemetry.Warn("jds.source_failed", map[string]any{"source": src.Name(), "error": err.Error()})
		return nil, err
	}
	return postings, nil
}

func (c *Collector) newItem(ctx context.Context, userID string, p Posting, tag Tag, source string) Item {
	reqs := c.Extractor.Extract(ctx, p.Text)
	if reqs == nil {
		reqs = []requirements.Requirement{}
	}
	return Item{
		ID:           c.newID(),
		UserID:       userID,
		Company:      strings.TrimSpace(p.Company),
		Title:        strings.TrimSpace(p.Title),
		Location:     strings.TrimSpace(p.Location),
		Text:         p.Text,
		URL:          p.URL,
		Requirements: reqs,
		Tag:          tag,
		SourceName:   source,
		FetchedAt:    c.now(),
	}
}

func (c *Collector) timeout() time.Duration {
	if c.SourceTimeout > 0 {
		return c.SourceTimeout
	}
	return 15 * time.Second
}

func (c *Collector) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

func (c *Collector) newID() string {
	if c.NewID != nil {
		return c.NewID()
	}
	return uuid.NewString()
}

func isExcluded(company string, names []string) bool {
	key := normalizeCompany(company)
	for _, n := range names {
		if key == normalizeCompany(n) {
			return true
		}
	}
	return false
}

func postingKey(p Posting) string {
	if p.URL != "" {
		return "url:" + p.URL
	}
	sum := sha256.Sum256([]byte(normalizeCompany(p.Company) + "\x00" + p.Title + "\x00" + p.Text))
	return "hash:" + hex.EncodeToString(sum[:8])
}
