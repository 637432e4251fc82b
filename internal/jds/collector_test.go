package jds

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

const backendPosting = `Requirements
1. Bachelor degree in computer science
2. 3-5 years experience
3. Python and Redis`

type failingSource struct{ name string }

func (f failingSource) Name() string { return f.name }
func (f failingSource) FetchPostings(context.Context, Query, int) ([]Posting, error) {
	return nil, errors.New("unreachable")
}
func (f failingSource) FetchPostingByURL(context.Context, string) (Posting, error) {
	return Posting{}, errors.New("unreachable")
}

type slowSource struct{}

func (slowSource) Name() string { return "slow" }
func (slowSource) FetchPostings(ctx context.Context, _ Query, _ int) ([]Posting, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (slowSource) FetchPostingByURL(ctx context.Context, _ string) (Posting, error) {
	<-ctx.Done()
	return Posting{}, ctx.Err()
}

func postings(company string, n int) []Posting {
	out := make([]Posting, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Posting{
			Company: company,
			Title:   "Backend Engineer",
			Text:    backendPosting,
			URL:     fmt.Sprintf("https://%s.example/jobs/%d", company, i),
		})
	}
	return out
}

func newTestCollector(boards ...Source) (*Collector, *MemoryRepo) {
	repo := NewMemoryRepo()
	direct := DirectSources{}
	direct.Add(StaticSource{SourceName: "site:acme", Postings: postings("Acme", 3), Company: "Acme"}, "Acme", "艾克米")
	seq := 0
	return &Collector{
		Direct:        direct,
		Boards:        boards,
		Repo:          repo,
		SourceTimeout: 50 * time.Millisecond,
		NewID: func() string {
			seq++
			return fmt.Sprintf("jd-%d", seq)
		},
	}, repo
}

func TestCollectTargetCompanyFirstThenComparable(t *testing.T) {
	board := StaticSource{SourceName: "board", Postings: append(postings("Acme", 2), postings("Globex", 4)...)}
	c, repo := newTestCollector(board)

	items, err := c.Collect(context.Background(), "u1", Query{Title: "backend", Company: "艾克米", Count: 4})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(items))
	}
	if items[0].Tag != TagTargetCompany || items[0].Company != "Acme" {
		t.Fatalf("expected target company item first, got %+v", items[0])
	}
	for _, it := range items[1:] {
		if it.Tag != TagComparable || it.Company == "Acme" {
			t.Fatalf("expected comparable items from other companies, got %+v", it)
		}
	}
	if len(items[0].Requirements) != 3 {
		t.Fatalf("expected extracted requirements, got %+v", items[0].Requirements)
	}
	cached, err := repo.Get(context.Background(), items[2].ID)
	if err != nil || cached.ID != items[2].ID {
		t.Fatalf("expected item cached by id, got %v", err)
	}
}

func TestCollectSkipsFailingSourcesAndNeverPads(t *testing.T) {
	c, _ := newTestCollector(failingSource{name: "down"}, slowSource{}, StaticSource{SourceName: "board", Postings: postings("Globex", 2)})

	items, err := c.Collect(context.Background(), "u1", Query{Title: "backend", Count: 10})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected only the 2 available postings, got %d", len(items))
	}
}

func TestCollectTotalFailureReturnsEmpty(t *testing.T) {
	c, _ := newTestCollector(failingSource{name: "down"})
	items, err := c.Collect(context.Background(), "u1", Query{Title: "backend", Company: "Initech"})
	if err != nil {
		t.Fatalf("expected no error on total failure, got %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
}

func TestCollectRequiresTitle(t *testing.T) {
	c, _ := newTestCollector()
	if _, err := c.Collect(context.Background(), "u1", Query{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCollectDeduplicatesAcrossBoards(t *testing.T) {
	shared := postings("Globex", 2)
	c, _ := newTestCollector(
		StaticSource{SourceName: "a", Postings: shared},
		StaticSource{SourceName: "b", Postings: shared},
	)
	items, _ := c.Collect(context.Background(), "u1", Query{Title: "backend", Count: 5})
	if len(items) != 2 {
		t.Fatalf("expected duplicates removed, got %d", len(items))
	}
}

func TestFetchByURL(t *testing.T) {
	c, _ := newTestCollector(StaticSource{SourceName: "board", Postings: postings("Globex", 1)})

	it, err := c.FetchByURL(context.Background(), "u1", "https://Globex.example/jobs/0")
	if err != nil {
		t.Fatalf("FetchByURL: %v", err)
	}
	if it.Tag != TagComparable || it.SourceName != "board" {
		t.Fatalf("unexpected item: %+v", it)
	}

	acme, err := c.FetchByURL(context.Background(), "u1", "https://Acme.example/jobs/1")
	if err != nil {
		t.Fatalf("FetchByURL direct: %v", err)
	}
	if acme.Tag != TagTargetCompany {
		t.Fatalf("expected direct-source posting to be tagged target-company, got %s", acme.Tag)
	}

	if _, err := c.FetchByURL(context.Background(), "u1", "https://nowhere.example"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOwnedItemsRejectsOtherUsers(t *testing.T) {
	repo := NewMemoryRepo()
	_ = repo.Put(context.Background(), Item{ID: "a", UserID: "u1"})
	_ = repo.Put(context.Background(), Item{ID: "b", UserID: "u2"})

	if _, err := OwnedItems(context.Background(), repo, "u1", []string{"a", "b"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign item, got %v", err)
	}
	items, err := OwnedItems(context.Background(), repo, "u1", []string{"a"})
	if err != nil || len(items) != 1 {
		t.Fatalf("expected own item, got %v %v", items, err)
	}
}

func TestMemoryRepoPutIsWriteOnce(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	_ = repo.Put(ctx, Item{ID: "a", UserID: "u1", Title: "first"})
	_ = repo.Put(ctx, Item{ID: "a", UserID: "u1", Title: "second"})
	it, _ := repo.Get(ctx, "a")
	if it.Title != "first" {
		t.Fatalf("expected cached item to stay immutable, got %q", it.Title)
	}
	list, _ := repo.ListByUser(ctx, "u1", 10, 0)
	if len(list) != 1 {
		t.Fatalf("expected one listed item, got %d", len(list))
	}
}
