package jds

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryRepo stores items in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu     sync.RWMutex
	byID   map[string]Item
	byUser map[string][]string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:   make(map[string]Item),
		byUser: make(map[string][]string),
	}
}

func (r *MemoryRepo) Put(ctx context.Context, item Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[item.ID]; exists {
		return nil
	}
	r.byID[item.ID] = item
	r.byUser[item.UserID] = append(r.byUser[item.UserID], item.ID)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	it, ok := r.byID[id]
	if !ok {
		return Item{}, ErrNotFound
	}
	return it, nil
}

func (r *MemoryRepo) GetMany(ctx context.Context, ids []string) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Item, 0, len(ids))
	for _, id := range ids {
		it, ok := r.byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		out = append(out, it)
	}
	return out, nil
}

// ListByUser returns items newest first, with limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Item, error) {
	if offset < 0 {
		offset = 0
	}
	all, err := r.Search(ctx, userID, SearchFilter{})
	if err != nil {
		return nil, err
	}
	if offset >= len(all) {
		return []Item{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

func (r *MemoryRepo) Search(ctx context.Context, userID string, f SearchFilter) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	items := make([]Item, 0, len(r.byUser[userID]))
	for _, id := range r.byUser[userID] {
		if it := r.byID[id]; f.matches(it) {
			items = append(items, it)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].FetchedAt.After(items[j].FetchedAt)
	})
	if f.Limit > 0 && len(items) > f.Limit {
		items = items[:f.Limit]
	}
	return items, nil
}
