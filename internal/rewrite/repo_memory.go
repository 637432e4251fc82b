package rewrite

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores rewrite results in memory.
type MemoryRepo struct {
	mu     sync.RWMutex
	byID   map[string]Result
	byUser map[string][]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:   make(map[string]Result),
		byUser: make(map[string][]string),
	}
}

func (m *MemoryRepo) Create(ctx context.Context, r Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[r.ID] = r
	m.byUser[r.UserID] = append(m.byUser[r.UserID], r.ID)
	return nil
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.byID[id]
	if !ok {
		return Result{}, ErrNotFound
	}
	return r, nil
}

func (m *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]Result, 0, len(m.byUser[userID]))
	for _, id := range m.byUser[userID] {
		out = append(out, m.byID[id])
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return []Result{}, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
