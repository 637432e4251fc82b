package commonality

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores analyses in memory.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Analysis
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Analysis)}
}

func (r *MemoryRepo) Create(ctx context.Context, a Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[a.ID] = clone(a)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return Analysis{}, ErrNotFound
	}
	return clone(a), nil
}

func (r *MemoryRepo) Update(ctx context.Context, a Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[a.ID]
	switch {
	case !ok:
		return ErrNotFound
	case existing.Locked():
		return ErrLocked
	case existing.Version != a.Version:
		return ErrConflict
	}
	existing.Dimensions = a.Dimensions
	existing.LockedAt = a.LockedAt
	existing.Version++
	r.byID[a.ID] = clone(existing)
	return nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	var out []Analysis
	for _, a := range r.byID {
		if a.UserID == userID {
			out = append(out, clone(a))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return []Analysis{}, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// clone copies the slices so callers cannot mutate stored state.
func clone(a Analysis) Analysis {
	a.JDIDs = append([]string(nil), a.JDIDs...)
	dims := make([]Dimension, len(a.Dimensions))
	for i, d := range a.Dimensions {
		d.Evidence = append([]string(nil), d.Evidence...)
		dims[i] = d
	}
	a.Dimensions = dims
	if a.LockedAt != nil {
		t := *a.LockedAt
		a.LockedAt = &t
	}
	return a
}
