package tasks

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores tasks in memory.
type MemoryRepo struct {
	mu     sync.RWMutex
	byID   map[string]Task
	byUser map[string][]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:   make(map[string]Task),
		byUser: make(map[string][]string),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, t Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[t.ID] = t.clone()
	r.byUser[t.UserID] = append(r.byUser[t.UserID], t.ID)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Task, error) {
	if err := ctx.Err(); err != nil {
		return Task{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	return t.clone(), nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, f Filter) ([]Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Task, 0, len(r.byUser[userID]))
	for _, id := range r.byUser[userID] {
		if t := r.byID[id]; f.match(t) {
			out = append(out, t.clone())
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > f.limit() {
		out = out[:f.limit()]
	}
	return out, nil
}

func (r *MemoryRepo) Claim(ctx context.Context, id string, at, staleBefore time.Time) (Task, bool, error) {
	if err := ctx.Err(); err != nil {
		return Task{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return Task{}, false, ErrNotFound
	}
	stale := t.Status == StatusRunning && t.StartedAt != nil && t.StartedAt.Before(staleBefore)
	if t.Status != StatusQueued && !stale {
		return t.clone(), false, nil
	}
	t.Status = StatusRunning
	t.StartedAt = &at
	t.UpdatedAt = at
	r.byID[id] = t
	return t.clone(), true, nil
}

func (r *MemoryRepo) SetProgress(ctx context.Context, id string, progress int, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	switch {
	case t.Status.Terminal():
		return ErrTerminal
	case t.Status != StatusRunning:
		return ErrNotRunning
	}
	t.Progress = &progress
	t.UpdatedAt = at
	r.byID[id] = t
	return nil
}

func (r *MemoryRepo) Finish(ctx context.Context, id string, out Outcome) (Task, error) {
	if err := ctx.Err(); err != nil {
		return Task{}, err
	}
	if !out.Status.Terminal() {
		return Task{}, ErrValidation
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	if !canFinish(t.Status, out.Status) {
		return t.clone(), ErrTerminal
	}
	t.Status = out.Status
	t.Result = append(json.RawMessage(nil), out.Result...)
	if out.Error != "" {
		msg := out.Error
		t.Error = &msg
	}
	if out.ErrorCode != "" {
		code := out.ErrorCode
		t.ErrorCode = &code
	}
	at := out.At
	t.CompletedAt = &at
	t.UpdatedAt = at
	r.byID[id] = t
	return t.clone(), nil
}

// canFinish allows running -> done|error, and queued -> error for tasks
// that never reached a worker.
func canFinish(from, to Status) bool {
	switch from {
	case StatusRunning:
		return true
	case StatusQueued:
		return to == StatusError
	}
	return false
}
