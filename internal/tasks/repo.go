package tasks

import (
	"context"
	"time"
)

// Repo persists tasks. Implementations enforce the status order
// queued -> running -> done|error; a finished task never changes again.
type Repo interface {
	Create(ctx context.Context, t Task) error
	Get(ctx context.Context, id string) (Task, error)
	ListByUser(ctx context.Context, userID string, f Filter) ([]Task, error)
	// Claim moves a queued task to running. A running task whose start is
	// before staleBefore is claimed again, since its worker is presumed lost.
	// claimed is false otherwise, which callers treat as already handled.
	Claim(ctx context.Context, id string, at, staleBefore time.Time) (Task, bool, error)
	SetProgress(ctx context.Context, id string, progress int, at time.Time) error
	Finish(ctx context.Context, id string, out Outcome) (Task, error)
}
