package rewrite

import "context"

// Repo persists rewrite results.
type Repo interface {
	Create(ctx context.Context, r Result) error
	Get(ctx context.Context, id string) (Result, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Result, error)
}
