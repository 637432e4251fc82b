package jds

import "context"

// Repo caches fetched postings. Put never overwrites an existing id.
type Repo interface {
	Put(ctx context.Context, item Item) error
	Get(ctx context.Context, id string) (Item, error)
	// GetMany returns items in ids order, or ErrNotFound if any id is unknown.
	GetMany(ctx context.Context, ids []string) ([]Item, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Item, error)
	Search(ctx context.Context, userID string, f SearchFilter) ([]Item, error)
}
