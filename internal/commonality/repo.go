package commonality

import "context"

// Repo persists analyses.
type Repo interface {
	Create(ctx context.Context, a Analysis) error
	Get(ctx context.Context, id string) (Analysis, error)
	// Update replaces the dimensions and lock stamp of an unlocked analysis
	// whose stored version still equals a.Version, and bumps the version. It
	// returns ErrLocked once the stored analysis is locked and ErrConflict
	// when another write got there first.
	Update(ctx context.Context, a Analysis) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error)
}
