package journey

import "context"

// Repo persists sessions.
type Repo interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	// Update replaces stage, context, history and updated_at when the stored
	// version still equals s.Version, and bumps the version. Otherwise it
	// returns ErrConflict.
	Update(ctx context.Context, s Session) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Session, error)
}
