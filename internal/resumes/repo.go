package resumes

import (
	"context"
	"time"
)

// Repo persists resumes.
type Repo interface {
	Create(ctx context.Context, r Resume) error
	Get(ctx context.Context, id string) (Resume, error)
	SetParsed(ctx context.Context, id string, parsed Parsed, parser string, at time.Time) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Resume, error)
}
