package commonality

import (
	"time"

	"github.com/Azee177/jianli/internal/requirements"
)

// MaxDimensions caps how many dimensions an analysis carries.
const MaxDimensions = 5

// AtomicRequirement is one requirement text merged across postings.
type AtomicRequirement struct {
	Text      string                `json:"text"`
	Category  requirements.Category `json:"category"`
	Frequency int                   `json:"frequency"`
	JDIDs     []string              `json:"jdIds"`
}

// Dimension is one weighted requirement theme shared across postings.
type Dimension struct {
	ID          string                `json:"id"`
	Category    requirements.Category `json:"category"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Importance  float64               `json:"importance"`
	Frequency   int                   `json:"frequency"`
	TotalJDs    int                   `json:"totalJds"`
	Evidence    []string              `json:"evidence"`
	Locked      bool                  `json:"locked"`
}

// Analysis is a stored set of dimensions for a batch of postings.
type Analysis struct {
	ID         string      `json:"id"`
	UserID     string      `json:"-"`
	JDIDs      []string    `json:"jdIds"`
	Dimensions []Dimension `json:"dimensions"`
	CreatedAt  time.Time   `json:"createdAt"`
	LockedAt   *time.Time  `json:"lockedAt,omitempty"`
	Version    int64       `json:"-"`
}

// Locked reports whether LockAll has run on the analysis.
func (a Analysis) Locked() bool {
	return a.LockedAt != nil
}

// Patch edits a dimension before locking. Nil fields are left unchanged.
type Patch struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Importance  *float64 `json:"importance,omitempty"`
}

// LockResult reports a LockAll call.
type LockResult struct {
	LockedCount int       `json:"lockedCount"`
	LockedAt    time.Time `json:"lockedAt"`
}
