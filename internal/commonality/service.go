package commonality

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Azee177/jianli/internal/jds"
	"github.com/Azee177/jianli/internal/shared/keylock"
	"github.com/Azee177/jianli/internal/shared/telemetry"
)

// Service owns the analysis store. Writes to the same analysis are serialized.
type Service struct {
	Repo  Repo
	Now   func() time.Time
	NewID func() string

	locks keylock.Map
}

// NewService constructs a Service.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// Analyze clusters items and stores the result under a fresh id.
func (s *Service) Analyze(ctx context.Context, userID string, items []jds.Item) (Analysis, error) {
	if len(items) == 0 {
		return Analysis{}, fmt.Errorf("%w: at least one job posting is required", ErrValidation)
	}
	jdIDs := make([]string, 0, len(items))
	for _, it := range items {
		jdIDs = append(jdIDs, it.ID)
	}
	a := Analysis{
		ID:         s.newID(),
		UserID:     userID,
		JDIDs:      jdIDs,
		Dimensions: Cluster(items),
		CreatedAt:  s.now(),
	}
	if err := s.Repo.Create(ctx, a); err != nil {
		return Analysis{}, fmt.Errorf("store analysis: %w", err)
	}
	telemetry.Info("commonality.analyzed", map[string]any{
		"analysis_id": a.ID,
		"user_id":     userID,
		"jds":         len(items),
		"dimensions":  len(a.Dimensions),
	})
	return a, nil
}

// Get returns an analysis owned by userID.
func (s *Service) Get(ctx context.Context, userID, id string) (Analysis, error) {
	a, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Analysis{}, err
	}
	if a.UserID != userID {
		return Analysis{}, ErrNotFound
	}
	return a, nil
}

// List returns the caller's analyses, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// maxWriteAttempts bounds re-reads after a write lost to another process.
const maxWriteAttempts = 5

// UpdateDimension edits one dimension. Locked analyses reject every edit.
// Frequency and evidence are not recomputed.
func (s *Service) UpdateDimension(ctx context.Context, userID, analysisID, dimensionID string, p Patch) (Dimension, error) {
	if p.Importance != nil && (*p.Importance < 0 || *p.Importance > 1) {
		return Dimension{}, fmt.Errorf("%w: importance must be between 0 and 1", ErrValidation)
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return Dimension{}, fmt.Errorf("%w: title must not be empty", ErrValidation)
	}

	unlock := s.locks.Lock(analysisID)
	defer unlock()

	var err error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		var dim Dimension
		dim, err = s.updateDimension(ctx, userID, analysisID, dimensionID, p)
		if !errors.Is(err, ErrConflict) {
			return dim, err
		}
	}
	return Dimension{}, fmt.Errorf("update analysis: %w", err)
}

func (s *Service) updateDimension(ctx context.Context, userID, analysisID, dimensionID string, p Patch) (Dimension, error) {
	a, err := s.Get(ctx, userID, analysisID)
	if err != nil {
		return Dimension{}, err
	}
	if a.Locked() {
		return Dimension{}, ErrLocked
	}
	idx := -1
	for i, d := range a.Dimensions {
		if d.ID == dimensionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Dimension{}, ErrNotFound
	}

	dim := a.Dimensions[idx]
	if p.Title != nil {
		dim.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		dim.Description = strings.TrimSpace(*p.Description)
	}
	if p.Importance != nil {
		dim.Importance = *p.Importance
	}
	a.Dimensions[idx] = dim
	if err := s.Repo.Update(ctx, a); err != nil {
		if errors.Is(err, ErrLocked) || errors.Is(err, ErrConflict) {
			return Dimension{}, err
		}
		return Dimension{}, fmt.Errorf("update analysis: %w", err)
	}
	return dim, nil
}

// LockAll marks every dimension locked and stamps the lock time in one write.
// Locking an already locked analysis returns the original stamp, including
// when another process locked it first.
func (s *Service) LockAll(ctx context.Context, userID, analysisID string) (LockResult, error) {
	unlock := s.locks.Lock(analysisID)
	defer unlock()

	var err error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		var res LockResult
		res, err = s.lockAll(ctx, userID, analysisID)
		if !errors.Is(err, ErrConflict) && !errors.Is(err, ErrLocked) {
			return res, err
		}
	}
	return LockResult{}, fmt.Errorf("lock analysis: %w", err)
}

func (s *Service) lockAll(ctx context.Context, userID, analysisID string) (LockResult, error) {
	a, err := s.Get(ctx, userID, analysisID)
	if err != nil {
		return LockResult{}, err
	}
	if a.Locked() {
		return LockResult{LockedCount: len(a.Dimensions), LockedAt: *a.LockedAt}, nil
	}

	now := s.now()
	locked := a
	locked.Dimensions = make([]Dimension, len(a.Dimensions))
	for i, d := range a.Dimensions {
		d.Locked = true
		locked.Dimensions[i] = d
	}
	locked.LockedAt = &now
	if err := s.Repo.Update(ctx, locked); err != nil {
		if errors.Is(err, ErrLocked) || errors.Is(err, ErrConflict) {
			return LockResult{}, err
		}
		return LockResult{}, fmt.Errorf("lock analysis: %w", err)
	}
	telemetry.Info("commonality.locked", map[string]any{
		"analysis_id": analysisID,
		"dimensions":  len(locked.Dimensions),
	})
	return LockResult{LockedCount: len(locked.Dimensions), LockedAt: now}, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}
