package gaps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Azee177/jianli/internal/commonality"
	"github.com/Azee177/jianli/internal/shared/telemetry"
)

// Service runs gap analyses against locked dimensions and stores them.
type Service struct {
	Repo     Repo
	Analyzer Analyzer
	Now      func() time.Time
	NewID    func() string
}

// NewService constructs a Service with the given coverage threshold.
func NewService(repo Repo, threshold float64) *Service {
	return &Service{Repo: repo, Analyzer: Analyzer{Threshold: threshold}}
}

// Analyze compares resume against a locked commonality analysis.
func (s *Service) Analyze(ctx context.Context, userID, resume string, dims commonality.Analysis) (Analysis, error) {
	if strings.TrimSpace(resume) == "" {
		return Analysis{}, fmt.Errorf("%w: resume text is required", ErrValidation)
	}
	if !dims.Locked() {
		return Analysis{}, ErrNotLocked
	}
	items := s.Analyzer.Analyze(resume, dims.Dimensions)
	a := Analysis{
		ID:                    s.newID(),
		UserID:                userID,
		CommonalityAnalysisID: dims.ID,
		Items:                 items,
		Suggestions:           Suggest(items),
		CreatedAt:             s.now(),
	}
	if err := s.Repo.Create(ctx, a); err != nil {
		return Analysis{}, fmt.Errorf("store gap analysis: %w", err)
	}
	telemetry.Info("gaps.analyzed", map[string]any{
		"gap_analysis_id": a.ID,
		"analysis_id":     dims.ID,
		"dimensions":      len(dims.Dimensions),
		"gaps":            len(items),
	})
	return a, nil
}

// Get returns a gap analysis owned by userID.
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

// List returns the caller's gap analyses, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	return s.Repo.ListByUser(ctx, userID, limit, offset)
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
