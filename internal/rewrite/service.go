package rewrite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Azee177/jianli/internal/shared/telemetry"
)

// Service generates rewrites and stores them by id.
type Service struct {
	Repo   Repo
	Engine Engine
	Now    func() time.Time
	NewID  func() string
}

func NewService(repo Repo, engine Engine) *Service {
	return &Service{Repo: repo, Engine: engine}
}

// Rewrite generates and stores a result for req.
func (s *Service) Rewrite(ctx context.Context, userID string, req Request) (Result, error) {
	gen, err := s.Engine.Rewrite(ctx, req)
	if err != nil {
		return Result{}, err
	}
	r := Result{
		ID:             s.newID(),
		UserID:         userID,
		Original:       strings.TrimSpace(req.Text),
		Intent:         gen.Intent,
		Company:        strings.TrimSpace(req.Company),
		Versions:       gen.Versions,
		Factuality:     gen.Factuality,
		Recommendation: gen.Recommendation,
		Generator:      gen.Generator,
		CreatedAt:      s.now(),
	}
	if err := s.Repo.Create(ctx, r); err != nil {
		return Result{}, fmt.Errorf("store rewrite: %w", err)
	}
	telemetry.Info("rewrite.created", map[string]any{
		"rewrite_id": r.ID,
		"intent":     string(r.Intent),
		"generator":  r.Generator,
		"safe":       r.Factuality.IsSafe,
	})
	return r, nil
}

// Get returns a rewrite owned by userID.
func (s *Service) Get(ctx context.Context, userID, id string) (Result, error) {
	r, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if r.UserID != userID {
		return Result{}, ErrNotFound
	}
	return r, nil
}

// List returns the caller's rewrites, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Result, error) {
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
