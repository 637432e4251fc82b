package journey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Azee177/jianli/internal/shared/keylock"
	"github.com/Azee177/jianli/internal/shared/telemetry"
)

// Service owns the session store. Mutations of one session are applied one
// at a time in call order; different sessions never share state.
type Service struct {
	Repo    Repo
	Machine Machine
	Now     func() time.Time
	NewID   func() string

	locks keylock.Map
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// Start opens a session at the upload stage.
func (s *Service) Start(ctx context.Context, userID string) (Session, error) {
	now := s.now()
	sess := Session{
		ID:        s.newID(),
		UserID:    userID,
		Stage:     StageUpload,
		Context:   map[string]json.RawMessage{},
		History:   []HistoryEntry{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	sess.Record("start", "created", now)
	if err := s.Repo.Create(ctx, sess); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Get returns a session owned by userID.
func (s *Service) Get(ctx context.Context, userID, id string) (Session, error) {
	sess, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if sess.UserID != userID {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

// ListByUser returns the caller's sessions, most recently updated first.
func (s *Service) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Session, error) {
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// maxApplyAttempts bounds how often Apply re-reads a session that another
// process wrote between the read and the write.
const maxApplyAttempts = 5

// Apply runs fn on a copy of the session and persists the copy only when fn
// succeeds. Calls for the same session are serialized in this process; writes
// from other processes are detected by version and fn is re-run on the fresh
// session, so fn must be safe to repeat.
func (s *Service) Apply(ctx context.Context, userID, id string, fn func(*Session) error) (Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	var err error
	for attempt := 1; attempt <= maxApplyAttempts; attempt++ {
		current, getErr := s.Get(ctx, userID, id)
		if getErr != nil {
			return Session{}, getErr
		}
		next := current.clone()
		if err := fn(&next); err != nil {
			return current, err
		}
		next.UpdatedAt = s.now()
		err = s.Repo.Update(ctx, next)
		if err == nil {
			next.Version++
			return next, nil
		}
		if !errors.Is(err, ErrConflict) {
			return current, fmt.Errorf("update session: %w", err)
		}
		telemetry.Warn("journey.write_conflict", map[string]any{"session_id": id, "attempt": attempt})
	}
	return Session{}, fmt.Errorf("update session: %w", err)
}

// Advance moves the session to stage to. An illegal edge returns
// ErrInvalidTransition and changes nothing.
func (s *Service) Advance(ctx context.Context, userID, id string, to Stage, action string) (Session, error) {
	if !to.Valid() {
		return Session{}, fmt.Errorf("%w: unknown stage %q", ErrValidation, to)
	}
	return s.Apply(ctx, userID, id, func(sess *Session) error {
		return s.Transition(sess, to, action)
	})
}

// Transition applies one edge inside an Apply callback.
func (s *Service) Transition(sess *Session, to Stage, action string) error {
	if !s.machine().Transition(sess, to, action) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sess.Stage, to)
	}
	return nil
}

// SetContext stores one context value without changing the stage.
func (s *Service) SetContext(ctx context.Context, userID, id, key string, value any) (Session, error) {
	if strings.TrimSpace(key) == "" {
		return Session{}, fmt.Errorf("%w: key is required", ErrValidation)
	}
	return s.Apply(ctx, userID, id, func(sess *Session) error {
		return sess.Set(key, value)
	})
}

// Guard reports whether an operation that moves the session to stage to may
// start now. It returns the session so callers can read its context.
func (s *Service) Guard(ctx context.Context, userID, id string, to Stage) (Session, error) {
	sess, err := s.Get(ctx, userID, id)
	if err != nil {
		return Session{}, err
	}
	if !CanTransition(sess.Stage, to) {
		return sess, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sess.Stage, to)
	}
	return sess, nil
}

// RequireStage reports ErrInvalidTransition unless the session is at one of stages.
func (s *Service) RequireStage(ctx context.Context, userID, id string, stages ...Stage) (Session, error) {
	sess, err := s.Get(ctx, userID, id)
	if err != nil {
		return Session{}, err
	}
	for _, st := range stages {
		if sess.Stage == st {
			return sess, nil
		}
	}
	return sess, fmt.Errorf("%w: operation not allowed at stage %s", ErrInvalidTransition, sess.Stage)
}

func (s *Service) machine() Machine {
	if s.Machine.Now == nil {
		return Machine{Now: s.Now}
	}
	return s.Machine
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
