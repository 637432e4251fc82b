package journey

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func walkTo(t *testing.T, svc *Service, userID, id string, stages ...Stage) {
	t.Helper()
	for _, st := range stages {
		if _, err := svc.Advance(context.Background(), userID, id, st, ""); err != nil {
			t.Fatalf("advance to %s: %v", st, err)
		}
	}
}

func TestAdvanceRejectsIllegalEdgeWithoutSideEffects(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()
	sess, err := svc.Start(ctx, "u1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := svc.Advance(ctx, "u1", sess.ID, StageJDAnalyzing, "analyze_jds"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	got, _ := svc.Get(ctx, "u1", sess.ID)
	if got.Stage != StageUpload || len(got.History) != len(sess.History) {
		t.Fatalf("rejected transition changed the session: %+v", got)
	}
}

func TestApplyIsAllOrNothing(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()
	sess, _ := svc.Start(ctx, "u1")
	walkTo(t, svc, "u1", sess.ID, StageParsing, StageParseComplete, StageIntentCollecting)

	_, err := svc.Apply(ctx, "u1", sess.ID, func(s *Session) error {
		if err := s.Set(KeyTargetJob, "backend"); err != nil {
			return err
		}
		if err := svc.Transition(s, StageTargetConfirmed, "confirm_target"); err != nil {
			return err
		}
		return fmt.Errorf("downstream failure")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	got, _ := svc.Get(ctx, "u1", sess.ID)
	if got.Stage != StageIntentCollecting || got.String(KeyTargetJob) != "" {
		t.Fatalf("failed Apply leaked partial state: stage=%s context=%v", got.Stage, got.Context)
	}
}

func TestApplySerializesSameSession(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()
	sess, _ := svc.Start(ctx, "u1")

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Apply(ctx, "u1", sess.ID, func(s *Session) error {
				var n int
				if _, err := s.Lookup("counter", &n); err != nil {
					return err
				}
				return s.Set("counter", n+1)
			})
		}()
	}
	wg.Wait()

	got, _ := svc.Get(ctx, "u1", sess.ID)
	var n int
	if _, err := got.Lookup("counter", &n); err != nil || n != 25 {
		t.Fatalf("expected 25 serialized updates, got %d (%v)", n, err)
	}
}

func TestGuardAndRequireStage(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()
	sess, _ := svc.Start(ctx, "u1")

	if _, err := svc.Guard(ctx, "u1", sess.ID, StageParsing); err != nil {
		t.Fatalf("expected upload -> parsing to be allowed: %v", err)
	}
	if _, err := svc.Guard(ctx, "u1", sess.ID, StageDimsLocked); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.RequireStage(ctx, "u1", sess.ID, StageOptimizing); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.Get(ctx, "u2", sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other user, got %v", err)
	}
}

func TestRestartKeepsSessionAndHistory(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()
	sess, _ := svc.Start(ctx, "u1")
	walkTo(t, svc, "u1", sess.ID,
		StageParsing, StageParseComplete, StageIntentCollecting, StageTargetConfirmed, StageJDAnalyzing,
		StageDimsLocked, StageOptimizing, StagePrepGenerating, StageComplete, StageIntentCollecting)

	got, _ := svc.Get(ctx, "u1", sess.ID)
	if got.ID != sess.ID || got.Stage != StageIntentCollecting {
		t.Fatalf("unexpected session after restart: %+v", got)
	}
	if len(got.History) != 11 {
		t.Fatalf("expected start plus 10 transitions in history, got %d", len(got.History))
	}
}

func TestApplyKeepsWriteFromAnotherService(t *testing.T) {
	shared := NewMemoryRepo()
	mine := NewService(shared)
	theirs := NewService(shared)
	ctx := context.Background()
	sess, err := mine.Start(ctx, "u1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	runs := 0
	_, err = mine.Apply(ctx, "u1", sess.ID, func(s *Session) error {
		runs++
		if runs == 1 {
			if _, err := theirs.SetContext(ctx, "u1", sess.ID, KeyGapID, "gap-1"); err != nil {
				return err
			}
		}
		return s.Set(KeyResumeID, "res-1")
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if runs != 2 {
		t.Fatalf("expected fn to re-run once after the conflict, ran %d times", runs)
	}
	got, _ := mine.Get(ctx, "u1", sess.ID)
	if got.String(KeyGapID) != "gap-1" || got.String(KeyResumeID) != "res-1" {
		t.Fatalf("lost a write: %v", got.Context)
	}
}

type alwaysConflictRepo struct{ Repo }

func (alwaysConflictRepo) Update(context.Context, Session) error { return ErrConflict }

func TestApplyGivesUpAfterRepeatedConflicts(t *testing.T) {
	inner := NewMemoryRepo()
	sess, err := NewService(inner).Start(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	svc := NewService(alwaysConflictRepo{inner})
	_, err = svc.SetContext(context.Background(), "u1", sess.ID, KeyGapID, "gap-1")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}
