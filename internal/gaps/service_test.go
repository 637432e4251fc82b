package gaps

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azee177/jianli/internal/commonality"
)

func lockedAnalysis() commonality.Analysis {
	now := time.Now().UTC()
	return commonality.Analysis{
		ID: "an-1",
		Dimensions: []commonality.Dimension{
			{ID: "dim-technical-skill", Title: "Core technical skills", Description: "Proficient in Python, Kafka", Importance: 1.0, Locked: true},
			{ID: "dim-soft-skill", Title: "Soft skills", Description: "Good communication, teamwork and learning ability", Importance: 0.85, Locked: true},
		},
		LockedAt: &now,
	}
}

func TestAnalyzeRequiresLockedDimensions(t *testing.T) {
	svc := NewService(NewMemoryRepo(), 0)
	unlocked := lockedAnalysis()
	unlocked.LockedAt = nil
	if _, err := svc.Analyze(context.Background(), "u1", "resume", unlocked); !errors.Is(err, ErrNotLocked) {
		t.Fatalf("expected ErrNotLocked, got %v", err)
	}
	if _, err := svc.Analyze(context.Background(), "u1", "  ", lockedAnalysis()); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAnalyzeStoresResult(t *testing.T) {
	svc := NewService(NewMemoryRepo(), 0.3)
	ctx := context.Background()
	res, err := svc.Analyze(ctx, "u1", "Good teamwork and learning ability.", lockedAnalysis())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Items) != 1 || res.Items[0].DimensionID != "dim-technical-skill" || res.Items[0].Severity != SeverityHigh {
		t.Fatalf("expected only the technical gap, got %+v", res.Items)
	}
	if len(res.Suggestions) != 1 || res.Suggestions[0].Priority != 5 {
		t.Fatalf("unexpected suggestions: %+v", res.Suggestions)
	}

	got, err := svc.Get(ctx, "u1", res.ID)
	if err != nil || got.ID != res.ID {
		t.Fatalf("Get: %v", err)
	}
	if _, err := svc.Get(ctx, "u2", res.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other user, got %v", err)
	}
}

func TestZeroThresholdReportsNoGaps(t *testing.T) {
	svc := NewService(NewMemoryRepo(), 0)
	res, err := svc.Analyze(context.Background(), "u1", "Painter and decorator.", lockedAnalysis())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Items) != 0 || len(res.Suggestions) != 0 {
		t.Fatalf("threshold 0 should cover every dimension, got %+v", res.Items)
	}
}
