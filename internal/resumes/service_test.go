package resumes

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Azee177/jianli/internal/llm"
	"github.com/Azee177/jianli/internal/shared/storage/object/local"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(NewMemoryRepo(), local.New(t.TempDir()), Parser{Client: llm.PlaceholderClient{}})
}

func TestUploadExtractsAndParse(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	res, err := svc.Upload(ctx, "u1", "cv.txt", strings.NewReader(englishResume))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.Text == "" || res.StorageKey == "" || res.Parsed != nil {
		t.Fatalf("unexpected resume %+v", res)
	}

	parsed, err := svc.Parse(ctx, "u1", res.ID)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Parser != ParserRules || parsed.Parsed == nil || parsed.ParsedAt == nil {
		t.Fatalf("unexpected parsed resume %+v", parsed)
	}
	stored, _ := svc.Get(ctx, "u1", res.ID)
	if stored.Parsed == nil || stored.Parsed.Contacts.Email != "jane@example.com" {
		t.Fatalf("parse result not stored: %+v", stored)
	}
}

func TestUploadRejectsUnsupportedFormat(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Upload(context.Background(), "u1", "photo.png", strings.NewReader("\x89PNG\r\n\x1a\n0000"))
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestCreateFromTextValidates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if _, err := svc.CreateFromText(ctx, "u1", "   "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty text, got %v", err)
	}
	if _, err := svc.CreateFromText(ctx, "u1", strings.Repeat("字", maxResumeRunes+1)); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for long text, got %v", err)
	}
}

func TestResumeScopedToOwner(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	res, err := svc.CreateFromText(ctx, "u1", englishResume)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Get(ctx, "u2", res.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Parse(ctx, "u2", res.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on parse, got %v", err)
	}
}
