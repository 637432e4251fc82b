package resumes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Azee177/jianli/internal/extract"
	"github.com/Azee177/jianli/internal/shared/storage/object"
)

const maxResumeRunes = 20000

// Service handles resume intake and parsing.
type Service struct {
	Repo   Repo
	Store  object.ObjectStore
	Parser Parser
	Now    func() time.Time
	NewID  func() string
}

func NewService(repo Repo, store object.ObjectStore, parser Parser) *Service {
	return &Service{Repo: repo, Store: store, Parser: parser}
}

// Upload stores the file, extracts its text and records the resume.
func (s *Service) Upload(ctx context.Context, userID, fileName string, r io.Reader) (Resume, error) {
	if s.Store == nil {
		return Resume{}, fmt.Errorf("%w: file uploads are not configured", ErrValidation)
	}
	if strings.TrimSpace(fileName) == "" {
		return Resume{}, fmt.Errorf("%w: file name is required", ErrValidation)
	}
	key, _, mimeType, err := s.Store.Save(ctx, userID, fileName, r)
	if errors.Is(err, object.ErrInvalidName) {
		return Resume{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err != nil {
		return Resume{}, fmt.Errorf("storage save: %w", err)
	}
	text, err := extract.ExtractText(ctx, s.Store, key, mimeType, fileName)
	if err != nil {
		if extract.IsUnsupported(err) {
			return Resume{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return Resume{}, err
	}
	return s.create(ctx, Resume{UserID: userID, FileName: fileName, MimeType: mimeType, StorageKey: key, Text: text})
}

// CreateFromText records a pasted resume.
func (s *Service) CreateFromText(ctx context.Context, userID, text string) (Resume, error) {
	return s.create(ctx, Resume{UserID: userID, MimeType: "text/plain", Text: text})
}

func (s *Service) create(ctx context.Context, res Resume) (Resume, error) {
	res.Text = strings.TrimSpace(res.Text)
	if res.Text == "" {
		return Resume{}, fmt.Errorf("%w: resume text is empty", ErrValidation)
	}
	if utf8.RuneCountInString(res.Text) > maxResumeRunes {
		return Resume{}, fmt.Errorf("%w: resume text exceeds %d characters", ErrValidation, maxResumeRunes)
	}
	res.ID = s.newID()
	res.CreatedAt = s.now()
	if err := s.Repo.Create(ctx, res); err != nil {
		return Resume{}, fmt.Errorf("storage create resume: %w", err)
	}
	return res, nil
}

// Parse structures a stored resume and saves the result.
func (s *Service) Parse(ctx context.Context, userID, id string) (Resume, error) {
	res, err := s.Get(ctx, userID, id)
	if err != nil {
		return Resume{}, err
	}
	parsed, parser := s.Parser.Parse(ctx, res.Text)
	at := s.now()
	if err := s.Repo.SetParsed(ctx, id, parsed, parser, at); err != nil {
		return Resume{}, fmt.Errorf("storage set parsed: %w", err)
	}
	res.Parsed = &parsed
	res.Parser = parser
	res.ParsedAt = &at
	return res, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (Resume, error) {
	res, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Resume{}, err
	}
	if res.UserID != userID {
		return Resume{}, ErrNotFound
	}
	return res, nil
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Resume, error) {
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}
