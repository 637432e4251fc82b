package resumes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const resumeColumns = `id, user_id, file_name, mime_type, storage_key, text, parsed, parser, created_at, parsed_at`

func (r *PGRepo) Create(ctx context.Context, res Resume) error {
	const query = `
INSERT INTO resumes (id, user_id, file_name, mime_type, storage_key, text, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.DB.ExecContext(ctx, query, res.ID, res.UserID, res.FileName, res.MimeType, res.StorageKey, res.Text, res.CreatedAt)
	return err
}

func (r *PGRepo) Get(ctx context.Context, id string) (Resume, error) {
	query := `SELECT ` + resumeColumns + ` FROM resumes WHERE id = $1`
	res, err := scanResume(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Resume{}, ErrNotFound
	}
	return res, err
}

func (r *PGRepo) SetParsed(ctx context.Context, id string, parsed Parsed, parser string, at time.Time) error {
	raw, err := json.Marshal(parsed)
	if err != nil {
		return fmt.Errorf("encode parsed: %w", err)
	}
	const query = `UPDATE resumes SET parsed = $2, parser = $3, parsed_at = $4 WHERE id = $1`
	result, err := r.DB.ExecContext(ctx, query, id, raw, parser, at)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Resume, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + resumeColumns + `
FROM resumes
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Resume{}
	for rows.Next() {
		res, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResume(row rowScanner) (Resume, error) {
	var res Resume
	var fileName, mimeType, storageKey, parser sql.NullString
	var parsed []byte
	var parsedAt sql.NullTime
	if err := row.Scan(&res.ID, &res.UserID, &fileName, &mimeType, &storageKey, &res.Text, &parsed, &parser, &res.CreatedAt, &parsedAt); err != nil {
		return Resume{}, err
	}
	res.FileName = fileName.String
	res.MimeType = mimeType.String
	res.StorageKey = storageKey.String
	res.Parser = parser.String
	if len(parsed) > 0 {
		var p Parsed
		if err := json.Unmarshal(parsed, &p); err != nil {
			return Resume{}, fmt.Errorf("decode parsed: %w", err)
		}
		res.Parsed = &p
	}
	if parsedAt.Valid {
		res.ParsedAt = &parsedAt.Time
	}
	return res, nil
}
