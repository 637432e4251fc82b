package journey

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, s Session) error {
	ctxJSON, history, err := encodeSession(s)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO sessions (id, user_id, stage, context, history, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = r.DB.ExecContext(ctx, query, s.ID, s.UserID, string(s.Stage), ctxJSON, history, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *PGRepo) Get(ctx context.Context, id string) (Session, error) {
	const query = `
SELECT id, user_id, stage, context, history, created_at, updated_at, version
FROM sessions
WHERE id = $1`
	s, err := scanSession(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	return s, err
}

func (r *PGRepo) Update(ctx context.Context, s Session) error {
	ctxJSON, history, err := encodeSession(s)
	if err != nil {
		return err
	}
	const query = `
UPDATE sessions
SET stage = $2, context = $3, history = $4, updated_at = $5, version = version + 1
WHERE id = $1 AND version = $6`
	res, err := r.DB.ExecContext(ctx, query, s.ID, string(s.Stage), ctxJSON, history, s.UpdatedAt, s.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return r.missingOrConflict(ctx, s.ID)
	}
	return nil
}

func (r *PGRepo) missingOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
SELECT id, user_id, stage, context, history, created_at, updated_at, version
FROM sessions
WHERE user_id = $1
ORDER BY updated_at DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func encodeSession(s Session) ([]byte, []byte, error) {
	ctxJSON, err := json.Marshal(s.Context)
	if err != nil {
		return nil, nil, fmt.Errorf("encode context: %w", err)
	}
	history, err := json.Marshal(s.History)
	if err != nil {
		return nil, nil, fmt.Errorf("encode history: %w", err)
	}
	return ctxJSON, history, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var s Session
	var stage string
	var ctxJSON, history []byte
	if err := row.Scan(&s.ID, &s.UserID, &stage, &ctxJSON, &history, &s.CreatedAt, &s.UpdatedAt, &s.Version); err != nil {
		return Session{}, err
	}
	s.Stage = Stage(stage)
	if len(ctxJSON) > 0 {
		if err := json.Unmarshal(ctxJSON, &s.Context); err != nil {
			return Session{}, fmt.Errorf("decode context: %w", err)
		}
	}
	if s.Context == nil {
		s.Context = map[string]json.RawMessage{}
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &s.History); err != nil {
			return Session{}, fmt.Errorf("decode history: %w", err)
		}
	}
	return s, nil
}
