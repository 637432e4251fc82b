package commonality

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres. Dimensions are stored as one jsonb
// document so a lock rewrites them with the lock stamp in a single statement.
// Updates are conditional on the row version and on the analysis being
// unlocked, so writers in other processes cannot undo a lock.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, a Analysis) error {
	jdIDs, err := json.Marshal(a.JDIDs)
	if err != nil {
		return err
	}
	dims, err := json.Marshal(a.Dimensions)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO commonality_analyses (id, user_id, jd_ids, dimensions, created_at, locked_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = r.DB.ExecContext(ctx, query, a.ID, a.UserID, jdIDs, dims, a.CreatedAt, nullTime(a))
	return err
}

func (r *PGRepo) Get(ctx context.Context, id string) (Analysis, error) {
	const query = `
SELECT id, user_id, jd_ids, dimensions, created_at, locked_at, version
FROM commonality_analyses
WHERE id = $1`
	a, err := scanAnalysis(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	return a, err
}

func (r *PGRepo) Update(ctx context.Context, a Analysis) error {
	dims, err := json.Marshal(a.Dimensions)
	if err != nil {
		return err
	}
	const query = `
UPDATE commonality_analyses
SET dimensions = $2, locked_at = $3, version = version + 1
WHERE id = $1 AND version = $4 AND locked_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, a.ID, dims, nullTime(a), a.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return r.rejected(ctx, a.ID)
	}
	return nil
}

// rejected explains why a conditional update touched no row.
func (r *PGRepo) rejected(ctx context.Context, id string) error {
	var locked bool
	err := r.DB.QueryRowContext(ctx, `SELECT locked_at IS NOT NULL FROM commonality_analyses WHERE id = $1`, id).Scan(&locked)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case err != nil:
		return err
	case locked:
		return ErrLocked
	}
	return ErrConflict
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
SELECT id, user_id, jd_ids, dimensions, created_at, locked_at, version
FROM commonality_analyses
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (Analysis, error) {
	var a Analysis
	var jdIDs, dims []byte
	var lockedAt sql.NullTime
	if err := row.Scan(&a.ID, &a.UserID, &jdIDs, &dims, &a.CreatedAt, &lockedAt, &a.Version); err != nil {
		return Analysis{}, err
	}
	if err := json.Unmarshal(jdIDs, &a.JDIDs); err != nil {
		return Analysis{}, fmt.Errorf("decode jd ids: %w", err)
	}
	if err := json.Unmarshal(dims, &a.Dimensions); err != nil {
		return Analysis{}, fmt.Errorf("decode dimensions: %w", err)
	}
	if lockedAt.Valid {
		t := lockedAt.Time
		a.LockedAt = &t
	}
	return a, nil
}

func nullTime(a Analysis) sql.NullTime {
	if a.LockedAt == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *a.LockedAt, Valid: true}
}
