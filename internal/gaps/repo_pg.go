package gaps

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

func (r *PGRepo) Create(ctx context.Context, a Analysis) error {
	items, err := json.Marshal(a.Items)
	if err != nil {
		return err
	}
	suggestions, err := json.Marshal(a.Suggestions)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO gap_analyses (id, user_id, commonality_analysis_id, items, suggestions, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = r.DB.ExecContext(ctx, query, a.ID, a.UserID, a.CommonalityAnalysisID, items, suggestions, a.CreatedAt)
	return err
}

func (r *PGRepo) Get(ctx context.Context, id string) (Analysis, error) {
	const query = `
SELECT id, user_id, commonality_analysis_id, items, suggestions, created_at
FROM gap_analyses
WHERE id = $1`
	a, err := scanAnalysis(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	return a, err
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
SELECT id, user_id, commonality_analysis_id, items, suggestions, created_at
FROM gap_analyses
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
	var items, suggestions []byte
	if err := row.Scan(&a.ID, &a.UserID, &a.CommonalityAnalysisID, &items, &suggestions, &a.CreatedAt); err != nil {
		return Analysis{}, err
	}
	if err := json.Unmarshal(items, &a.Items); err != nil {
		return Analysis{}, fmt.Errorf("decode gap items: %w", err)
	}
	if len(suggestions) > 0 {
		if err := json.Unmarshal(suggestions, &a.Suggestions); err != nil {
			return Analysis{}, fmt.Errorf("decode suggestions: %w", err)
		}
	}
	return a, nil
}
