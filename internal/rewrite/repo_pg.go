package rewrite

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

func (p *PGRepo) Create(ctx context.Context, r Result) error {
	versions, err := json.Marshal(r.Versions)
	if err != nil {
		return err
	}
	factuality, err := json.Marshal(r.Factuality)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO rewrites (id, user_id, original, intent, company, versions, factuality, recommendation, generator, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = p.DB.ExecContext(ctx, query,
		r.ID,
		r.UserID,
		r.Original,
		string(r.Intent),
		sql.NullString{String: r.Company, Valid: r.Company != ""},
		versions,
		factuality,
		r.Recommendation,
		r.Generator,
		r.CreatedAt,
	)
	return err
}

const selectRewrite = `
SELECT id, user_id, original, intent, company, versions, factuality, recommendation, generator, created_at
FROM rewrites`

func (p *PGRepo) Get(ctx context.Context, id string) (Result, error) {
	r, err := scanResult(p.DB.QueryRowContext(ctx, selectRewrite+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Result{}, ErrNotFound
	}
	return r, err
}

func (p *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Result, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.DB.QueryContext(ctx, selectRewrite+` WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Result{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (Result, error) {
	var r Result
	var intent string
	var company sql.NullString
	var versions, factuality []byte
	if err := row.Scan(&r.ID, &r.UserID, &r.Original, &intent, &company, &versions, &factuality, &r.Recommendation, &r.Generator, &r.CreatedAt); err != nil {
		return Result{}, err
	}
	r.Intent = Intent(intent)
	r.Company = company.String
	if err := json.Unmarshal(versions, &r.Versions); err != nil {
		return Result{}, fmt.Errorf("decode versions: %w", err)
	}
	if err := json.Unmarshal(factuality, &r.Factuality); err != nil {
		return Result{}, fmt.Errorf("decode factuality: %w", err)
	}
	return r, nil
}
