package jds

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Azee177/jianli/internal/requirements"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const itemColumns = `id, user_id, company, title, location, text, url, requirements, source, source_name, fetched_at`

func (r *PGRepo) Put(ctx context.Context, item Item) error {
	reqs, err := json.Marshal(item.Requirements)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO jd_items (` + itemColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO NOTHING`
	_, err = r.DB.ExecContext(ctx, query,
		item.ID,
		item.UserID,
		item.Company,
		item.Title,
		item.Location,
		item.Text,
		nullString(item.URL),
		reqs,
		string(item.Tag),
		item.SourceName,
		item.FetchedAt,
	)
	return err
}

func (r *PGRepo) Get(ctx context.Context, id string) (Item, error) {
	query := `SELECT ` + itemColumns + ` FROM jd_items WHERE id = $1`
	it, err := scanItem(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	return it, err
}

func (r *PGRepo) GetMany(ctx context.Context, ids []string) ([]Item, error) {
	if len(ids) == 0 {
		return []Item{}, nil
	}
	query := `SELECT ` + itemColumns + ` FROM jd_items WHERE id = ANY($1)`
	rows, err := r.DB.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]Item, len(ids))
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		byID[it.ID] = it
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]Item, 0, len(ids))
	for _, id := range ids {
		it, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		out = append(out, it)
	}
	return out, nil
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Item, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + itemColumns + ` FROM jd_items WHERE user_id = $1 ORDER BY fetched_at DESC LIMIT $2 OFFSET $3`
	return r.queryItems(ctx, query, userID, limit, offset)
}

func (r *PGRepo) Search(ctx context.Context, userID string, f SearchFilter) ([]Item, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + itemColumns + ` FROM jd_items
WHERE user_id = $1
  AND ($2 = '' OR company ILIKE '%' || $2 || '%')
  AND ($3 = '' OR title ILIKE '%' || $3 || '%')
  AND ($4 = '' OR location ILIKE '%' || $4 || '%')
ORDER BY fetched_at DESC
LIMIT $5`
	return r.queryItems(ctx, query, userID,
		strings.TrimSpace(f.Company), strings.TrimSpace(f.Title), strings.TrimSpace(f.City), limit)
}

func (r *PGRepo) queryItems(ctx context.Context, query string, args ...any) ([]Item, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (Item, error) {
	var it Item
	var url sql.NullString
	var reqs []byte
	var tag string
	if err := row.Scan(
		&it.ID,
		&it.UserID,
		&it.Company,
		&it.Title,
		&it.Location,
		&it.Text,
		&url,
		&reqs,
		&tag,
		&it.SourceName,
		&it.FetchedAt,
	); err != nil {
		return Item{}, err
	}
	it.URL = url.String
	it.Tag = Tag(tag)
	it.Requirements = []requirements.Requirement{}
	if len(reqs) > 0 {
		if err := json.Unmarshal(reqs, &it.Requirements); err != nil {
			return Item{}, fmt.Errorf("decode requirements: %w", err)
		}
	}
	return it, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
