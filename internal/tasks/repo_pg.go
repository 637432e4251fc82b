package tasks

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres. Status changes are conditional
// updates so concurrent workers cannot claim or finish a task twice.
type PGRepo struct {
	DB *sql.DB
}

const taskColumns = `id, user_id, kind, status, progress, payload, result, error, error_code, created_at, updated_at, started_at, completed_at`

func (r *PGRepo) Create(ctx context.Context, t Task) error {
	const query = `
INSERT INTO tasks (id, user_id, kind, status, payload, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.DB.ExecContext(ctx, query, t.ID, t.UserID, t.Kind, string(t.Status), nullJSON(t.Payload), t.CreatedAt, t.UpdatedAt)
	return err
}

func (r *PGRepo) Get(ctx context.Context, id string) (Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	t, err := scanTask(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	return t, err
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string, f Filter) ([]Task, error) {
	query := `SELECT ` + taskColumns + `
FROM tasks
WHERE user_id = $1 AND ($2 = '' OR kind = $2) AND ($3 = '' OR status = $3)
ORDER BY created_at DESC
LIMIT $4`
	rows, err := r.DB.QueryContext(ctx, query, userID, f.Kind, string(f.Status), f.limit())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PGRepo) Claim(ctx context.Context, id string, at, staleBefore time.Time) (Task, bool, error) {
	query := `
UPDATE tasks
SET status = 'running', started_at = $2, updated_at = $2
WHERE id = $1 AND (status = 'queued' OR (status = 'running' AND started_at < $3))
RETURNING ` + taskColumns
	t, err := scanTask(r.DB.QueryRowContext(ctx, query, id, at, staleBefore))
	if errors.Is(err, sql.ErrNoRows) {
		current, getErr := r.Get(ctx, id)
		if getErr != nil {
			return Task{}, false, getErr
		}
		return current, false, nil
	}
	if err != nil {
		return Task{}, false, err
	}
	return t, true, nil
}

func (r *PGRepo) SetProgress(ctx context.Context, id string, progress int, at time.Time) error {
	const query = `
UPDATE tasks
SET progress = $2, updated_at = $3
WHERE id = $1 AND status = 'running'`
	res, err := r.DB.ExecContext(ctx, query, id, progress, at)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		current, getErr := r.Get(ctx, id)
		if getErr != nil {
			return getErr
		}
		if current.Status.Terminal() {
			return ErrTerminal
		}
		return ErrNotRunning
	}
	return nil
}

func (r *PGRepo) Finish(ctx context.Context, id string, out Outcome) (Task, error) {
	if !out.Status.Terminal() {
		return Task{}, ErrValidation
	}
	query := `
UPDATE tasks
SET status = $2, result = $3, error = $4, error_code = $5, completed_at = $6, updated_at = $6
WHERE id = $1 AND (status = 'running' OR (status = 'queued' AND $2::text = 'error'))
RETURNING ` + taskColumns
	t, err := scanTask(r.DB.QueryRowContext(ctx, query, id, string(out.Status), nullJSON(out.Result), nullString(out.Error), nullString(out.ErrorCode), out.At))
	if errors.Is(err, sql.ErrNoRows) {
		current, getErr := r.Get(ctx, id)
		if getErr != nil {
			return Task{}, getErr
		}
		return current, ErrTerminal
	}
	return t, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (Task, error) {
	var t Task
	var status string
	var progress sql.NullInt64
	var payload, result []byte
	var errMsg, errCode sql.NullString
	var startedAt, completedAt sql.NullTime
	if err := row.Scan(&t.ID, &t.UserID, &t.Kind, &status, &progress, &payload, &result, &errMsg, &errCode,
		&t.CreatedAt, &t.UpdatedAt, &startedAt, &completedAt); err != nil {
		return Task{}, err
	}
	t.Status = Status(status)
	if progress.Valid {
		p := int(progress.Int64)
		t.Progress = &p
	}
	t.Payload = payload
	t.Result = result
	if errMsg.Valid {
		t.Error = &errMsg.String
	}
	if errCode.Valid {
		t.ErrorCode = &errCode.String
	}
	if startedAt.Valid {
		t.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return t, nil
}

func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
