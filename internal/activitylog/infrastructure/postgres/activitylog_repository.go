package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	activitylog "engine-monitor/internal/activitylog/domain"
)

// Repository is a Postgres repository for the activity feed.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes an entry, filling defaults for id and timestamp.
func (r *Repository) Insert(ctx context.Context, entry activitylog.Entry) error {
	if r == nil || r.db == nil {
		return errors.New("activity log repo: nil db")
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	if entry.ID == "" {
		entry.ID = activitylog.NewID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO activity_log (id, actor, action, detail, ip, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.Actor, entry.Action, entry.Detail, entry.IP, entry.CreatedAt.UTC())
	return err
}

// List returns entries newest first, optionally filtered by a search
// term over actor, action and detail.
func (r *Repository) List(ctx context.Context, page, limit int, search string) ([]activitylog.Entry, int64, error) {
	if r == nil || r.db == nil {
		return nil, 0, errors.New("activity log repo: nil db")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	where := ""
	args := []any{}
	if search != "" {
		where = `WHERE actor ILIKE $1 OR action ILIKE $1 OR detail ILIKE $1`
		args = append(args, "%"+search+"%")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity_log `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	query := `
SELECT id, actor, action, detail, ip, created_at
FROM activity_log ` + where + `
ORDER BY created_at DESC`
	if search != "" {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	} else {
		query += ` LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []activitylog.Entry
	for rows.Next() {
		var entry activitylog.Entry
		var detail, ip sql.NullString
		if err := rows.Scan(&entry.ID, &entry.Actor, &entry.Action, &detail, &ip, &entry.CreatedAt); err != nil {
			return nil, 0, err
		}
		entry.Detail = detail.String
		entry.IP = ip.String
		entry.CreatedAt = entry.CreatedAt.UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
