package audit

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed reads over audit_logs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns entries matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Entry, error) {
	query := `SELECT id, actor_id, action, entity, entity_id, meta, occurred_at FROM audit_logs WHERE 1=1`
	args := []any{}
	if filter.Entity != "" {
		args = append(args, filter.Entity)
		query += ` AND entity=$` + strconv.Itoa(len(args))
	}
	if filter.EntityID != "" {
		args = append(args, filter.EntityID)
		query += ` AND entity_id=$` + strconv.Itoa(len(args))
	}
	if filter.ActorID != 0 {
		args = append(args, filter.ActorID)
		query += ` AND actor_id=$` + strconv.Itoa(len(args))
	}
	if filter.Action != "" {
		args = append(args, filter.Action)
		query += ` AND action=$` + strconv.Itoa(len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += ` AND occurred_at >= $` + strconv.Itoa(len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += ` AND occurred_at < $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY occurred_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var meta []byte
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.Action, &entry.Entity, &entry.EntityID, &meta, &entry.OccurredAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &entry.Meta); err != nil {
				return nil, err
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
