package activity

import (
	"context"
	"database/sql"
	"time"
)

// PGRepo implements ActivityRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, ev Event) error {
	const query = `
INSERT INTO activity_events (id, user_id, event_type, generation_id, document_id, detail, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	var generationID, documentID sql.NullString
	if ev.GenerationID != "" {
		generationID = sql.NullString{String: ev.GenerationID, Valid: true}
	}
	if ev.DocumentID != "" {
		documentID = sql.NullString{String: ev.DocumentID, Valid: true}
	}

	_, err := r.DB.ExecContext(ctx, query,
		ev.ID, ev.UserID, ev.EventType, generationID, documentID, ev.Detail, ev.CreatedAt)
	return err
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT id, user_id, event_type, generation_id, document_id, detail, created_at
FROM activity_events
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		var generationID, documentID sql.NullString
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.EventType, &generationID, &documentID, &ev.Detail, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if generationID.Valid {
			ev.GenerationID = generationID.String
		}
		if documentID.Valid {
			ev.DocumentID = documentID.String
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *PGRepo) CountByType(ctx context.Context, userID string) (map[string]int, error) {
	const query = `
SELECT event_type, COUNT(*)
FROM activity_events
WHERE user_id = $1
GROUP BY event_type`

	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[string]int)
	for rows.Next() {
		var eventType string
		var count int
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, err
		}
		totals[eventType] = count
	}
	return totals, rows.Err()
}

func (r *PGRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM activity_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var _ ActivityRepo = (*PGRepo)(nil)
