package activity

import (
	"context"
	"time"
)

// ActivityRepo persists activity events.
type ActivityRepo interface {
	Create(ctx context.Context, ev Event) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Event, error)
	CountByType(ctx context.Context, userID string) (map[string]int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
