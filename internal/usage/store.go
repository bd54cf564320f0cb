package usage

import (
	"context"
	"time"
)

// Defaults configures the plan applied when a user has no current period.
type Defaults struct {
	Plan   string
	Limit  int
	Window time.Duration
}

// Store persists per-user usage periods. Implementations handle window
// rollover atomically: an expired period is replaced by a fresh one based on
// the supplied defaults before any read or consume.
type Store interface {
	Current(ctx context.Context, userID string, d Defaults, now time.Time) (Period, error)
	Consume(ctx context.Context, userID string, n int, d Defaults, now time.Time) (Period, error)
	Reset(ctx context.Context, userID string, d Defaults, now time.Time) (Period, error)
}
