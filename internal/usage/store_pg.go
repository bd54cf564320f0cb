package usage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGStore implements Store using Postgres.
type PGStore struct {
	DB *sql.DB
}

const periodColumns = `user_id, plan, usage_limit, used, resets_at`

func scanPeriod(row interface{ Scan(dest ...any) error }) (Period, error) {
	var p Period
	err := row.Scan(&p.UserID, &p.Plan, &p.Limit, &p.Used, &p.ResetsAt)
	return p, err
}

// ensureCurrent creates the row if missing and rolls an expired window over.
func (s *PGStore) ensureCurrent(ctx context.Context, userID string, d Defaults, now time.Time) error {
	const insert = `
INSERT INTO usage_periods (user_id, plan, usage_limit, used, resets_at)
VALUES ($1, $2, $3, 0, $4)
ON CONFLICT (user_id) DO NOTHING`
	if _, err := s.DB.ExecContext(ctx, insert, userID, d.Plan, d.Limit, now.Add(d.Window)); err != nil {
		return err
	}

	const rollover = `
UPDATE usage_periods
SET used = 0, resets_at = $2
WHERE user_id = $1 AND resets_at <= $3`
	_, err := s.DB.ExecContext(ctx, rollover, userID, now.Add(d.Window), now)
	return err
}

func (s *PGStore) Current(ctx context.Context, userID string, d Defaults, now time.Time) (Period, error) {
	if err := s.ensureCurrent(ctx, userID, d, now); err != nil {
		return Period{}, err
	}
	const query = `
SELECT ` + periodColumns + `
FROM usage_periods
WHERE user_id = $1`
	return scanPeriod(s.DB.QueryRowContext(ctx, query, userID))
}

func (s *PGStore) Consume(ctx context.Context, userID string, n int, d Defaults, now time.Time) (Period, error) {
	if err := s.ensureCurrent(ctx, userID, d, now); err != nil {
		return Period{}, err
	}
	const consume = `
UPDATE usage_periods
SET used = used + $2
WHERE user_id = $1 AND used + $2 <= usage_limit
RETURNING ` + periodColumns
	period, err := scanPeriod(s.DB.QueryRowContext(ctx, consume, userID, n))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Row exists but has no budget left.
			period, getErr := s.Current(ctx, userID, d, now)
			if getErr != nil {
				return Period{}, getErr
			}
			return period, ErrLimitReached
		}
		return Period{}, err
	}
	return period, nil
}

func (s *PGStore) Reset(ctx context.Context, userID string, d Defaults, now time.Time) (Period, error) {
	const reset = `
INSERT INTO usage_periods (user_id, plan, usage_limit, used, resets_at)
VALUES ($1, $2, $3, 0, $4)
ON CONFLICT (user_id) DO UPDATE
SET used = 0, resets_at = EXCLUDED.resets_at
RETURNING ` + periodColumns
	return scanPeriod(s.DB.QueryRowContext(ctx, reset, userID, d.Plan, d.Limit, now.Add(d.Window)))
}

var _ Store = (*PGStore)(nil)
