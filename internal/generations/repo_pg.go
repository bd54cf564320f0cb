package generations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// PGRepo implements Repo using Postgres. A partial unique index on
// (user_id) over active stages backs the single-active-run invariant.
type PGRepo struct {
	DB *sql.DB
}

const activeStagesSQL = `('queued', 'parsing', 'analyzing', 'optimizing', 'generating')`

func (r *PGRepo) Create(ctx context.Context, run Run) error {
	const query = `
INSERT INTO generation_runs (id, user_id, document_id, job_description, job_description_url, tone, stage, progress, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`

	var jobURL sql.NullString
	if run.JobDescriptionURL != "" {
		jobURL = sql.NullString{String: run.JobDescriptionURL, Valid: true}
	}

	_, err := r.DB.ExecContext(ctx, query,
		run.ID,
		run.UserID,
		run.DocumentID,
		run.JobDescription,
		jobURL,
		string(run.Tone),
		run.Stage,
		run.Progress,
		run.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrActiveRun
		}
		return err
	}
	return nil
}

const runColumns = `id, user_id, document_id, job_description, job_description_url, tone, stage, progress, result, error_code, error_message, created_at, started_at, completed_at`

func scanRun(row interface{ Scan(dest ...any) error }) (Run, error) {
	var run Run
	var jobURL, errorCode, errorMessage sql.NullString
	var result []byte
	var tone string
	var startedAt, completedAt sql.NullTime
	err := row.Scan(
		&run.ID,
		&run.UserID,
		&run.DocumentID,
		&run.JobDescription,
		&jobURL,
		&tone,
		&run.Stage,
		&run.Progress,
		&result,
		&errorCode,
		&errorMessage,
		&run.CreatedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return Run{}, err
	}
	run.Tone = toneFromString(tone)
	if jobURL.Valid {
		run.JobDescriptionURL = jobURL.String
	}
	if errorCode.Valid {
		run.ErrorCode = errorCode.String
	}
	if errorMessage.Valid {
		run.ErrorMessage = errorMessage.String
	}
	if startedAt.Valid {
		run.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	if len(result) > 0 {
		var parsed GeneratedResume
		if err := json.Unmarshal(result, &parsed); err == nil {
			run.Result = &parsed
		}
	}
	return run, nil
}

func (r *PGRepo) GetByID(ctx context.Context, runID string) (Run, error) {
	const query = `
SELECT ` + runColumns + `
FROM generation_runs
WHERE id = $1
LIMIT 1`
	run, err := scanRun(r.DB.QueryRowContext(ctx, query, runID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrNotFound
		}
		return Run{}, err
	}
	return run, nil
}

func (r *PGRepo) UpdateStage(ctx context.Context, runID, stage string, progress int, startedAt *time.Time) error {
	const query = `
UPDATE generation_runs
SET stage = $1,
    progress = GREATEST(progress, $2),
    started_at = COALESCE(started_at, $3),
    updated_at = now()
WHERE id = $4 AND stage IN ` + activeStagesSQL

	var started sql.NullTime
	if startedAt != nil {
		started = sql.NullTime{Time: *startedAt, Valid: true}
	}
	res, err := r.DB.ExecContext(ctx, query, stage, progress, started, runID)
	if err != nil {
		return err
	}
	return r.checkUpdated(ctx, res, runID)
}

func (r *PGRepo) Complete(ctx context.Context, runID string, result *GeneratedResume, completedAt time.Time) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	const query = `
UPDATE generation_runs
SET stage = 'complete', progress = 100, result = $1, completed_at = $2, updated_at = now()
WHERE id = $3 AND stage IN ` + activeStagesSQL

	res, err := r.DB.ExecContext(ctx, query, payload, completedAt, runID)
	if err != nil {
		return err
	}
	return r.checkUpdated(ctx, res, runID)
}

func (r *PGRepo) Fail(ctx context.Context, runID, errorCode, errorMessage string, completedAt time.Time) error {
	const query = `
UPDATE generation_runs
SET stage = 'failed', result = NULL, error_code = $1, error_message = $2, completed_at = $3, updated_at = now()
WHERE id = $4 AND stage IN ` + activeStagesSQL

	res, err := r.DB.ExecContext(ctx, query, errorCode, errorMessage, completedAt, runID)
	if err != nil {
		return err
	}
	return r.checkUpdated(ctx, res, runID)
}

func (r *PGRepo) Cancel(ctx context.Context, runID string, completedAt time.Time) error {
	const query = `
UPDATE generation_runs
SET stage = 'cancelled', result = NULL, completed_at = $1, updated_at = now()
WHERE id = $2 AND stage IN ` + activeStagesSQL

	res, err := r.DB.ExecContext(ctx, query, completedAt, runID)
	if err != nil {
		return err
	}
	return r.checkUpdated(ctx, res, runID)
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Run, error) {
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
SELECT ` + runColumns + `
FROM generation_runs
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// checkUpdated distinguishes a missing run from one already in a terminal stage.
func (r *PGRepo) checkUpdated(ctx context.Context, res sql.Result, runID string) error {
	updated, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if updated > 0 {
		return nil
	}
	var stage string
	err = r.DB.QueryRowContext(ctx, `SELECT stage FROM generation_runs WHERE id = $1`, runID).Scan(&stage)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrNotCancellable
}

var _ Repo = (*PGRepo)(nil)
