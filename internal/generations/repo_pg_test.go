package generations

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func newPGRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGCreateMapsUniqueViolation(t *testing.T) {
	repo, mock := newPGRepo(t)

	mock.ExpectExec(`INSERT INTO generation_runs`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_generation_runs_single_active"})

	err := repo.Create(context.Background(), Run{
		ID:             "run-1",
		UserID:         "u1",
		DocumentID:     "doc-1",
		JobDescription: "Go engineer",
		Stage:          StageQueued,
		CreatedAt:      time.Now().UTC(),
	})
	require.ErrorIs(t, err, ErrActiveRun)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGGetByIDNotFound(t *testing.T) {
	repo, mock := newPGRepo(t)

	mock.ExpectQuery(`SELECT .+ FROM generation_runs`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGGetByIDScansResult(t *testing.T) {
	repo, mock := newPGRepo(t)

	created := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	completed := created.Add(30 * time.Second)
	result := []byte(`{"name":"Jane Doe","skills":["Go"],"ats":{"score":82},"model":"mistral","method":"ai_optimization"}`)

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "document_id", "job_description", "job_description_url",
		"tone", "stage", "progress", "result", "error_code", "error_message",
		"created_at", "started_at", "completed_at",
	}).AddRow(
		"run-1", "u1", "doc-1", "Go engineer", nil,
		"professional", StageComplete, 100, result, nil, nil,
		created, created, completed,
	)
	mock.ExpectQuery(`SELECT .+ FROM generation_runs`).
		WithArgs("run-1").
		WillReturnRows(rows)

	run, err := repo.GetByID(context.Background(), "run-1")
	require.NoError(t, err)
	require.Equal(t, StageComplete, run.Stage)
	require.NotNil(t, run.Result)
	require.Equal(t, "Jane Doe", run.Result.Name)
	require.Equal(t, 82, run.Result.ATS.Score)
	require.NotNil(t, run.CompletedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGUpdateStageOnTerminalRun(t *testing.T) {
	repo, mock := newPGRepo(t)

	mock.ExpectExec(`UPDATE generation_runs`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT stage FROM generation_runs`).
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows([]string{"stage"}).AddRow(StageCancelled))

	err := repo.UpdateStage(context.Background(), "run-1", StageAnalyzing, 50, nil)
	require.ErrorIs(t, err, ErrNotCancellable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGCancelMissingRun(t *testing.T) {
	repo, mock := newPGRepo(t)

	mock.ExpectExec(`UPDATE generation_runs`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT stage FROM generation_runs`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"stage"}))

	err := repo.Cancel(context.Background(), "missing", time.Now().UTC())
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
