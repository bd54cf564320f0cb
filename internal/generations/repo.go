package generations

import (
	"context"
	"time"
)

// Repo defines persistence operations for generation runs.
type Repo interface {
	// Create inserts a queued run. Returns ErrActiveRun when the user
	// already has a queued or in-progress run.
	Create(ctx context.Context, run Run) error

	GetByID(ctx context.Context, runID string) (Run, error)

	// UpdateStage advances an active run to the given stage and progress.
	// Progress never decreases; terminal runs are left untouched and the
	// update reports ErrNotCancellable.
	UpdateStage(ctx context.Context, runID, stage string, progress int, startedAt *time.Time) error

	// Complete attaches the immutable result and moves the run to complete.
	Complete(ctx context.Context, runID string, result *GeneratedResume, completedAt time.Time) error

	// Fail records the error classification. Failed runs keep no partial result.
	Fail(ctx context.Context, runID, errorCode, errorMessage string, completedAt time.Time) error

	// Cancel moves an active run to cancelled. Returns ErrNotCancellable
	// when the run is already terminal.
	Cancel(ctx context.Context, runID string, completedAt time.Time) error

	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Run, error)
}
