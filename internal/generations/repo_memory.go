package generations

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	runs map[string]Run
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{runs: make(map[string]Run)}
}

func (r *MemoryRepo) Create(ctx context.Context, run Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.runs {
		if existing.UserID == run.UserID && IsActive(existing.Stage) {
			return ErrActiveRun
		}
	}
	r.runs[run.ID] = run
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, runID string) (Run, error) {
	if err := ctx.Err(); err != nil {
		return Run{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[runID]
	if !ok {
		return Run{}, ErrNotFound
	}
	return run, nil
}

func (r *MemoryRepo) UpdateStage(ctx context.Context, runID, stage string, progress int, startedAt *time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return ErrNotFound
	}
	if IsTerminal(run.Stage) {
		return ErrNotCancellable
	}
	run.Stage = stage
	if progress > run.Progress {
		run.Progress = progress
	}
	if startedAt != nil && run.StartedAt == nil {
		run.StartedAt = startedAt
	}
	r.runs[runID] = run
	return nil
}

func (r *MemoryRepo) Complete(ctx context.Context, runID string, result *GeneratedResume, completedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return ErrNotFound
	}
	if IsTerminal(run.Stage) {
		return ErrNotCancellable
	}
	run.Stage = StageComplete
	run.Progress = 100
	run.Result = result
	run.CompletedAt = &completedAt
	r.runs[runID] = run
	return nil
}

func (r *MemoryRepo) Fail(ctx context.Context, runID, errorCode, errorMessage string, completedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return ErrNotFound
	}
	if IsTerminal(run.Stage) {
		return ErrNotCancellable
	}
	run.Stage = StageFailed
	run.Result = nil
	run.ErrorCode = errorCode
	run.ErrorMessage = errorMessage
	run.CompletedAt = &completedAt
	r.runs[runID] = run
	return nil
}

func (r *MemoryRepo) Cancel(ctx context.Context, runID string, completedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return ErrNotFound
	}
	if IsTerminal(run.Stage) {
		return ErrNotCancellable
	}
	run.Stage = StageCancelled
	run.Result = nil
	run.CompletedAt = &completedAt
	r.runs[runID] = run
	return nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 20
	}

	r.mu.RLock()
	var runs []Run
	for _, run := range r.runs {
		if run.UserID == userID {
			runs = append(runs, run)
		}
	}
	r.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	if offset >= len(runs) {
		return []Run{}, nil
	}
	end := offset + limit
	if end > len(runs) {
		end = len(runs)
	}
	return runs[offset:end], nil
}

var _ Repo = (*MemoryRepo)(nil)
