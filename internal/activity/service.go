package activity

import (
	"context"
	"time"

	"github.com/google/uuid"

	"resumegen-backend/internal/shared/telemetry"
)

// Service records and reads activity events.
type Service struct {
	Repo ActivityRepo
}

// NewService constructs a Service.
func NewService(repo ActivityRepo) *Service {
	return &Service{Repo: repo}
}

// Record appends an event. Failures are logged and swallowed so the calling
// pipeline never breaks on bookkeeping.
func (s *Service) Record(ctx context.Context, userID, eventType, generationID, documentID, detail string) {
	ev := Event{
		ID:           uuid.NewString(),
		UserID:       userID,
		EventType:    eventType,
		GenerationID: generationID,
		DocumentID:   documentID,
		Detail:       detail,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.Repo.Create(context.WithoutCancel(ctx), ev); err != nil {
		telemetry.Warn("activity.record_failed", map[string]any{
			"user_id":    userID,
			"event_type": eventType,
			"error":      err.Error(),
		})
	}
}

// List returns a user's events, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Event, error) {
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// Stats summarizes a user's generation outcomes.
func (s *Service) Stats(ctx context.Context, userID string) (Stats, error) {
	totals, err := s.Repo.CountByType(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Totals: totals}
	completed := totals[TypeGenerationCompleted]
	failed := totals[TypeGenerationFailed]
	if completed+failed > 0 {
		stats.SuccessRate = float64(completed) / float64(completed+failed)
	}
	return stats, nil
}
