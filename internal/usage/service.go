package usage

import (
	"context"
	"time"
)

// Service enforces per-user generation quotas.
type Service struct {
	Store    Store
	Defaults Defaults

	now func() time.Time
}

// NewService constructs a Service with the default starter plan.
func NewService(store Store) *Service {
	return &Service{
		Store: store,
		Defaults: Defaults{
			Plan:   DefaultPlan,
			Limit:  DefaultLimit,
			Window: DefaultPeriod,
		},
		now: time.Now,
	}
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

// Current returns the user's usage period, creating or rolling it over as
// needed.
func (s *Service) Current(ctx context.Context, userID string) (Period, error) {
	return s.Store.Current(ctx, userID, s.Defaults, s.clock())
}

// CanConsume reports whether the user still has budget for n generations.
func (s *Service) CanConsume(ctx context.Context, userID string, n int) (bool, Period, error) {
	period, err := s.Store.Current(ctx, userID, s.Defaults, s.clock())
	if err != nil {
		return false, Period{}, err
	}
	return period.Used+n <= period.Limit, period, nil
}

// Consume spends n generations from the user's budget. Returns
// ErrLimitReached when the budget would be exceeded.
func (s *Service) Consume(ctx context.Context, userID string, n int) (Period, error) {
	return s.Store.Consume(ctx, userID, n, s.Defaults, s.clock())
}

// Reset starts a fresh window for the user. Development helper.
func (s *Service) Reset(ctx context.Context, userID string) (Period, error) {
	return s.Store.Reset(ctx, userID, s.Defaults, s.clock())
}
