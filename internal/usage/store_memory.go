package usage

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	mu      sync.Mutex
	periods map[string]Period
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{periods: make(map[string]Period)}
}

func (s *MemoryStore) Current(ctx context.Context, userID string, d Defaults, now time.Time) (Period, error) {
	if err := ctx.Err(); err != nil {
		return Period{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked(userID, d, now), nil
}

func (s *MemoryStore) Consume(ctx context.Context, userID string, n int, d Defaults, now time.Time) (Period, error) {
	if err := ctx.Err(); err != nil {
		return Period{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	period := s.currentLocked(userID, d, now)
	if period.Used+n > period.Limit {
		return period, ErrLimitReached
	}
	period.Used += n
	s.periods[userID] = period
	return period, nil
}

func (s *MemoryStore) Reset(ctx context.Context, userID string, d Defaults, now time.Time) (Period, error) {
	if err := ctx.Err(); err != nil {
		return Period{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	period := freshPeriod(userID, d, now)
	s.periods[userID] = period
	return period, nil
}

func (s *MemoryStore) currentLocked(userID string, d Defaults, now time.Time) Period {
	period, ok := s.periods[userID]
	if !ok || period.Expired(now) {
		period = freshPeriod(userID, d, now)
		s.periods[userID] = period
	}
	return period
}

func freshPeriod(userID string, d Defaults, now time.Time) Period {
	return Period{
		UserID:   userID,
		Plan:     d.Plan,
		Limit:    d.Limit,
		Used:     0,
		ResetsAt: now.Add(d.Window),
	}
}

var _ Store = (*MemoryStore)(nil)
