package usage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestService(now time.Time) (*Service, *time.Time) {
	clock := now
	svc := NewService(NewMemoryStore())
	svc.now = func() time.Time { return clock }
	return svc, &clock
}

func TestConsumeWithinLimit(t *testing.T) {
	svc, _ := newTestService(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for i := 0; i < DefaultLimit; i++ {
		if _, err := svc.Consume(ctx, "u1", 1); err != nil {
			t.Fatalf("consume %d: %v", i+1, err)
		}
	}

	ok, period, err := svc.CanConsume(ctx, "u1", 1)
	if err != nil {
		t.Fatalf("CanConsume: %v", err)
	}
	if ok {
		t.Fatal("expected budget exhausted")
	}
	if period.Remaining() != 0 {
		t.Fatalf("remaining = %d, want 0", period.Remaining())
	}

	if _, err := svc.Consume(ctx, "u1", 1); !errors.Is(err, ErrLimitReached) {
		t.Fatalf("err = %v, want ErrLimitReached", err)
	}
}

func TestWindowRollsOver(t *testing.T) {
	svc, clock := newTestService(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for i := 0; i < DefaultLimit; i++ {
		if _, err := svc.Consume(ctx, "u1", 1); err != nil {
			t.Fatalf("consume: %v", err)
		}
	}

	*clock = clock.Add(DefaultPeriod + time.Minute)

	period, err := svc.Consume(ctx, "u1", 1)
	if err != nil {
		t.Fatalf("consume after rollover: %v", err)
	}
	if period.Used != 1 {
		t.Fatalf("used = %d, want 1 after rollover", period.Used)
	}
}

func TestResetClearsUsage(t *testing.T) {
	svc, _ := newTestService(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	if _, err := svc.Consume(ctx, "u1", 3); err != nil {
		t.Fatalf("consume: %v", err)
	}

	period, err := svc.Reset(ctx, "u1")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if period.Used != 0 {
		t.Fatalf("used = %d, want 0", period.Used)
	}
	if period.Plan != DefaultPlan || period.Limit != DefaultLimit {
		t.Fatalf("unexpected plan after reset: %+v", period)
	}
}

func TestUsersDoNotShareBudget(t *testing.T) {
	svc, _ := newTestService(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	if _, err := svc.Consume(ctx, "u1", DefaultLimit); err != nil {
		t.Fatalf("consume u1: %v", err)
	}

	ok, _, err := svc.CanConsume(ctx, "u2", 1)
	if err != nil {
		t.Fatalf("CanConsume u2: %v", err)
	}
	if !ok {
		t.Fatal("u2 should have a full budget")
	}
}
