package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"resumegen-backend/internal/activity"
)

func writeAgedFile(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("text"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	return path
}

func TestSweepRemovesOnlyAgedExtractedFiles(t *testing.T) {
	dir := t.TempDir()

	aged := writeAgedFile(t, dir, "abc/resume.pdf.extracted.txt", 2*time.Hour)
	fresh := writeAgedFile(t, dir, "abc/other.pdf.extracted.txt", time.Minute)
	upload := writeAgedFile(t, dir, "abc/resume.pdf", 2*time.Hour)

	c := &Cleaner{TempDir: dir, TempTTL: time.Hour}
	removed, err := c.sweepExtractedFiles(time.Now().Add(-c.TempTTL))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	if _, err := os.Stat(aged); !os.IsNotExist(err) {
		t.Fatal("aged extracted file should be gone")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatal("fresh extracted file should remain")
	}
	if _, err := os.Stat(upload); err != nil {
		t.Fatal("original upload must never be removed")
	}
}

func TestSweepPrunesExpiredActivity(t *testing.T) {
	repo := activity.NewMemoryRepo()
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.Create(ctx, activity.Event{ID: "old", UserID: "u1", EventType: activity.TypeGenerationStarted, CreatedAt: now.Add(-91 * 24 * time.Hour)}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, activity.Event{ID: "new", UserID: "u1", EventType: activity.TypeGenerationStarted, CreatedAt: now}); err != nil {
		t.Fatalf("create: %v", err)
	}

	c := &Cleaner{Activity: repo, Retention: 90 * 24 * time.Hour}
	c.sweep(ctx)

	events, err := repo.ListByUser(ctx, "u1", 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 || events[0].ID != "new" {
		t.Fatalf("unexpected survivors: %+v", events)
	}
}

type fakeSweeper struct {
	suffix  string
	cutoff  time.Time
	removed int
	calls   int
}

func (f *fakeSweeper) SweepExtracted(ctx context.Context, suffix string, olderThan time.Time) (int, error) {
	f.calls++
	f.suffix = suffix
	f.cutoff = olderThan
	return f.removed, nil
}

func TestSweepUsesRemoteSweeperWithoutTempDir(t *testing.T) {
	sweeper := &fakeSweeper{removed: 3}
	c := &Cleaner{TempTTL: time.Hour, Objects: sweeper}

	c.sweep(context.Background())

	if sweeper.calls != 1 {
		t.Fatalf("sweeper calls = %d, want 1", sweeper.calls)
	}
	if sweeper.suffix != extractedSuffix {
		t.Fatalf("suffix = %q, want %q", sweeper.suffix, extractedSuffix)
	}
	if age := time.Since(sweeper.cutoff); age < 59*time.Minute || age > 61*time.Minute {
		t.Fatalf("cutoff not one TTL in the past: %v", sweeper.cutoff)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	c := &Cleaner{Interval: 10 * time.Millisecond, TempDir: t.TempDir(), TempTTL: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleaner did not stop on cancel")
	}
}
