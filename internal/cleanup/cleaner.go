package cleanup

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"resumegen-backend/internal/activity"
	"resumegen-backend/internal/shared/metrics"
	"resumegen-backend/internal/shared/telemetry"
)

// extractedSuffix marks derived text files that are safe to remove. The
// generation pipeline rebuilds them from the original upload on demand.
const extractedSuffix = ".extracted.txt"

// ExtractedSweeper removes aged derived objects from a remote store.
type ExtractedSweeper interface {
	SweepExtracted(ctx context.Context, suffix string, olderThan time.Time) (int, error)
}

// Cleaner removes aged derived files and expired activity rows. TempDir
// covers a filesystem-backed store; Objects covers a remote one.
type Cleaner struct {
	Interval  time.Duration
	TempDir   string
	TempTTL   time.Duration
	Objects   ExtractedSweeper
	Activity  activity.ActivityRepo
	Retention time.Duration
}

// Run sweeps on the configured interval until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	interval := c.Interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	c.sweep(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

func (c *Cleaner) sweep(ctx context.Context) {
	if c.TempTTL > 0 {
		cutoff := time.Now().Add(-c.TempTTL)
		var (
			removed int
			err     error
		)
		switch {
		case c.TempDir != "":
			removed, err = c.sweepExtractedFiles(cutoff)
		case c.Objects != nil:
			removed, err = c.Objects.SweepExtracted(ctx, extractedSuffix, cutoff)
		}
		if err != nil {
			telemetry.Warn("cleanup.files_failed", map[string]any{"error": err.Error()})
		}
		if removed > 0 {
			metrics.IncCleanupRemoved("extracted_text", removed)
			telemetry.Info("cleanup.files_removed", map[string]any{"count": removed})
		}
	}

	if c.Activity != nil && c.Retention > 0 {
		cutoff := time.Now().UTC().Add(-c.Retention)
		removed, err := c.Activity.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			telemetry.Warn("cleanup.activity_failed", map[string]any{"error": err.Error()})
		}
		if removed > 0 {
			metrics.IncCleanupRemoved("activity_events", int(removed))
			telemetry.Info("cleanup.activity_removed", map[string]any{"count": removed})
		}
	}
}

// sweepExtractedFiles removes derived text files past their TTL.
func (c *Cleaner) sweepExtractedFiles(cutoff time.Time) (int, error) {
	removed := 0
	err := filepath.WalkDir(c.TempDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), extractedSuffix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			telemetry.Warn("cleanup.remove_failed", map[string]any{
				"path":  path,
				"error": err.Error(),
			})
			return nil
		}
		removed++
		return nil
	})
	return removed, err
}
