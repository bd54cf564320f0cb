package activity

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func TestRecordAndList(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	svc.Record(ctx, "u1", TypeGenerationStarted, "run-1", "doc-1", "")
	svc.Record(ctx, "u1", TypeGenerationCompleted, "run-1", "doc-1", "ats_score=82")
	svc.Record(ctx, "u2", TypeGenerationStarted, "run-2", "doc-2", "")

	events, err := svc.List(ctx, "u1", 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	for _, ev := range events {
		if ev.UserID != "u1" {
			t.Fatalf("leaked event for %s", ev.UserID)
		}
		if ev.ID == "" {
			t.Fatal("event missing id")
		}
	}
}

func TestStatsSuccessRate(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		svc.Record(ctx, "u1", TypeGenerationCompleted, "run", "", "")
	}
	svc.Record(ctx, "u1", TypeGenerationFailed, "run", "", "LLM_TIMEOUT")
	svc.Record(ctx, "u1", TypeGenerationCancelled, "run", "", "")

	stats, err := svc.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Totals[TypeGenerationCompleted] != 3 {
		t.Fatalf("completed = %d", stats.Totals[TypeGenerationCompleted])
	}
	if stats.SuccessRate != 0.75 {
		t.Fatalf("success rate = %v, want 0.75", stats.SuccessRate)
	}
}

func TestStatsWithNoOutcomes(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	stats, err := svc.Stats(context.Background(), "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.SuccessRate != 0 {
		t.Fatalf("success rate = %v, want 0", stats.SuccessRate)
	}
}

func TestDeleteOlderThan(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	now := time.Now().UTC()

	old := Event{ID: "1", UserID: "u1", EventType: TypeGenerationStarted, CreatedAt: now.Add(-100 * 24 * time.Hour)}
	fresh := Event{ID: "2", UserID: "u1", EventType: TypeGenerationStarted, CreatedAt: now}
	if err := repo.Create(ctx, old); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, fresh); err != nil {
		t.Fatalf("create: %v", err)
	}

	removed, err := repo.DeleteOlderThan(ctx, now.Add(-90*24*time.Hour))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	events, err := repo.ListByUser(ctx, "u1", 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 || events[0].ID != "2" {
		t.Fatalf("unexpected survivors: %+v", events)
	}
}

func TestRenderXLSX(t *testing.T) {
	events := []Event{
		{
			ID:           "1",
			UserID:       "u1",
			EventType:    TypeGenerationCompleted,
			GenerationID: "run-1",
			DocumentID:   "doc-1",
			Detail:       "ats_score=82",
			CreatedAt:    time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
		},
	}

	data, err := RenderXLSX(events)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	header, err := f.GetCellValue(exportSheet, "B1")
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if header != "Event" {
		t.Fatalf("header B1 = %q", header)
	}

	eventType, err := f.GetCellValue(exportSheet, "B2")
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if eventType != TypeGenerationCompleted {
		t.Fatalf("B2 = %q", eventType)
	}

	detail, err := f.GetCellValue(exportSheet, "E2")
	if err != nil {
		t.Fatalf("read detail: %v", err)
	}
	if detail != "ats_score=82" {
		t.Fatalf("E2 = %q", detail)
	}
}
