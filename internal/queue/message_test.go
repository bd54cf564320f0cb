package queue

import (
	"context"
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	msg := Message{
		Type:         TypeEmailDelivery,
		UserID:       "u1",
		GenerationID: "run-1",
		Recipient:    "jane@example.com",
		Format:       "docx",
		RequestedAt:  time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
	}

	body, err := Encode(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := DecodeMessage(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded != msg {
		t.Fatalf("round trip mismatch: %+v != %+v", decoded, msg)
	}
}

func TestDecodeRejectsMissingType(t *testing.T) {
	if _, err := DecodeMessage(`{"userId":"u1"}`); err == nil {
		t.Fatal("expected error for message without type")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := DecodeMessage("not json"); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestMemoryQueueDeliversInOrder(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	for i, recipient := range []string{"a@example.com", "b@example.com"} {
		err := q.Send(ctx, Message{Type: TypeEmailDelivery, Recipient: recipient, GenerationID: "run", UserID: "u1"})
		if err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	deliveries, err := q.Receive(ctx, 10, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if len(deliveries) != 2 {
		t.Fatalf("got %d deliveries, want 2", len(deliveries))
	}

	first, err := DecodeMessage(deliveries[0].Body)
	if err != nil {
		t.Fatalf("decode first: %v", err)
	}
	if first.Recipient != "a@example.com" {
		t.Fatalf("first recipient = %q", first.Recipient)
	}
}

func TestMemoryQueueReceiveTimesOut(t *testing.T) {
	q := NewMemoryQueue()
	deliveries, err := q.Receive(context.Background(), 1, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if len(deliveries) != 0 {
		t.Fatalf("expected no deliveries, got %d", len(deliveries))
	}
}
