package queue

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// MemoryQueue is a channel-backed queue for development and tests.
type MemoryQueue struct {
	mu      sync.Mutex
	next    int
	entries chan Delivery
}

// NewMemoryQueue constructs a MemoryQueue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{entries: make(chan Delivery, 256)}
}

func (q *MemoryQueue) Send(ctx context.Context, msg Message) error {
	body, err := Encode(msg)
	if err != nil {
		return err
	}
	q.mu.Lock()
	q.next++
	handle := strconv.Itoa(q.next)
	q.mu.Unlock()

	select {
	case q.entries <- Delivery{Body: body, ReceiptHandle: handle}:
		return nil
	default:
		return fmt.Errorf("memory queue full")
	}
}

func (q *MemoryQueue) Receive(ctx context.Context, max int32, wait time.Duration) ([]Delivery, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	case d := <-q.entries:
		out := []Delivery{d}
		for int32(len(out)) < max {
			select {
			case extra := <-q.entries:
				out = append(out, extra)
			default:
				return out, nil
			}
		}
		return out, nil
	}
}

// Delete is a no-op: receiving already removed the entry.
func (q *MemoryQueue) Delete(ctx context.Context, receiptHandle string) error {
	return nil
}

var (
	_ Client   = (*MemoryQueue)(nil)
	_ Receiver = (*MemoryQueue)(nil)
)
