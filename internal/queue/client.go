package queue

import "context"

// Client enqueues background work.
type Client interface {
	Send(ctx context.Context, msg Message) error
}
