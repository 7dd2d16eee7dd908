package cloudapi

import "context"

// Message is one raw notification received from the termination queue.
// Handle is the provider's receipt token used to acknowledge it.
type Message struct {
	Handle string
	Body   string
}

// QueueAPI is the boundary to the notification queue. EnsureQueue is
// get-or-create: calling it with an existing name returns the same
// queue reference.
type QueueAPI interface {
	EnsureQueue(ctx context.Context, name string) (string, error)
	Receive(ctx context.Context, queueURL string, maxMessages int32) ([]Message, error)
	Delete(ctx context.Context, queueURL string, handle string) error
}
