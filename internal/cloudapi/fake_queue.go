package cloudapi

import (
	"context"
	"strconv"
	"sync"
)

// FakeQueueAPI is an in-memory QueueAPI for tests. Messages are pushed
// with Push and acknowledged by handle; Deleted records every
// acknowledgement for assertions.
type FakeQueueAPI struct {
	mu       sync.Mutex
	name     string
	pending  []Message
	nextSeq  int
	received map[string]bool

	// Deleted tracks acknowledged handles in order.
	Deleted []string
}

// NewFakeQueueAPI creates an empty fake queue.
func NewFakeQueueAPI() *FakeQueueAPI {
	return &FakeQueueAPI{received: make(map[string]bool)}
}

// Push enqueues a raw message body.
func (f *FakeQueueAPI) Push(body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSeq++
	f.pending = append(f.pending, Message{
		Handle: "handle-" + strconv.Itoa(f.nextSeq),
		Body:   body,
	})
}

// Pending returns the number of unacknowledged messages.
func (f *FakeQueueAPI) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

func (f *FakeQueueAPI) EnsureQueue(ctx context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.name = name
	return "fake://" + name, nil
}

func (f *FakeQueueAPI) Receive(ctx context.Context, queueURL string, maxMessages int32) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int(maxMessages)
	if n > len(f.pending) {
		n = len(f.pending)
	}
	out := make([]Message, n)
	copy(out, f.pending[:n])
	return out, nil
}

func (f *FakeQueueAPI) Delete(ctx context.Context, queueURL string, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deleted = append(f.Deleted, handle)
	for i, msg := range f.pending {
		if msg.Handle == handle {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			break
		}
	}
	return nil
}

// Compile-time interface check.
var _ QueueAPI = (*FakeQueueAPI)(nil)
