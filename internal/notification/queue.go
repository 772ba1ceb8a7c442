package notification

import (
	"context"
	"sync"

	"github.com/example/ec-checkout/internal/model"
)

// MemoryQueue is a process-local PendingQueue.
type MemoryQueue struct {
	mu      sync.Mutex
	pending map[string][]model.StatusEvent
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{pending: make(map[string][]model.StatusEvent)}
}

func (q *MemoryQueue) Enqueue(_ context.Context, userID string, event model.StatusEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending[userID] = append(q.pending[userID], event)
	return nil
}

func (q *MemoryQueue) Drain(_ context.Context, userID string) ([]model.StatusEvent, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	events := q.pending[userID]
	delete(q.pending, userID)
	return events, nil
}
