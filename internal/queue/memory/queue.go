// Package memory provides the queue used for local development and
// single-node deployments.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/presencelab/presence-scanner/internal/scan"
)

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch      chan scan.QueueItem
	closeMu sync.Mutex
	closed  bool
}

// NewQueue constructs a queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch: make(chan scan.QueueItem, capacity),
	}
}

// Enqueue pushes a scan into the queue or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, item scan.QueueItem) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- item:
		return nil
	}
}

// Dequeue pops the next scan, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (scan.QueueItem, error) {
	select {
	case <-ctx.Done():
		return scan.QueueItem{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case item, ok := <-q.ch:
		if !ok {
			return scan.QueueItem{}, errors.New("queue closed")
		}
		return item, nil
	}
}

// Close closes the underlying channel for shutdown.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
