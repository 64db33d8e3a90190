// Package memory provides the in-process scan queue.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/restaurantgrader/restaurantgrader/internal/grader"
	"github.com/restaurantgrader/restaurantgrader/internal/metrics"
)

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch      chan grader.ScanItem
	closeMu sync.Mutex
	closed  bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch: make(chan grader.ScanItem, capacity),
	}
}

// Enqueue pushes a scan into the queue or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, item grader.ScanItem) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- item:
		metrics.SetQueueDepth(len(q.ch))
		return nil
	}
}

// Dequeue pops the next scan, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (grader.ScanItem, error) {
	select {
	case <-ctx.Done():
		return grader.ScanItem{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case item, ok := <-q.ch:
		if !ok {
			return grader.ScanItem{}, errors.New("queue closed")
		}
		metrics.SetQueueDepth(len(q.ch))
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
