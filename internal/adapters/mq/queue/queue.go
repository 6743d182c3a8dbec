// Package queue buffers level updates between the API and the workers.
package queue

import (
	"context"
	"sync"

	"github.com/okian/bracketd/internal/domain/model"
	"github.com/okian/bracketd/pkg/metrics"
)

const defaultQueueCapacity = 10000

// Update is the payload type flowing through the queue.
type Update = model.LevelUpdate

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an update to the queue.
	// Returns false if the queue is full or closed and the update was not enqueued.
	Enqueue(ctx context.Context, u Update) bool

	// Dequeue returns a channel that receives updates as they become available.
	// The channel is closed when the queue is closed and drained, or ctx is done.
	Dequeue(ctx context.Context) <-chan Update

	// Len returns the current number of queued updates.
	Len(ctx context.Context) int

	// Close stops accepting updates. Already queued updates can still be drained.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	updates  chan Update
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.updates = make(chan Update, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

func (q *InMemoryQueue) Enqueue(ctx context.Context, u Update) bool {
	// The read lock keeps Close from closing the channel mid-send.
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		return false
	}

	select {
	case q.updates <- u:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.updates))
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		return false
	default:
		metrics.RecordQueueEnqueueError()
		return false
	}
}

func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Update {
	out := make(chan Update)
	go func() {
		defer close(out)
		for u := range q.updates {
			select {
			case out <- u:
				metrics.RecordQueueDequeue()
				metrics.UpdateQueueSize(len(q.updates))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.updates)
	metrics.UpdateQueueSize(size)
	return size
}

// Capacity returns the configured maximum size.
func (q *InMemoryQueue) Capacity() int { return q.capacity }

func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.updates)
	q.closed = true
	return nil
}

func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
