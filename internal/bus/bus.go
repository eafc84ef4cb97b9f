// Package bus carries quote snapshots from the sync scheduler to whatever
// forwards them to subscribed clients. Publishing never blocks: the
// scheduler must keep ticking even when nobody drains the queue.
package bus

import (
	"context"
	"sync/atomic"

	"github.com/mkorobovv/trade-mirror/internal/common/domain"
)

// Snapshot is one full quote set as produced by a completed batch.
type Snapshot struct {
	Quotes []domain.Quote
}

// Queue is a bounded, non-blocking snapshot queue. When full, the oldest
// snapshot is dropped; only the freshest data matters to a dashboard.
type Queue struct {
	ch      chan Snapshot
	closed  uint32
	dropped int64
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan Snapshot, capacity)}
}

// Publish enqueues a snapshot without blocking, evicting the oldest queued
// snapshot if necessary. Publishing to a closed queue is a no-op.
func (q *Queue) Publish(quotes []domain.Quote) {
	if atomic.LoadUint32(&q.closed) != 0 {
		return
	}

	s := Snapshot{Quotes: quotes}

	for {
		select {
		case q.ch <- s:
			return
		default:
		}

		select {
		case <-q.ch:
			atomic.AddInt64(&q.dropped, 1)
		default:
		}
	}
}

// Dropped returns how many snapshots were evicted by slow consumption.
func (q *Queue) Dropped() int64 {
	return atomic.LoadInt64(&q.dropped)
}

// Close stops the queue from accepting new snapshots.
func (q *Queue) Close() {
	if atomic.CompareAndSwapUint32(&q.closed, 0, 1) {
		close(q.ch)
	}
}

// Run consumes snapshots until the context is done or the queue is closed.
func (q *Queue) Run(ctx context.Context, handler func(Snapshot)) {
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-q.ch:
			if !ok {
				return
			}
			handler(s)
		}
	}
}
