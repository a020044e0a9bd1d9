package upstream

import "sync"

// Queue is a bounded FIFO of delivery requests. When full, Push
// evicts the oldest entry so fresh profiles always win over stale
// ones. Pop blocks until a request arrives or the queue is closed.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []*Request
	cap     int
	closed  bool
	evicted uint64
}

// NewQueue creates a queue holding at most capacity requests.
// Capacities below one are clamped to one.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	q := &Queue{cap: capacity}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues req. If the queue is at capacity, the oldest queued
// request is removed and returned so the caller can account for the
// loss. After Close, req itself is rejected and returned.
func (q *Queue) Push(req *Request) (evicted *Request) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return req
	}

	if len(q.items) >= q.cap {
		evicted = q.items[0]
		q.items = q.items[1:]
		q.evicted++
	}
	q.items = append(q.items, req)
	q.cond.Signal()
	return evicted
}

// Pop removes and returns the oldest queued request, blocking while
// the queue is open and empty. It returns false once the queue is
// closed and fully drained.
func (q *Queue) Pop() (*Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}

	if len(q.items) == 0 {
		return nil, false
	}

	req := q.items[0]
	q.items = q.items[1:]
	return req, true
}

// Close stops accepting new requests and wakes blocked Pop callers.
// Requests already queued remain available until drained.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}

// Len returns the number of queued requests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Evicted returns how many requests have been displaced by Push.
func (q *Queue) Evicted() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.evicted
}
