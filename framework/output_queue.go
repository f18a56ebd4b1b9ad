package framework

import "sync"

// OutputQueue is an unbounded FIFO of display lines shared between
// producers (executors, the materializer) and the single display consumer.
type OutputQueue struct {
	mu     sync.Mutex
	lines  []string
	notify chan struct{}
	closed bool
}

// NewOutputQueue builds an empty queue.
func NewOutputQueue() *OutputQueue {
	return &OutputQueue{notify: make(chan struct{}, 1)}
}

// Push appends a line. Pushing to a closed queue is a no-op.
func (q *OutputQueue) Push(line string) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.lines = append(q.lines, line)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Drain removes and returns every queued line in push order.
func (q *OutputQueue) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.lines) == 0 {
		return nil
	}
	out := q.lines
	q.lines = nil
	return out
}

// Len reports the number of undrained lines.
func (q *OutputQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lines)
}

// Ready is signalled (coalesced) after pushes. Consumers polling on a fixed
// tick can ignore it; headless consumers use it to avoid spinning.
func (q *OutputQueue) Ready() <-chan struct{} {
	return q.notify
}

// Close drops any pending lines and rejects further pushes.
func (q *OutputQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.lines = nil
}
