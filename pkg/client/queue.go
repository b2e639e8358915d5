package client

import "sync"

// Queue is the unbounded FIFO between a connection's reader (the single
// producer) and its single consumer. The consumer polls with TryPop and may
// sleep on Ready. There is no backpressure: a consumer that stops polling
// lets the queue grow without limit.
type Queue struct {
	mu       sync.Mutex
	items    []string
	closed   bool
	finished bool
	ready    chan struct{}
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Push appends line. It fails once the consumer closed the queue.
func (q *Queue) Push(line string) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.items = append(q.items, line)
	q.mu.Unlock()

	q.signal()
	return nil
}

// TryPop removes and returns the oldest line without blocking.
func (q *Queue) TryPop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return "", false
	}
	line := q.items[0]
	q.items[0] = ""
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return line, true
}

// Len returns the number of queued lines.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Ready receives a value after lines were pushed or the producer finished.
// Several pushes may collapse into one signal.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

// Close is called by the consumer to hang up. Later pushes fail and the
// producer stops.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.items = nil
}

// Finished reports whether the producer is done and every line was taken.
func (q *Queue) Finished() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.finished && len(q.items) == 0
}

func (q *Queue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// finish marks the end of the stream.
func (q *Queue) finish() {
	q.mu.Lock()
	q.finished = true
	q.mu.Unlock()
	q.signal()
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
