package transport

import "sync"

// Queue is a FIFO of frames shared between a network goroutine and the
// control tick. Push and Pop are safe from any goroutine and never block;
// Wake lets a consumer sleep until something arrives without polling.
type Queue struct {
	mu     sync.Mutex
	frames []Frame
	wake   chan struct{}
}

func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Push appends a frame to the back of the queue.
func (q *Queue) Push(f Frame) {
	q.mu.Lock()
	q.frames = append(q.frames, f)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Pop removes and returns the frame at the front of the queue. The second
// return is false when the queue is empty.
func (q *Queue) Pop() (Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.frames) == 0 {
		return Frame{}, false
	}
	f := q.frames[0]
	q.frames = q.frames[1:]
	return f, true
}

// Len returns the number of queued frames.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// Wake receives a signal after Push. Coalesced: one signal may cover many
// pushes, so consumers drain with Pop until it returns false.
func (q *Queue) Wake() <-chan struct{} {
	return q.wake
}

// Drain discards everything queued, returning the count. Used on session
// teardown.
func (q *Queue) Drain() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.frames)
	q.frames = nil
	return n
}
